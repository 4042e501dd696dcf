package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintApply(t *testing.T) {
	master := NewNode(1, 0, 0, 0)
	slave := NewNode(2, 1, 0, 0)
	master.SetValue(Velocity, [3]float64{2, 0, 0})

	c := &Constraint{
		SlaveNode:  slave,
		MasterNode: master,
		Field:      Velocity,
		Component:  0,
		Weight:     1.0,
		Constant:   0.5,
	}
	c.Apply()

	assert.InDelta(t, 2.5, slave.Value(Velocity)[0], 1e-14)
	assert.InDelta(t, 0.0, c.Residual(), 1e-14)
}

func TestClearConstraintsIsWholeRoot(t *testing.T) {
	root := NewModelPart("volume")
	sub, err := root.CreateSubModelPart("face")
	require.NoError(t, err)

	a := NewNode(1, 0, 0, 0)
	b := NewNode(2, 1, 0, 0)
	root.AddNode(a)
	root.AddNode(b)

	// Constraints added through a sub part land on the root store.
	require.NoError(t, sub.AddConstraint(&Constraint{SlaveNode: b, MasterNode: a, Field: Velocity, Weight: 1}))
	require.NoError(t, root.AddConstraint(&Constraint{SlaveNode: a, MasterNode: b, Field: Velocity, Weight: 1}))
	assert.Equal(t, 2, root.NumberOfConstraints())
	assert.Equal(t, 2, sub.NumberOfConstraints())

	// Clearing through any part wipes everything.
	sub.ClearConstraints()
	assert.Equal(t, 0, root.NumberOfConstraints())
}

func TestAddConstraintNilNode(t *testing.T) {
	root := NewModelPart("volume")
	err := root.AddConstraint(&Constraint{SlaveNode: nil, MasterNode: NewNode(1, 0, 0, 0)})
	assert.Error(t, err)
}
