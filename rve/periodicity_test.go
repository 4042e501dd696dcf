package rve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetikit/mesh"
)

func applyReady(t *testing.T, domainSize int, volume, boundary *mesh.ModelPart) *Session {
	t.Helper()
	s := newTestSession(t, domainSize)
	require.NoError(t, s.DetectBoundingBox(volume))
	require.NoError(t, s.ConstructFaceParts(boundary))
	return s
}

func TestStrainMatrixMirrorsOffDiagonals(t *testing.T) {
	strain, err := StrainMatrix(3, map[string]float64{
		"00": 0.1, "11": 0.2, "22": 0.3,
		"01": 0.01, "02": 0.02, "12": 0.03,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.01, strain.At(0, 1), 1e-14)
	assert.InDelta(t, 0.01, strain.At(1, 0), 1e-14)
	assert.InDelta(t, 0.02, strain.At(2, 0), 1e-14)
	assert.InDelta(t, 0.03, strain.At(2, 1), 1e-14)

	_, err = StrainMatrix(1, nil)
	assert.Error(t, err)
}

func TestApplyPeriodicityZeroStrainUnitSquare(t *testing.T) {
	volume, boundary := unitSquare(t)
	s := applyReady(t, 2, volume, boundary)

	strain, err := StrainMatrix(2, nil)
	require.NoError(t, err)
	require.NoError(t, s.ApplyPeriodicity(strain, volume, boundary))

	// Five slave nodes (three on max_x, two on max_y), two components each.
	require.Equal(t, 10, volume.NumberOfConstraints())

	// Seed the terminal master nodes with distinct velocities.
	for _, n := range volume.Nodes() {
		n.SetValue(mesh.Velocity, [3]float64{10*n.Coords[0] + n.Coords[1], 3, 0})
	}
	seed := func(id int, v [3]float64) {
		n, err := volume.Node(id)
		require.NoError(t, err)
		n.SetValue(mesh.Velocity, v)
	}
	seed(1, [3]float64{1, 2, 0})   // (0,0)
	seed(4, [3]float64{5, 6, 0})   // (0,0.5)
	seed(2, [3]float64{-3, 4, 0})  // (0.5,0)

	volume.ApplyConstraints()

	// Pure periodic repetition: every constraint is exactly satisfied
	// and opposite nodes carry equal values.
	for _, c := range volume.Constraints() {
		assert.InDelta(t, 0.0, c.Residual(), 1e-12)
	}
	n6, _ := volume.Node(6) // (1,0.5) slave of (0,0.5)
	n4, _ := volume.Node(4)
	assert.Equal(t, n4.Value(mesh.Velocity), n6.Value(mesh.Velocity))

	// The (1,1) corner chains through (0,1) down to (0,0).
	n9, _ := volume.Node(9)
	n1, _ := volume.Node(1)
	assert.Equal(t, n1.Value(mesh.Velocity), n9.Value(mesh.Velocity))
}

func TestApplyPeriodicityIsIdempotent(t *testing.T) {
	volume, boundary := unitSquare(t)
	s := applyReady(t, 2, volume, boundary)

	strain, err := StrainMatrix(2, map[string]float64{"00": 0.1, "01": 0.05})
	require.NoError(t, err)

	require.NoError(t, s.ApplyPeriodicity(strain, volume, boundary))
	first := volume.NumberOfConstraints()
	require.NoError(t, s.ApplyPeriodicity(strain, volume, boundary))

	// Old constraints are fully replaced, never accumulated.
	assert.Equal(t, first, volume.NumberOfConstraints())
}

func TestApplyPeriodicityStrainJump(t *testing.T) {
	volume, boundary := unitSquare(t)
	s := applyReady(t, 2, volume, boundary)

	strain, err := StrainMatrix(2, map[string]float64{"00": 0.1})
	require.NoError(t, err)
	require.NoError(t, s.ApplyPeriodicity(strain, volume, boundary))

	// x-pair: slave (1,0.5) = master (0,0.5) + strain*dx on component 0.
	var found bool
	for _, c := range volume.Constraints() {
		if c.SlaveNode.ID == 6 && c.Component == 0 {
			found = true
			assert.Equal(t, 4, c.MasterNode.ID)
			assert.InDelta(t, 0.1, c.Constant, 1e-14)
		}
	}
	assert.True(t, found, "expected a component-0 constraint for node 6")
}

func TestApplyPeriodicityZeroStrainUnitCube(t *testing.T) {
	volume, boundary := unitCube(t)
	s := applyReady(t, 3, volume, boundary)

	strain, err := StrainMatrix(3, nil)
	require.NoError(t, err)
	require.NoError(t, s.ApplyPeriodicity(strain, volume, boundary))

	// Slaves: four on max_x, two on max_y, one on max_z; three components.
	require.Equal(t, 21, volume.NumberOfConstraints())

	origin, _ := volume.Node(1) // (0,0,0)
	origin.SetValue(mesh.Velocity, [3]float64{1, 2, 3})
	volume.ApplyConstraints()

	// The (1,1,1) corner chains x -> y -> z to the origin.
	far, _ := volume.Node(8)
	assert.Equal(t, origin.Value(mesh.Velocity), far.Value(mesh.Velocity))
}

func TestApplyPeriodicityRequiresFaceParts(t *testing.T) {
	volume, boundary := unitSquare(t)
	s := newTestSession(t, 2)
	require.NoError(t, s.DetectBoundingBox(volume))

	strain, err := StrainMatrix(2, nil)
	require.NoError(t, err)
	assert.Error(t, s.ApplyPeriodicity(strain, volume, boundary))
}
