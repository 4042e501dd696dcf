package mesh

import "fmt"

// Constraint is one scalar master-slave relation:
//
//	slave[component] = Weight * master[component] + Constant
//
// evaluated on the given solution field. The constraint store lives on
// the root model part and is rebuilt wholesale by its owner; there is no
// incremental patching.
type Constraint struct {
	SlaveNode  *Node
	MasterNode *Node
	Field      Field
	Component  int
	Weight     float64
	Constant   float64
}

// Apply writes the constrained value onto the slave node.
func (c *Constraint) Apply() {
	v := c.SlaveNode.Value(c.Field)
	v[c.Component] = c.Weight*c.MasterNode.Value(c.Field)[c.Component] + c.Constant
	c.SlaveNode.SetValue(c.Field, v)
}

// Residual returns slave - (weight*master + constant) for the constraint.
func (c *Constraint) Residual() float64 {
	return c.SlaveNode.Value(c.Field)[c.Component] -
		(c.Weight*c.MasterNode.Value(c.Field)[c.Component] + c.Constant)
}

// AddConstraint appends a constraint to the root store.
func (mp *ModelPart) AddConstraint(c *Constraint) error {
	if c.SlaveNode == nil || c.MasterNode == nil {
		return fmt.Errorf("constraint on model part %q has a nil node", mp.Name)
	}
	root := mp.Root()
	root.constraints = append(root.constraints, c)
	return nil
}

// Constraints returns the root store in insertion order.
func (mp *ModelPart) Constraints() []*Constraint { return mp.Root().constraints }

// NumberOfConstraints returns the size of the root store.
func (mp *ModelPart) NumberOfConstraints() int { return len(mp.Root().constraints) }

// ClearConstraints removes every constraint from the root store. This is
// deliberately destructive across the whole root: the periodicity builder
// assumes it is the sole constraint source.
func (mp *ModelPart) ClearConstraints() {
	root := mp.Root()
	root.constraints = root.constraints[:0]
}

// ApplyConstraints evaluates all constraints onto their slave nodes.
// Constraints are applied in insertion order.
func (mp *ModelPart) ApplyConstraints() {
	for _, c := range mp.Root().constraints {
		c.Apply()
	}
}
