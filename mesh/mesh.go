// Package mesh provides the model-part data layer shared by the
// periodicity builder and the dynamic coupling utilities: named node and
// boundary-facet registries, nodal solution fields, and the master-slave
// constraint store owned by each root model part.
package mesh

import (
	"fmt"
	"math"
)

// Flag marks a node for classification passes (e.g. face-group claiming).
type Flag uint8

const (
	Slave Flag = 1 << iota
	Master
	Interface
)

// Field identifies a nodal solution-step vector.
type Field int

const (
	Displacement Field = iota
	Velocity
	Acceleration
	MiddleVelocity
	LagrangeMultiplier
)

var fieldNames = map[Field]string{
	Displacement:       "DISPLACEMENT",
	Velocity:           "VELOCITY",
	Acceleration:       "ACCELERATION",
	MiddleVelocity:     "MIDDLE_VELOCITY",
	LagrangeMultiplier: "VECTOR_LAGRANGE_MULTIPLIER",
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// FieldFromString resolves a field by its configuration-file name.
func FieldFromString(s string) (Field, error) {
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown solution field %q", s)
}

// Node is a mesh point with solution-step values and the equation IDs
// used to address it in interface and domain DOF orderings. Equation IDs
// default to -1 (unset).
type Node struct {
	ID     int
	Coords [3]float64

	// Mass is the lumped nodal mass; only meaningful for nodes of
	// explicitly integrated domains.
	Mass float64

	// InterfaceEquationID orders interface nodes in mapper space.
	InterfaceEquationID int
	// DomainEquationID orders DOFs in an implicit system matrix.
	DomainEquationID int
	// ExplicitEquationID orders DOFs of an explicit (massed) domain.
	ExplicitEquationID int

	flags  Flag
	values map[Field][3]float64
}

// NewNode creates a node at the given position with all equation IDs unset.
func NewNode(id int, x, y, z float64) *Node {
	return &Node{
		ID:                  id,
		Coords:              [3]float64{x, y, z},
		InterfaceEquationID: -1,
		DomainEquationID:    -1,
		ExplicitEquationID:  -1,
		values:              make(map[Field][3]float64),
	}
}

// Is reports whether every bit of f is set on the node.
func (n *Node) Is(f Flag) bool { return n.flags&f == f }

// Set turns flag bits on or off.
func (n *Node) Set(f Flag, on bool) {
	if on {
		n.flags |= f
	} else {
		n.flags &^= f
	}
}

// Value returns the current solution-step value of a field.
func (n *Node) Value(f Field) [3]float64 { return n.values[f] }

// SetValue overwrites the solution-step value of a field.
func (n *Node) SetValue(f Field, v [3]float64) { n.values[f] = v }

// AddValue accumulates into the solution-step value of a field.
func (n *Node) AddValue(f Field, v [3]float64) {
	cur := n.values[f]
	for i := range cur {
		cur[i] += v[i]
	}
	n.values[f] = cur
}

// Condition is a boundary facet defined by its corner nodes.
type Condition struct {
	ID    int
	Nodes []*Node
}

// Center returns the geometric center of the facet.
func (c *Condition) Center() [3]float64 {
	var ctr [3]float64
	if len(c.Nodes) == 0 {
		return ctr
	}
	for _, n := range c.Nodes {
		for i := 0; i < 3; i++ {
			ctr[i] += n.Coords[i]
		}
	}
	inv := 1.0 / float64(len(c.Nodes))
	for i := 0; i < 3; i++ {
		ctr[i] *= inv
	}
	return ctr
}

// ModelPart is a named collection of nodes and boundary facets.
// Sub-model-parts share node and condition instances with their parents;
// adding an entity to a sub-part registers it up the ancestor chain.
// The root part additionally owns the master-slave constraint store.
type ModelPart struct {
	Name string

	parent      *ModelPart
	nodes       []*Node
	nodeIndex   map[int]*Node
	conditions  []*Condition
	condIndex   map[int]*Condition
	subParts    map[string]*ModelPart
	subOrder    []string
	constraints []*Constraint // root only
}

// NewModelPart creates an empty root model part.
func NewModelPart(name string) *ModelPart {
	return &ModelPart{
		Name:      name,
		nodeIndex: make(map[int]*Node),
		condIndex: make(map[int]*Condition),
		subParts:  make(map[string]*ModelPart),
	}
}

// Root returns the top-level ancestor of the part.
func (mp *ModelPart) Root() *ModelPart {
	r := mp
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// CreateSubModelPart creates a named child part. Creating a name twice
// is an error; use HasSubModelPart to probe first.
func (mp *ModelPart) CreateSubModelPart(name string) (*ModelPart, error) {
	if _, ok := mp.subParts[name]; ok {
		return nil, fmt.Errorf("model part %q already has sub model part %q", mp.Name, name)
	}
	sub := NewModelPart(name)
	sub.parent = mp
	mp.subParts[name] = sub
	mp.subOrder = append(mp.subOrder, name)
	return sub, nil
}

// HasSubModelPart reports whether a direct child with the name exists.
func (mp *ModelPart) HasSubModelPart(name string) bool {
	_, ok := mp.subParts[name]
	return ok
}

// SubModelPart returns the direct child with the given name.
func (mp *ModelPart) SubModelPart(name string) (*ModelPart, error) {
	sub, ok := mp.subParts[name]
	if !ok {
		return nil, fmt.Errorf("model part %q has no sub model part %q", mp.Name, name)
	}
	return sub, nil
}

// AddNode registers a node in this part and all its ancestors.
func (mp *ModelPart) AddNode(n *Node) {
	for p := mp; p != nil; p = p.parent {
		if _, ok := p.nodeIndex[n.ID]; ok {
			continue
		}
		p.nodeIndex[n.ID] = n
		p.nodes = append(p.nodes, n)
	}
}

// AddNodesByID pulls nodes out of the root registry into this part.
func (mp *ModelPart) AddNodesByID(ids []int) error {
	root := mp.Root()
	for _, id := range ids {
		n, ok := root.nodeIndex[id]
		if !ok {
			return fmt.Errorf("node %d not found in root model part %q", id, root.Name)
		}
		mp.AddNode(n)
	}
	return nil
}

// Node returns the registered node with the given ID.
func (mp *ModelPart) Node(id int) (*Node, error) {
	n, ok := mp.nodeIndex[id]
	if !ok {
		return nil, fmt.Errorf("node %d not found in model part %q", id, mp.Name)
	}
	return n, nil
}

// Nodes returns the nodes in insertion order. The slice is shared; do not
// mutate it.
func (mp *ModelPart) Nodes() []*Node { return mp.nodes }

// NumberOfNodes returns the node count of this part.
func (mp *ModelPart) NumberOfNodes() int { return len(mp.nodes) }

// AddCondition registers a facet in this part and all its ancestors.
// The facet's nodes are not implicitly added.
func (mp *ModelPart) AddCondition(c *Condition) {
	for p := mp; p != nil; p = p.parent {
		if _, ok := p.condIndex[c.ID]; ok {
			continue
		}
		p.condIndex[c.ID] = c
		p.conditions = append(p.conditions, c)
	}
}

// Conditions returns the facets in insertion order.
func (mp *ModelPart) Conditions() []*Condition { return mp.conditions }

// NumberOfConditions returns the facet count of this part.
func (mp *ModelPart) NumberOfConditions() int { return len(mp.conditions) }

// BoundingBox returns per-axis coordinate extrema over the part's nodes,
// initialized to +/-1e20 sentinels so any real coordinate overrides them.
func (mp *ModelPart) BoundingBox() (minCorner, maxCorner [3]float64) {
	for i := 0; i < 3; i++ {
		minCorner[i] = 1e20
		maxCorner[i] = -1e20
	}
	for _, n := range mp.nodes {
		for i := 0; i < 3; i++ {
			minCorner[i] = math.Min(minCorner[i], n.Coords[i])
			maxCorner[i] = math.Max(maxCorner[i], n.Coords[i])
		}
	}
	return minCorner, maxCorner
}

// Model is a registry of root model parts addressable by name.
type Model struct {
	parts map[string]*ModelPart
	order []string
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{parts: make(map[string]*ModelPart)}
}

// CreateModelPart creates a named root part in the model.
func (m *Model) CreateModelPart(name string) (*ModelPart, error) {
	if _, ok := m.parts[name]; ok {
		return nil, fmt.Errorf("model already has model part %q", name)
	}
	mp := NewModelPart(name)
	m.parts[name] = mp
	m.order = append(m.order, name)
	return mp, nil
}

// Part resolves a model part by name. Dotted names descend into
// sub-model-parts ("volume.boundary").
func (m *Model) Part(name string) (*ModelPart, error) {
	mp, ok := m.parts[name]
	if ok {
		return mp, nil
	}
	for i := 0; i < len(name); i++ {
		if name[i] != '.' {
			continue
		}
		root, ok := m.parts[name[:i]]
		if !ok {
			break
		}
		return root.SubModelPart(name[i+1:])
	}
	return nil, fmt.Errorf("model has no model part %q", name)
}
