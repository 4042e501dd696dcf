package rve

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"fetikit/mesh"
)

// StrainMatrix mirrors the six independent jump components (keyed by
// unordered axis pairs "00", "11", "22", "01", "02", "12") into a
// symmetric strain tensor of the given domain size. Missing components
// are zero; components referencing axes beyond the domain size are
// ignored.
func StrainMatrix(domainSize int, jumps map[string]float64) (*mat.SymDense, error) {
	if domainSize != 2 && domainSize != 3 {
		return nil, fmt.Errorf("wrong domain size %d, expected 2 or 3", domainSize)
	}
	strain := mat.NewSymDense(domainSize, nil)
	for i := 0; i < domainSize; i++ {
		for j := i; j < domainSize; j++ {
			key := fmt.Sprintf("%d%d", i, j)
			strain.SetSym(i, j, jumps[key])
		}
	}
	return strain, nil
}

// ApplyPeriodicity rebuilds the periodicity constraint set from scratch.
// It clears ALL master-slave constraints on the volume's root (the
// builder assumes it is the sole constraint source), pairs each axis'
// min face (master) with its max face (slave) by nearest-node search,
// and finalizes the constraints against the configured result field.
// Calling it again with the same strain yields an identical set.
func (s *Session) ApplyPeriodicity(strain *mat.SymDense, volume, boundary *mesh.ModelPart) error {
	if len(s.faces) == 0 {
		return fmt.Errorf("face groups have not been constructed, call ConstructFaceParts first")
	}
	if n := strain.SymmetricDim(); n != s.opts.DomainSize {
		return fmt.Errorf("strain tensor is %dx%d, expected %dx%d", n, n, s.opts.DomainSize, s.opts.DomainSize)
	}

	root := volume.Root()
	root.ClearConstraints()
	s.pending = make(map[int]pendingEntry)

	axes := []struct {
		axis     int
		min, max string
	}{
		{0, MinXFace, MaxXFace},
		{1, MinYFace, MaxYFace},
	}
	if s.opts.DomainSize == 3 {
		axes = append(axes, struct {
			axis     int
			min, max string
		}{2, MinZFace, MaxZFace})
	}

	for _, ax := range axes {
		var direction [3]float64
		direction[ax.axis] = s.maxCorner[ax.axis] - s.minCorner[ax.axis]
		if err := s.assignPeriodicity(s.faces[ax.min], s.faces[ax.max], strain, direction); err != nil {
			return err
		}
	}

	if err := s.finalize(root); err != nil {
		return err
	}
	s.log.Info("periodicity constraints rebuilt",
		zap.String("result_field", s.resultField.String()),
		zap.Int("constraints", root.NumberOfConstraints()))
	return nil
}

// assignPeriodicity records one pending relation per slave node of the
// max face: its geometric counterpart on the min face plus the jump
// vector strain*direction. The counterpart search runs over the min
// face's facet nodes (not its claimed node set) so edge and corner nodes
// claimed by another group are still reachable as masters.
func (s *Session) assignPeriodicity(minFace, maxFace *mesh.ModelPart, strain *mat.SymDense, direction [3]float64) error {
	var jump [3]float64
	for i := 0; i < s.opts.DomainSize; i++ {
		for j := 0; j < s.opts.DomainSize; j++ {
			jump[i] += strain.At(i, j) * direction[j]
		}
	}

	masters := facetNodes(minFace)
	if len(masters) == 0 {
		return fmt.Errorf("%s has no facet nodes to pair against", minFace.Name)
	}

	tol := s.opts.GeometricalSearchTolerance
	for _, slave := range maxFace.Nodes() {
		var target [3]float64
		for i := 0; i < 3; i++ {
			target[i] = slave.Coords[i] - direction[i]
		}

		best, bestDist := nearestNode(masters, target)
		if bestDist > tol {
			return fmt.Errorf("no periodic counterpart on %s for node %d of %s: nearest is node %d at distance %g (tolerance %g)",
				minFace.Name, slave.ID, maxFace.Name, best.ID, bestDist, tol)
		}
		s.pending[slave.ID] = pendingEntry{master: best, jump: jump}
	}
	return nil
}

// finalize resolves pending relations into constraints on the root
// store. A recorded master may itself be a slave of another face pair
// (corner and edge nodes); such chains are substituted transitively,
// accumulating jump offsets, so every emitted constraint ties a slave to
// a terminal master. One-time operation per ApplyPeriodicity call.
func (s *Session) finalize(root *mesh.ModelPart) error {
	slaveIDs := make([]int, 0, len(s.pending))
	for id := range s.pending {
		slaveIDs = append(slaveIDs, id)
	}
	sort.Ints(slaveIDs)

	for _, id := range slaveIDs {
		entry := s.pending[id]
		master := entry.master
		jump := entry.jump

		for hops := 0; ; hops++ {
			next, ok := s.pending[master.ID]
			if !ok {
				break
			}
			if hops > len(s.pending) {
				return fmt.Errorf("periodicity constraint chain starting at node %d does not terminate", id)
			}
			for i := 0; i < 3; i++ {
				jump[i] += next.jump[i]
			}
			master = next.master
		}

		slave, err := root.Node(id)
		if err != nil {
			return err
		}
		for comp := 0; comp < s.opts.DomainSize; comp++ {
			if err := root.AddConstraint(&mesh.Constraint{
				SlaveNode:  slave,
				MasterNode: master,
				Field:      s.resultField,
				Component:  comp,
				Weight:     1.0,
				Constant:   jump[comp],
			}); err != nil {
				return err
			}
		}
	}
	s.pending = nil
	return nil
}

// facetNodes returns the deduplicated nodes of a face group's facets in
// ascending ID order.
func facetNodes(face *mesh.ModelPart) []*mesh.Node {
	seen := make(map[int]*mesh.Node)
	for _, cond := range face.Conditions() {
		for _, n := range cond.Nodes {
			seen[n.ID] = n
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	nodes := make([]*mesh.Node, len(ids))
	for i, id := range ids {
		nodes[i] = seen[id]
	}
	return nodes
}

func nearestNode(nodes []*mesh.Node, target [3]float64) (*mesh.Node, float64) {
	var best *mesh.Node
	bestDist := math.Inf(1)
	for _, n := range nodes {
		var d2 float64
		for i := 0; i < 3; i++ {
			d := n.Coords[i] - target[i]
			d2 += d * d
		}
		if d := math.Sqrt(d2); d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best, bestDist
}
