// Package rve builds periodic boundary constraints for representative
// volume elements: it detects the bounding box of an averaging region,
// partitions the boundary facets into min/max face groups per axis, and
// ties opposite faces together with master-slave constraints encoding a
// prescribed macroscopic strain jump.
package rve

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"fetikit/mesh"
)

// Face group names created under the boundary's root model part.
const (
	MaxXFace = "max_x_face"
	MaxYFace = "max_y_face"
	MaxZFace = "max_z_face"
	MinXFace = "min_x_face"
	MinYFace = "min_y_face"
	MinZFace = "min_z_face"
)

// Options configures one periodicity session.
type Options struct {
	// DomainSize is the spatial dimension, 2 or 3.
	DomainSize int

	// PopulateSearchEps is the relative face-detection tolerance; it is
	// multiplied by the bounding-box diagonal so detection is invariant
	// to overall model scale. Defaults to 1e-4.
	PopulateSearchEps float64

	// GeometricalSearchTolerance is the absolute tolerance of the
	// nearest-node search pairing opposite faces. Independent of the
	// face-detection tolerance. Defaults to 1e-4.
	GeometricalSearchTolerance float64

	// ResultField names the solution field the constraints equate
	// (configuration-file spelling, e.g. "VELOCITY"). Defaults to
	// "VELOCITY".
	ResultField string
}

// Session runs one periodicity pass. It owns the node claim set that
// prevents a node shared by two face groups (edges, corners) from being
// assigned twice; the set lives for one ConstructFaceParts call and must
// not be reset mid-pass.
//
// Tie-break policy: max faces (the slave side) are classified before min
// faces (the master side), so shared nodes belong to whichever max face
// claims them first. Swapping this order changes the constraint topology.
type Session struct {
	opts Options
	log  *zap.Logger

	minCorner, maxCorner [3]float64
	diagonal             float64
	boxDetected          bool

	claimed map[int]struct{}
	faces   map[string]*mesh.ModelPart

	resultField mesh.Field
	pending     map[int]pendingEntry
}

type pendingEntry struct {
	master *mesh.Node
	jump   [3]float64
}

// NewSession validates the options and creates a session. A nil logger
// disables logging.
func NewSession(opts Options, log *zap.Logger) (*Session, error) {
	if opts.DomainSize != 2 && opts.DomainSize != 3 {
		return nil, fmt.Errorf("wrong domain size %d, expected 2 or 3", opts.DomainSize)
	}
	if opts.PopulateSearchEps == 0 {
		opts.PopulateSearchEps = 1e-4
	}
	if opts.GeometricalSearchTolerance == 0 {
		opts.GeometricalSearchTolerance = 1e-4
	}
	if opts.ResultField == "" {
		opts.ResultField = "VELOCITY"
	}
	field, err := mesh.FieldFromString(opts.ResultField)
	if err != nil {
		return nil, fmt.Errorf("invalid result field: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		opts:        opts,
		log:         log,
		faces:       make(map[string]*mesh.ModelPart),
		resultField: field,
	}, nil
}

// DetectBoundingBox scans the averaging part's nodes once, tracking
// per-axis extrema. No convexity or connectivity is assumed; only the
// coordinate extrema are meaningful.
func (s *Session) DetectBoundingBox(averaging *mesh.ModelPart) error {
	if averaging.NumberOfNodes() == 0 {
		return fmt.Errorf("averaging model part %q has no nodes", averaging.Name)
	}
	s.minCorner, s.maxCorner = averaging.BoundingBox()

	var d2 float64
	for i := 0; i < 3; i++ {
		d := s.maxCorner[i] - s.minCorner[i]
		d2 += d * d
	}
	s.diagonal = math.Sqrt(d2)
	s.boxDetected = true

	s.log.Info("bounding box detected",
		zap.Float64s("min_corner", s.minCorner[:]),
		zap.Float64s("max_corner", s.maxCorner[:]),
		zap.Float64("averaging_volume", s.AveragingVolume()))
	return nil
}

// MinCorner returns the detected minimum corner.
func (s *Session) MinCorner() [3]float64 { return s.minCorner }

// MaxCorner returns the detected maximum corner.
func (s *Session) MaxCorner() [3]float64 { return s.maxCorner }

// DiagonalLength returns the Euclidean norm of max - min.
func (s *Session) DiagonalLength() float64 { return s.diagonal }

// AveragingVolume returns the undeformed box volume (area in 2-D).
func (s *Session) AveragingVolume() float64 {
	v := 1.0
	for i := 0; i < s.opts.DomainSize; i++ {
		v *= s.maxCorner[i] - s.minCorner[i]
	}
	return v
}

// ConstructFaceParts partitions the boundary facets into face groups,
// one per axis extremum, created as sub-model-parts of the boundary's
// root. Max faces first, then min faces (see the tie-break policy on
// Session). Any face group left without facets means the averaging
// region does not span the requested box on that axis, which is a
// modeling error.
func (s *Session) ConstructFaceParts(boundary *mesh.ModelPart) error {
	if boundary.NumberOfConditions() == 0 {
		return fmt.Errorf("boundary model part %q is expected to have conditions and has none", boundary.Name)
	}
	if !s.boxDetected {
		return fmt.Errorf("bounding box has not been detected, call DetectBoundingBox first")
	}

	eps := s.opts.PopulateSearchEps * s.diagonal
	s.claimed = make(map[int]struct{})
	for _, n := range boundary.Root().Nodes() {
		n.Set(mesh.Slave|mesh.Master, false)
	}

	type faceSpec struct {
		name   string
		axis   int
		target float64
	}
	specs := []faceSpec{
		{MaxXFace, 0, s.maxCorner[0]},
		{MaxYFace, 1, s.maxCorner[1]},
	}
	if s.opts.DomainSize == 3 {
		specs = append(specs, faceSpec{MaxZFace, 2, s.maxCorner[2]})
	}
	specs = append(specs,
		faceSpec{MinXFace, 0, s.minCorner[0]},
		faceSpec{MinYFace, 1, s.minCorner[1]},
	)
	if s.opts.DomainSize == 3 {
		specs = append(specs, faceSpec{MinZFace, 2, s.minCorner[2]})
	}

	for _, spec := range specs {
		face, err := s.classifyFace(boundary, spec.name, spec.axis, spec.target, eps)
		if err != nil {
			return err
		}
		if face.NumberOfConditions() == 0 {
			return fmt.Errorf("%s has 0 conditions", spec.name)
		}
		s.faces[spec.name] = face
	}
	return nil
}

// Face returns a face group built by ConstructFaceParts.
func (s *Session) Face(name string) (*mesh.ModelPart, error) {
	face, ok := s.faces[name]
	if !ok {
		return nil, fmt.Errorf("face group %q has not been constructed", name)
	}
	return face, nil
}

// classifyFace collects the root's facets whose center lies within eps of
// the target coordinate on the given axis, then claims their nodes for
// this face group. Nodes already claimed by an earlier group are skipped.
func (s *Session) classifyFace(boundary *mesh.ModelPart, name string, axis int, target, eps float64) (*mesh.ModelPart, error) {
	root := boundary.Root()

	var face *mesh.ModelPart
	var err error
	if root.HasSubModelPart(name) {
		face, err = root.SubModelPart(name)
	} else {
		face, err = root.CreateSubModelPart(name)
	}
	if err != nil {
		return nil, err
	}

	for _, cond := range root.Conditions() {
		center := cond.Center()
		if math.Abs(center[axis]-target) < eps {
			face.AddCondition(cond)
		}
	}

	var ids []int
	for _, cond := range face.Conditions() {
		for _, n := range cond.Nodes {
			if _, taken := s.claimed[n.ID]; taken {
				continue
			}
			s.claimed[n.ID] = struct{}{}
			n.Set(mesh.Slave, true)
			ids = append(ids, n.ID)
		}
	}
	sort.Ints(ids)
	if err := face.AddNodesByID(ids); err != nil {
		return nil, err
	}
	return face, nil
}
