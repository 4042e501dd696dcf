// Package meshio imports tetrahedral volume meshes and derives the
// exterior boundary facets the periodicity builder classifies.
package meshio

import (
	"fmt"

	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"go.uber.org/zap"

	"fetikit/mesh"
)

// BoundarySubModelPartName is the sub-model-part that receives the
// exterior facets of an imported mesh.
const BoundarySubModelPartName = "boundary"

// Import reads a mesh file (Gambit .neu, gmsh .msh) and builds a root
// model part holding its vertices plus a boundary sub-part with the
// exterior triangular facets.
func Import(path, name string, log *zap.Logger) (*mesh.ModelPart, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file %s: %w", path, err)
	}

	vertices := make([][3]float64, len(msh.Vertices))
	for i, v := range msh.Vertices {
		vertices[i] = [3]float64{v[0], v[1], v[2]}
	}

	mp, err := Build(name, vertices, msh.EtoV)
	if err != nil {
		return nil, fmt.Errorf("building model part from %s: %w", path, err)
	}
	if log != nil {
		boundary, _ := mp.SubModelPart(BoundarySubModelPartName)
		log.Info("imported mesh",
			zap.String("file", path),
			zap.Int("nodes", mp.NumberOfNodes()),
			zap.Int("tets", len(msh.EtoV)),
			zap.Int("boundary_facets", boundary.NumberOfConditions()))
	}
	return mp, nil
}

// Build assembles a root model part from raw tetrahedral connectivity.
// Vertex indices are zero-based in etov; node and condition IDs in the
// resulting model part are one-based.
func Build(name string, vertices [][3]float64, etov [][]int) (*mesh.ModelPart, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh has no vertices")
	}

	mp := mesh.NewModelPart(name)
	for i, v := range vertices {
		mp.AddNode(mesh.NewNode(i+1, v[0], v[1], v[2]))
	}

	faces, err := ExtractBoundary(etov)
	if err != nil {
		return nil, err
	}

	boundary, err := mp.CreateSubModelPart(BoundarySubModelPartName)
	if err != nil {
		return nil, err
	}
	for i, f := range faces {
		cond := &mesh.Condition{ID: i + 1}
		for _, vtx := range f {
			if vtx < 0 || vtx >= len(vertices) {
				return nil, fmt.Errorf("boundary facet %d references vertex %d, mesh has %d vertices", i+1, vtx, len(vertices))
			}
			n, err := boundary.Root().Node(vtx + 1)
			if err != nil {
				return nil, err
			}
			cond.Nodes = append(cond.Nodes, n)
			boundary.AddNode(n)
		}
		boundary.AddCondition(cond)
	}
	return mp, nil
}
