// Package coupling drives two independently time-stepped solver domains
// toward a consistent joint state. The Coupler advances and solves an
// origin domain (index 0) and a destination domain (index 1), the latter
// subcycled by an integer timestep ratio, and hands effective stiffness
// information to a coupling utility that equilibrates the shared
// interface after every destination substep.
package coupling

import (
	"gonum.org/v1/gonum/mat"

	"fetikit/config"
	"fetikit/linsolve"
	"fetikit/mesh"
)

// SolverStrategy exposes the assembled system matrix of an implicitly
// integrated domain. Solver internals stay behind this interface.
type SolverStrategy interface {
	SystemMatrix() mat.Matrix
}

// SolverWrapper is one independently time-stepped physical subdomain.
// All calls are blocking; failures abort the coupled step.
type SolverWrapper interface {
	// AdvanceInTime advances the wrapped solver and returns its new
	// time, or 0 if the solver does not track time.
	AdvanceInTime(t float64) float64

	InitializeSolutionStep() error
	Predict() error
	SolveSolutionStep() (bool, error)
	FinalizeSolutionStep() error
	OutputSolutionStep() error

	// ModelPart resolves a named region of the wrapped model.
	ModelPart(name string) (*mesh.ModelPart, error)

	// Strategy returns the effective-stiffness provider of the wrapped
	// solver. Wrappers for solvers that cannot expose a system matrix
	// return an error; for implicit domains this fails the coupler at
	// wiring time rather than at first use.
	Strategy() (SolverStrategy, error)
}

// Mapper is the correspondence operator between two non-matching
// interface discretizations, built once before time stepping begins.
type Mapper interface {
	InterfaceModelPartOrigin() *mesh.ModelPart
	InterfaceModelPartDestination() *mesh.ModelPart
	MappingMatrix() mat.Matrix
}

// MapperFactory creates a mapper for an origin/destination region pair.
type MapperFactory interface {
	CreateMapper(origin, destination *mesh.ModelPart, settings config.MapperSettings) (Mapper, error)
}

// CouplingUtility computes and applies the interface forces (Lagrange
// multipliers) that reconcile the two domains after independent solves.
// The coupler owns the call order: stiffness for a substep is always
// submitted before EquilibrateDomains observes it.
type CouplingUtility interface {
	SetOriginAndDestinationDomains(origin, destination *mesh.ModelPart) error
	SetLinearSolver(solver linsolve.Solver)
	SetMappingMatrix(m mat.Matrix) error
	SetOriginInitialKinematics() error
	SetEffectiveStiffnessMatrixImplicit(k mat.Matrix, domainIndex int) error
	SetEffectiveStiffnessMatrixExplicit(domainIndex int)
	EquilibrateDomains() error
}

// UtilityFactory builds the coupling utility from the mapper-space
// interface model parts and the coupling settings.
type UtilityFactory func(interfaceOrigin, interfaceDestination *mesh.ModelPart, settings config.CouplingSettings) (CouplingUtility, error)

// OutputWriter is a post-processing sink kept synchronized with the
// solution steps (e.g. a VTK writer). Writing itself is out of scope.
type OutputWriter interface {
	InitializeSolutionStep() error
	FinalizeSolutionStep() error
	OutputSolutionStep() error
}
