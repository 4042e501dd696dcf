// Package linsolve selects and wraps the dense linear solvers used for
// the interface condensation system.
package linsolve

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"fetikit/config"
)

// Solver solves A x = b for a dense system.
type Solver interface {
	Solve(a mat.Matrix, b []float64) ([]float64, error)
}

// LU is a dense LU factorization with partial pivoting.
type LU struct{}

// Solve factorizes a and solves for b.
func (LU) Solve(a mat.Matrix, b []float64) ([]float64, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("lu: matrix is %dx%d, want square", r, c)
	}
	if len(b) != r {
		return nil, fmt.Errorf("lu: rhs length %d does not match matrix size %d", len(b), r)
	}
	var lu mat.LU
	lu.Factorize(a)
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return nil, fmt.Errorf("lu solve: %w", err)
	}
	out := make([]float64, r)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// QR solves in the least-squares sense, usable for ill-conditioned or
// rectangular systems.
type QR struct{}

// Solve factorizes a and solves for b.
func (QR) Solve(a mat.Matrix, b []float64) ([]float64, error) {
	r, c := a.Dims()
	if len(b) != r {
		return nil, fmt.Errorf("qr: rhs length %d does not match matrix rows %d", len(b), r)
	}
	var qr mat.QR
	qr.Factorize(mat.DenseCopyOf(a))
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return nil, fmt.Errorf("qr solve: %w", err)
	}
	out := make([]float64, c)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// New constructs a solver by configuration name.
func New(solverType string) (Solver, error) {
	switch solverType {
	case "lu", "skyline_lu_factorization":
		return LU{}, nil
	case "qr":
		return QR{}, nil
	default:
		return nil, fmt.Errorf("unknown solver_type %q", solverType)
	}
}

// FromSettings resolves the configured solver. When no solver_type is
// specified the fastest available direct solver is used.
func FromSettings(s config.LinearSolverSettings, log *zap.Logger) (Solver, error) {
	if s.SolverType == "" {
		if log != nil {
			log.Info("no linear solver was specified, using fastest available direct solver")
		}
		return LU{}, nil
	}
	return New(s.SolverType)
}
