// Package solver implements the linear solvers: direct factorizations
// (LU, QR, SVD, Cholesky), structure-exploiting solvers (diagonal,
// triangular, tridiagonal) and Krylov iterations (CG, normal CG,
// GMRES).
//
// Solvers separate structural failure from numerical failure. A
// structural problem (wrong shape, missing tag, mismatched tree) is an
// error. A numerical problem (singular matrix, stalled iteration) is a
// Result; the returned value is then structurally valid but filled
// with NaN so that code which ignores the Result fails loudly rather
// than silently.
package solver

import (
	"math"

	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Result classifies the numerical outcome of a solve.
type Result uint8

const (
	// Success means the solver produced a solution it trusts.
	Success Result = iota
	// Singular means a direct solver hit a singular (or indefinite,
	// for Cholesky) matrix.
	Singular
	// NonConvergence means an iterative solver ran out of steps before
	// reaching its tolerance.
	NonConvergence
	// Breakdown means an iterative solver produced a non-finite or
	// invalid internal quantity and could not continue.
	Breakdown
)

// String names the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Singular:
		return "singular"
	case NonConvergence:
		return "non_convergence"
	case Breakdown:
		return "breakdown"
	default:
		return "unknown"
	}
}

// Stats carries per-solve diagnostics. Direct solvers report zero
// steps and a NaN residual; iterative solvers fill both.
type Stats struct {
	Steps    int
	Residual float64
}

func directStats() Stats { return Stats{Steps: 0, Residual: math.NaN()} }

// Solver solves linear systems posed as operators over tensor trees.
type Solver interface {
	// Name identifies the solver in errors and logs.
	Name() string

	// Check validates that the operator is one this solver can handle:
	// shape requirements and required structural tags. Check failures
	// are structural and always fatal.
	Check(op operator.LinearOperator) error

	// Solve computes x with op(x) = rhs. The error covers structural
	// problems only; numerical failure is reported through the Result
	// with a NaN-filled value.
	Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error)
}

// nanSolution builds a structurally valid all-NaN solution tree.
func nanSolution(op operator.LinearOperator) *pytree.Value {
	return pytree.Map(op.InStructure(), func(spec pytree.ArraySpec) *tensor.RawTensor {
		return tensor.RawNaN(spec.Shape, spec.DType)
	})
}
