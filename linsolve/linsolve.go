// Copyright 2026 The Resolvent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linsolve solves linear systems posed as operators over
// tensor trees, with autodiff support.
//
// An operator wraps a dense matrix, a tree of blocks or an opaque
// linear function; structural tags (symmetric, triangular, diagonal,
// tridiagonal, definite) let the dispatcher pick a cheap solver and
// let specialized solvers reject operators they cannot handle. Solves
// run under a recording autodiff backend are differentiable with
// respect to both the operator and the right-hand side, at the cost of
// one extra solve per differentiation sweep.
//
// Example:
//
//	backend := cpu.New()
//	a := tensor.MustFromSlice([]float64{1, 5, -2, -2}, tensor.Shape{2, 2})
//	op, _ := linsolve.NewMatrix(a, 0)
//	rhs := pytree.Leaf(tensor.MustFromSlice([]float64{3, 4}, tensor.Shape{2}))
//
//	res, err := linsolve.LinearSolve(backend, op, rhs)
//	// res.Value is [-3.25, 1.25]
package linsolve

import (
	"github.com/resolvent-ml/resolvent/internal/linsolve"
	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/solver"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Operators.

// LinearOperator represents a linear map between tensor trees. The
// interface is closed; construct operators with NewMatrix, NewPyTree,
// NewFunction and the WithTags view.
type LinearOperator = operator.LinearOperator

// Tag is a bitmask of structural properties of an operator.
type Tag = operator.Tag

// Structural tags. Tags are trusted, never verified against the data.
const (
	Symmetric            Tag = operator.Symmetric
	LowerTriangular      Tag = operator.LowerTriangular
	UpperTriangular      Tag = operator.UpperTriangular
	DiagonalTag          Tag = operator.Diagonal
	TridiagonalTag       Tag = operator.Tridiagonal
	PositiveSemidefinite Tag = operator.PositiveSemidefinite
	NegativeSemidefinite Tag = operator.NegativeSemidefinite
	UnitDiagonal         Tag = operator.UnitDiagonal
)

// MatrixLinearOperator wraps a dense 2-D tensor.
type MatrixLinearOperator = operator.MatrixLinearOperator

// PyTreeLinearOperator represents the map as a tree of dense blocks.
type PyTreeLinearOperator = operator.PyTreeLinearOperator

// FunctionLinearOperator wraps an opaque linear function.
type FunctionLinearOperator = operator.FunctionLinearOperator

// LinearFunc is the function form of a linear map; it must route all
// arithmetic through the given backend.
type LinearFunc = operator.LinearFunc

// NewMatrix creates an operator from a dense 2-D tensor.
func NewMatrix(matrix *tensor.RawTensor, tags Tag) (*MatrixLinearOperator, error) {
	return operator.NewMatrix(matrix, tags)
}

// NewPyTree creates an operator from a tree of blocks and its output
// structure; the input structure is inferred from the blocks.
func NewPyTree(blocks *pytree.Value, outStructure *pytree.Structure, tags Tag) (*PyTreeLinearOperator, error) {
	return operator.NewPyTree(blocks, outStructure, tags)
}

// NewFunction creates an operator from a linear function and the
// structure of its inputs; the output structure is probed by applying
// the function to zeros (and cached).
func NewFunction(backend tensor.Backend, fn LinearFunc, inStructure *pytree.Structure, tags Tag) (*FunctionLinearOperator, error) {
	return operator.NewFunction(backend, fn, inStructure, tags)
}

// WithTags returns a view of op carrying the given tags instead of its
// own.
func WithTags(op LinearOperator, tags Tag) LinearOperator {
	return operator.WithTags(op, tags)
}

// InSize returns the operator's input dimension in elements.
func InSize(op LinearOperator) int { return operator.InSize(op) }

// OutSize returns the operator's output dimension in elements.
func OutSize(op LinearOperator) int { return operator.OutSize(op) }

// IsSquare reports whether the operator's spaces have equal dimension.
func IsSquare(op LinearOperator) bool { return operator.IsSquare(op) }

// Solvers.

// Solver solves linear systems; pass one to WithSolver to override the
// tag-based default.
type Solver = solver.Solver

// Result classifies the numerical outcome of a solve.
type Result = solver.Result

// Result constants.
const (
	Success        Result = solver.Success
	Singular       Result = solver.Singular
	NonConvergence Result = solver.NonConvergence
	Breakdown      Result = solver.Breakdown
)

// Stats carries per-solve diagnostics.
type Stats = solver.Stats

// LU solves square systems by pivoted Gaussian elimination.
func LU() Solver { return solver.LU{} }

// QR solves systems of any shape: least squares for tall operators,
// minimum norm for wide ones.
func QR() Solver { return solver.QR{} }

// SVD solves systems of any shape through the pseudoinverse with the
// default singular value cutoff; see SVDWithRcond to override it.
func SVD() Solver { return solver.NewSVD() }

// SVDWithRcond is SVD with an explicit relative cutoff. A negative
// cutoff resolves to machine epsilon.
func SVDWithRcond(rcond float64) Solver { return solver.SVD{Rcond: rcond} }

// Cholesky solves symmetric definite systems.
func Cholesky() Solver { return solver.Cholesky{} }

// Diagonal solves diagonal systems in linear time.
func Diagonal() Solver { return solver.Diagonal{} }

// Triangular solves triangular systems by substitution.
func Triangular() Solver { return solver.Triangular{} }

// Tridiagonal solves tridiagonal systems with the Thomas algorithm.
func Tridiagonal() Solver { return solver.Tridiagonal{} }

// CG solves symmetric definite systems by conjugate gradients.
// maxSteps <= 0 means ten times the system size.
func CG(rtol, atol float64, maxSteps int) Solver {
	return solver.NewCG(rtol, atol, maxSteps)
}

// NormalCG solves arbitrary systems by CG on the normal equations.
func NormalCG(rtol, atol float64, maxSteps int) Solver {
	return solver.NewNormalCG(rtol, atol, maxSteps)
}

// GMRES solves square systems by restarted GMRES. restart <= 0 means
// min(system size, 30); maxSteps <= 0 means ten times the system size.
func GMRES(rtol, atol float64, restart, maxSteps int) Solver {
	return solver.NewGMRES(rtol, atol, restart, maxSteps)
}

// Dispatch.

// SolveResult bundles the solution tree with the numerical outcome.
type SolveResult = linsolve.SolveResult

// Option configures a solve.
type Option = linsolve.Option

// WithSolver overrides the tag-based solver choice.
func WithSolver(s Solver) Option { return linsolve.WithSolver(s) }

// NoThrow reports numerical failure through SolveResult.Result instead
// of an error.
func NoThrow() Option { return linsolve.NoThrow() }

// Sentinel errors; test with errors.Is.
var (
	ErrStructureMismatch = linsolve.ErrStructureMismatch
	ErrSingular          = linsolve.ErrSingular
	ErrNonConvergence    = linsolve.ErrNonConvergence
	ErrBreakdown         = linsolve.ErrBreakdown
)

// LinearSolve solves op(x) = rhs. See the package documentation for
// solver selection, failure handling and differentiation.
func LinearSolve(backend tensor.Backend, op LinearOperator, rhs *pytree.Value, opts ...Option) (*SolveResult, error) {
	return linsolve.LinearSolve(backend, op, rhs, opts...)
}

// Tree helpers.

// TwoNorm computes the Euclidean norm of a tensor tree as a scalar.
// Its derivative is zero, not NaN, at zero and infinity; the empty
// tree returns an exact zero.
func TwoNorm(backend tensor.Backend, t *pytree.Value) *tensor.RawTensor {
	return misc.TwoNorm(backend, t)
}

// TreeDot computes the inner product of two tensor trees.
func TreeDot(backend tensor.Backend, a, b *pytree.Value) (*tensor.RawTensor, error) {
	return misc.TreeDot(backend, a, b)
}

// TreeWhere selects leafwise between two trees by a scalar Bool
// predicate.
func TreeWhere(backend tensor.Backend, pred *tensor.RawTensor, x, y *pytree.Value) (*pytree.Value, error) {
	return misc.TreeWhere(backend, pred, x, y)
}

// MaxNorm returns the maximum absolute element across all leaves.
func MaxNorm(backend tensor.Backend, t *pytree.Value) float64 {
	return misc.MaxNorm(backend, t)
}
