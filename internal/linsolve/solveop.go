package linsolve

import (
	"fmt"

	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/solver"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// linearSolveOp is the derivative rule of a linear solve, recorded on
// the tape as a single operation with inputs (A, b) and output x where
// A x = b. Differentiating through the solver's internal iterations
// would be wasteful and unstable; instead both sweeps use the implicit
// function theorem and cost one extra solve each:
//
//	reverse: solve Aᵀw = x̄, then b̄ = w and Ā = -w xᵀ
//	forward: dx = A⁻¹ (db - dA x)
//
// The extra solves reuse the same solver that produced x.
type linearSolveOp struct {
	slv  solver.Solver
	tags operator.Tag
	a    *tensor.RawTensor // dense matrix
	b    *tensor.RawTensor // raveled rhs
	x    *tensor.RawTensor // raveled solution
}

// resolve runs the op's solver against a dense matrix operator. Errors
// here mean an internally inconsistent tape and are not recoverable.
func (op *linearSolveOp) resolve(backend tensor.Backend, mat operator.LinearOperator, rhs *tensor.RawTensor) *tensor.RawTensor {
	value, _, _, err := op.slv.Solve(backend, mat, pytree.Leaf(rhs))
	if err != nil {
		panic(fmt.Sprintf("linsolve: %s solve inside derivative rule: %v", op.slv.Name(), err))
	}
	return value.Leaves()[0]
}

// Backward solves the transposed system for the cotangent: w with
// Aᵀw = x̄ gives b̄ = w and Ā = -w xᵀ.
func (op *linearSolveOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mat, err := operator.NewMatrix(op.a, op.tags)
	if err != nil {
		panic(fmt.Sprintf("linsolve: rebuilding operator inside derivative rule: %v", err))
	}
	w := op.resolve(backend, mat.Transpose(), outputGrad)

	n := w.NumElements()
	m := op.x.NumElements()
	wCol := backend.Reshape(w, tensor.Shape{n, 1})
	xRow := backend.Reshape(op.x, tensor.Shape{1, m})
	gradA := backend.MulScalar(backend.MatMul(wCol, xRow), -1)
	return []*tensor.RawTensor{gradA, w}
}

// Pushforward solves A dx = db - dA x for the tangent of the solution.
func (op *linearSolveOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	ta, tb := tangents[0], tangents[1]

	var rhs *tensor.RawTensor
	if tb != nil {
		rhs = tb
	} else {
		rhs = tensor.RawZeros(op.b.Shape(), op.b.DType())
	}
	if ta != nil {
		xCol := backend.Reshape(op.x, tensor.Shape{op.x.NumElements(), 1})
		dax := backend.Reshape(backend.MatMul(ta, xCol), rhs.Shape())
		rhs = backend.Sub(rhs, dax)
	}

	mat, err := operator.NewMatrix(op.a, op.tags)
	if err != nil {
		panic(fmt.Sprintf("linsolve: rebuilding operator inside derivative rule: %v", err))
	}
	return op.resolve(backend, mat, rhs)
}

// Inputs returns the dense matrix and the raveled rhs.
func (op *linearSolveOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.a, op.b}
}

// Output returns the raveled solution.
func (op *linearSolveOp) Output() *tensor.RawTensor { return op.x }
