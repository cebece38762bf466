package solver

import (
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// LU solves square systems by Gaussian elimination with partial
// pivoting. The default solver for square operators without special
// structure.
type LU struct{}

// Name implements Solver.
func (LU) Name() string { return "lu" }

// Check requires a square operator.
func (LU) Check(op operator.LinearOperator) error {
	return requireSquare("lu", op)
}

// Solve implements Solver.
func (LU) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, n, _, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	piv, ok := luFactor(a, n)
	if !ok {
		return nanSolution(op), Singular, directStats(), nil
	}
	x := luSolve(a, piv, b, n)
	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}
