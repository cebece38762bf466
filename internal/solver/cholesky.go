package solver

import (
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Cholesky solves symmetric definite systems via the Cholesky
// factorization. Negative semidefinite operators are handled by
// factoring the negated matrix and negating the solution.
type Cholesky struct{}

// Name implements Solver.
func (Cholesky) Name() string { return "cholesky" }

// Check requires a square operator tagged symmetric and semidefinite.
func (Cholesky) Check(op operator.LinearOperator) error {
	if err := requireSquare("cholesky", op); err != nil {
		return err
	}
	if err := requireTags("cholesky", op, operator.Symmetric); err != nil {
		return err
	}
	return requireTags("cholesky", op,
		operator.PositiveSemidefinite, operator.NegativeSemidefinite)
}

// Solve implements Solver.
func (Cholesky) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, n, _, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	negate := op.Tags().Has(operator.NegativeSemidefinite)
	if negate {
		for i := range a {
			a[i] = -a[i]
		}
	}
	if !cholFactor(a, n) {
		return nanSolution(op), Singular, directStats(), nil
	}
	x := cholSolve(a, b, n)
	if negate {
		for i := range x {
			x[i] = -x[i]
		}
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}
