package solver

import (
	"math"

	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Diagonal solves diagonal systems by elementwise division.
type Diagonal struct{}

// Name implements Solver.
func (Diagonal) Name() string { return "diagonal" }

// Check requires a square operator tagged diagonal.
func (Diagonal) Check(op operator.LinearOperator) error {
	if err := requireSquare("diagonal", op); err != nil {
		return err
	}
	return requireTags("diagonal", op, operator.Diagonal)
}

// Solve implements Solver.
func (Diagonal) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, n, _, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	unit := op.Tags().Has(operator.UnitDiagonal)

	// A diagonal entry counts as zero when it is negligible next to the
	// largest one.
	maxAbs := 0.0
	if !unit {
		for i := 0; i < n; i++ {
			if e := math.Abs(a[i*n+i]); e > maxAbs {
				maxAbs = e
			}
		}
	}
	dt := pytree.PromotedDType(op.InStructure())
	if !dt.IsFloat() {
		dt = tensor.DefaultFloat()
	}
	tol := tensor.Eps(dt) * maxAbs

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		if unit {
			x[i] = b[i]
			continue
		}
		d := a[i*n+i]
		if math.Abs(d) <= tol {
			return nanSolution(op), Singular, directStats(), nil
		}
		x[i] = b[i] / d
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}

// Triangular solves triangular systems by substitution.
type Triangular struct{}

// Name implements Solver.
func (Triangular) Name() string { return "triangular" }

// Check requires a square operator tagged lower or upper triangular.
func (Triangular) Check(op operator.LinearOperator) error {
	if err := requireSquare("triangular", op); err != nil {
		return err
	}
	return requireTags("triangular", op,
		operator.LowerTriangular, operator.UpperTriangular)
}

// Solve implements Solver.
func (Triangular) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, n, _, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	lower := op.Tags().Has(operator.LowerTriangular)
	unit := op.Tags().Has(operator.UnitDiagonal)
	x, ok := triSolve(a, n, b, lower, unit)
	if !ok {
		return nanSolution(op), Singular, directStats(), nil
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}

// Tridiagonal solves tridiagonal systems with the Thomas algorithm in
// linear time.
type Tridiagonal struct{}

// Name implements Solver.
func (Tridiagonal) Name() string { return "tridiagonal" }

// Check requires a square operator tagged tridiagonal.
func (Tridiagonal) Check(op operator.LinearOperator) error {
	if err := requireSquare("tridiagonal", op); err != nil {
		return err
	}
	return requireTags("tridiagonal", op, operator.Tridiagonal)
}

// Solve implements Solver.
func (Tridiagonal) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, n, _, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	dl := make([]float64, n)
	d := make([]float64, n)
	du := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = a[i*n+i]
		if i > 0 {
			dl[i] = a[i*n+i-1]
		}
		if i < n-1 {
			du[i] = a[i*n+i+1]
		}
	}
	x, ok := thomasSolve(dl, d, du, b, n)
	if !ok {
		return nanSolution(op), Singular, directStats(), nil
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}
