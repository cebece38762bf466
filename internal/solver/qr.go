package solver

import (
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// QR solves systems of any shape by Householder QR: the least-squares
// solution for tall operators, the minimum-norm solution for wide
// ones. The default solver for non-square operators.
type QR struct{}

// Name implements Solver.
func (QR) Name() string { return "qr" }

// Check accepts any operator.
func (QR) Check(op operator.LinearOperator) error { return nil }

// Solve implements Solver.
func (QR) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, rows, cols, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	var x []float64
	ok := false
	if rows >= cols {
		// Least squares: x = R⁻¹ (Qᵀb)[:cols].
		var f *qrFact
		if f, ok = qrFactor(a, rows, cols); ok {
			c := make([]float64, rows)
			copy(c, b)
			f.applyQT(c)
			x, ok = f.solveR(c)
		}
	} else {
		// Minimum norm: factor Aᵀ = QR, then x = Q R⁻ᵀ b.
		at := make([]float64, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				at[j*rows+i] = a[i*cols+j]
			}
		}
		var f *qrFact
		if f, ok = qrFactor(at, cols, rows); ok {
			var z []float64
			if z, ok = f.solveRT(b); ok {
				x = make([]float64, cols)
				copy(x, z)
				f.applyQ(x)
			}
		}
	}
	if !ok {
		return nanSolution(op), Singular, directStats(), nil
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}
