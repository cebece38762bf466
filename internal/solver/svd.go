package solver

import (
	"math"

	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// SVD solves systems of any shape through the pseudoinverse, with
// singular values at or below a relative cutoff treated as zero. The
// most robust and most expensive of the direct solvers; it never
// reports a numerical failure.
type SVD struct {
	// Rcond is the relative singular value cutoff. NaN (the NewSVD
	// default) resolves to eps * max(rows, cols); a negative value
	// resolves to eps.
	Rcond float64
}

// NewSVD creates an SVD solver with the default cutoff.
func NewSVD() SVD { return SVD{Rcond: math.NaN()} }

// Name implements Solver.
func (SVD) Name() string { return "svd" }

// Check accepts any operator.
func (SVD) Check(op operator.LinearOperator) error { return nil }

// Solve implements Solver.
func (s SVD) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	a, rows, cols, b, err := denseSystem(backend, op, rhs)
	if err != nil {
		return nil, Success, Stats{}, err
	}

	// One-sided Jacobi wants at least as many rows as columns; run on
	// the transpose otherwise and swap the factors back.
	var u, sv, v []float64
	if rows >= cols {
		u, sv, v = jacobiSVD(a, rows, cols)
	} else {
		at := make([]float64, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				at[j*rows+i] = a[i*cols+j]
			}
		}
		v, sv, u = jacobiSVD(at, cols, rows)
	}
	k := len(sv)

	smax := 0.0
	for _, e := range sv {
		if e > smax {
			smax = e
		}
	}
	dt := pytree.PromotedDType(op.InStructure())
	if !dt.IsFloat() {
		dt = tensor.DefaultFloat()
	}
	cutoff := misc.ResolveRcond(s.Rcond, rows, cols, dt) * smax

	// x = V diag(1/s) Uᵀ b, dropping components at or below the cutoff.
	ub := make([]float64, k)
	for j := 0; j < k; j++ {
		if sv[j] <= cutoff {
			continue
		}
		var dot float64
		for i := 0; i < rows; i++ {
			dot += u[i*k+j] * b[i]
		}
		ub[j] = dot / sv[j]
	}
	x := make([]float64, cols)
	for i := 0; i < cols; i++ {
		var dot float64
		for j := 0; j < k; j++ {
			dot += v[i*k+j] * ub[j]
		}
		x[i] = dot
	}

	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	return value, Success, directStats(), nil
}
