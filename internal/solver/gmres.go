package solver

import (
	"math"

	"k8s.io/klog/v2"

	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// GMRES solves square systems by restarted GMRES: Arnoldi with
// modified Gram-Schmidt and Givens rotations on the Hessenberg matrix,
// restarting after a fixed subspace size to bound memory.
type GMRES struct {
	Rtol, Atol float64
	// Restart is the Krylov subspace size per cycle; non-positive
	// means min(system size, 30).
	Restart int
	// MaxSteps bounds the total matrix-vector products; non-positive
	// means ten times the system size.
	MaxSteps int
}

// NewGMRES creates a GMRES solver with the given tolerances.
func NewGMRES(rtol, atol float64, restart, maxSteps int) GMRES {
	return GMRES{Rtol: rtol, Atol: atol, Restart: restart, MaxSteps: maxSteps}
}

// Name implements Solver.
func (GMRES) Name() string { return "gmres" }

// Check requires a square operator.
func (GMRES) Check(op operator.LinearOperator) error {
	return requireSquare("gmres", op)
}

// Solve implements Solver.
func (g GMRES) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	if err := checkRhs(op, rhs); err != nil {
		return nil, Success, Stats{}, err
	}
	n := operator.InSize(op)
	restart := g.Restart
	if restart <= 0 {
		restart = n
		if restart > 30 {
			restart = 30
		}
	}
	maxSteps := g.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10 * n
	}

	apply := func(v []float64) ([]float64, error) {
		vec := tensor.MustFromSlice(v, tensor.Shape{n})
		in, err := pytree.Unravel(backend, vec, op.InStructure())
		if err != nil {
			return nil, err
		}
		out, err := op.Mv(backend, in)
		if err != nil {
			return nil, err
		}
		return toFloat64(backend, pytree.Ravel(backend, out)), nil
	}

	b := toFloat64(backend, pytree.Ravel(backend, rhs))
	bnorm := vecNorm(b)
	threshold := math.Max(g.Atol, g.Rtol*bnorm)

	x := make([]float64, n)
	residual := bnorm
	steps := 0

	for steps < maxSteps && residual > threshold {
		// r = b - A x
		ax, err := apply(x)
		if err != nil {
			return nil, Success, Stats{}, err
		}
		r := make([]float64, n)
		for i := range r {
			r[i] = b[i] - ax[i]
		}
		beta := vecNorm(r)
		if beta <= threshold {
			residual = beta
			break
		}
		if !isFinite(beta) {
			return nanSolution(op), Breakdown, Stats{Steps: steps, Residual: residual}, nil
		}

		// Arnoldi basis and Hessenberg column storage for this cycle.
		v := make([][]float64, restart+1)
		v[0] = vecScale(r, 1/beta)
		h := make([][]float64, restart+1)
		for i := range h {
			h[i] = make([]float64, restart)
		}
		cs := make([]float64, restart)
		sn := make([]float64, restart)
		gvec := make([]float64, restart+1)
		gvec[0] = beta

		k := 0
		for ; k < restart && steps < maxSteps; k++ {
			w, err := apply(v[k])
			if err != nil {
				return nil, Success, Stats{}, err
			}
			steps++
			for i := 0; i <= k; i++ {
				h[i][k] = vecDot(w, v[i])
				for j := range w {
					w[j] -= h[i][k] * v[i][j]
				}
			}
			h[k+1][k] = vecNorm(w)
			if !isFinite(h[k+1][k]) {
				return nanSolution(op), Breakdown, Stats{Steps: steps, Residual: residual}, nil
			}
			happy := h[k+1][k] <= 1e-14*beta
			if !happy {
				v[k+1] = vecScale(w, 1/h[k+1][k])
			}

			// Apply stored Givens rotations, then a new one to zero
			// the subdiagonal entry.
			for i := 0; i < k; i++ {
				h[i][k], h[i+1][k] = cs[i]*h[i][k]+sn[i]*h[i+1][k],
					-sn[i]*h[i][k]+cs[i]*h[i+1][k]
			}
			denom := math.Hypot(h[k][k], h[k+1][k])
			if denom == 0 {
				cs[k], sn[k] = 1, 0
			} else {
				cs[k], sn[k] = h[k][k]/denom, h[k+1][k]/denom
			}
			h[k][k] = cs[k]*h[k][k] + sn[k]*h[k+1][k]
			h[k+1][k] = 0
			gvec[k+1] = -sn[k] * gvec[k]
			gvec[k] = cs[k] * gvec[k]

			residual = math.Abs(gvec[k+1])
			if residual <= threshold || happy {
				k++
				break
			}
		}

		// Solve the k x k triangular system and update the iterate.
		y := make([]float64, k)
		for i := k - 1; i >= 0; i-- {
			s := gvec[i]
			for j := i + 1; j < k; j++ {
				s -= h[i][j] * y[j]
			}
			if h[i][i] == 0 {
				return nanSolution(op), Breakdown, Stats{Steps: steps, Residual: residual}, nil
			}
			y[i] = s / h[i][i]
		}
		for j := 0; j < k; j++ {
			for i := range x {
				x[i] += y[j] * v[j][i]
			}
		}
		klog.V(2).Infof("gmres: cycle of %d steps, residual %g", k, residual)
	}

	stats := Stats{Steps: steps, Residual: residual}
	value, err := solutionTree(backend, op, x)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	if residual > threshold {
		return value, NonConvergence, stats, nil
	}
	return value, Success, stats, nil
}

func vecNorm(v []float64) float64 {
	var s float64
	for _, e := range v {
		s += e * e
	}
	return math.Sqrt(s)
}

func vecDot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func vecScale(v []float64, alpha float64) []float64 {
	out := make([]float64, len(v))
	for i, e := range v {
		out[i] = alpha * e
	}
	return out
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
