package solver

import (
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// treeDotFloat is the tree inner product as a float64.
func treeDotFloat(backend tensor.Backend, a, b *pytree.Value) (float64, error) {
	d, err := misc.TreeDot(backend, a, b)
	if err != nil {
		return 0, err
	}
	return d.FloatAt(0), nil
}

// treeAxpy computes y + alpha*x leafwise.
func treeAxpy(backend tensor.Backend, alpha float64, x, y *pytree.Value) (*pytree.Value, error) {
	return pytree.Map2(y, x, func(yl, xl *tensor.RawTensor) *tensor.RawTensor {
		return backend.Add(yl, backend.MulScalar(xl, alpha))
	})
}

func treeZerosLike(t *pytree.Value) *pytree.Value {
	return pytree.ZerosOf(pytree.StructureOf(t))
}

// cgLoop runs conjugate gradients on the tree-valued system
// apply(x) = b, starting from zero. apply must be symmetric positive
// definite on the space spanned by the iterates.
func cgLoop(backend tensor.Backend, apply func(*pytree.Value) (*pytree.Value, error), b *pytree.Value, rtol, atol float64, maxSteps int) (*pytree.Value, Result, Stats, error) {
	bb, err := treeDotFloat(backend, b, b)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	threshold := math.Max(atol, rtol*math.Sqrt(bb))

	x := treeZerosLike(b)
	r := b
	p := r
	rr := bb

	steps := 0
	for steps < maxSteps && math.Sqrt(rr) > threshold {
		ap, err := apply(p)
		if err != nil {
			return nil, Success, Stats{}, err
		}
		pap, err := treeDotFloat(backend, p, ap)
		if err != nil {
			return nil, Success, Stats{}, err
		}
		// A loss of positive definiteness means the Krylov recurrence
		// is no longer valid.
		if pap <= 0 || math.IsNaN(pap) || math.IsInf(pap, 0) {
			return pytree.Map(x, func(l *tensor.RawTensor) *tensor.RawTensor {
				return tensor.RawNaN(l.Shape(), l.DType())
			}), Breakdown, Stats{Steps: steps, Residual: math.Sqrt(rr)}, nil
		}
		alpha := rr / pap
		if x, err = treeAxpy(backend, alpha, p, x); err != nil {
			return nil, Success, Stats{}, err
		}
		if r, err = treeAxpy(backend, -alpha, ap, r); err != nil {
			return nil, Success, Stats{}, err
		}
		rr2, err := treeDotFloat(backend, r, r)
		if err != nil {
			return nil, Success, Stats{}, err
		}
		if math.IsNaN(rr2) || math.IsInf(rr2, 0) {
			return pytree.Map(x, func(l *tensor.RawTensor) *tensor.RawTensor {
				return tensor.RawNaN(l.Shape(), l.DType())
			}), Breakdown, Stats{Steps: steps, Residual: math.Sqrt(rr)}, nil
		}
		beta := rr2 / rr
		scaled := pytree.Map(p, func(l *tensor.RawTensor) *tensor.RawTensor {
			return backend.MulScalar(l, beta)
		})
		if p, err = pytree.Map2(r, scaled, backend.Add); err != nil {
			return nil, Success, Stats{}, err
		}
		rr = rr2
		steps++
	}

	residual := math.Sqrt(rr)
	stats := Stats{Steps: steps, Residual: residual}
	if residual > threshold {
		return x, NonConvergence, stats, nil
	}
	return x, Success, stats, nil
}

// CG solves symmetric definite systems by conjugate gradients, working
// directly on tensor trees with no dense materialization. Negative
// semidefinite operators are handled by negating the system.
type CG struct {
	Rtol, Atol float64
	// MaxSteps bounds the iteration; non-positive means ten times the
	// system size.
	MaxSteps int
}

// NewCG creates a CG solver with the given tolerances.
func NewCG(rtol, atol float64, maxSteps int) CG {
	return CG{Rtol: rtol, Atol: atol, MaxSteps: maxSteps}
}

// Name implements Solver.
func (CG) Name() string { return "cg" }

// Check requires a square operator tagged symmetric and semidefinite.
func (CG) Check(op operator.LinearOperator) error {
	if err := requireSquare("cg", op); err != nil {
		return err
	}
	if err := requireTags("cg", op, operator.Symmetric); err != nil {
		return err
	}
	return requireTags("cg", op,
		operator.PositiveSemidefinite, operator.NegativeSemidefinite)
}

// Solve implements Solver.
func (c CG) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	if err := checkRhs(op, rhs); err != nil {
		return nil, Success, Stats{}, err
	}
	maxSteps := c.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10 * operator.InSize(op)
	}

	negate := op.Tags().Has(operator.NegativeSemidefinite)
	apply := func(v *pytree.Value) (*pytree.Value, error) {
		out, err := op.Mv(backend, v)
		if err != nil || !negate {
			return out, err
		}
		return pytree.Map(out, func(l *tensor.RawTensor) *tensor.RawTensor {
			return backend.MulScalar(l, -1)
		}), nil
	}
	b := rhs
	if negate {
		b = pytree.Map(rhs, func(l *tensor.RawTensor) *tensor.RawTensor {
			return backend.MulScalar(l, -1)
		})
	}

	value, result, stats, err := cgLoop(backend, apply, b, c.Rtol, c.Atol, maxSteps)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	klog.V(2).Infof("cg: %s after %d steps, residual %g", result, stats.Steps, stats.Residual)
	return value, result, stats, nil
}

// NormalCG solves arbitrary systems by running CG on the normal
// equations AᵀA x = Aᵀb. It accepts non-square and untagged operators
// at the cost of squaring the condition number.
type NormalCG struct {
	Rtol, Atol float64
	MaxSteps   int
}

// NewNormalCG creates a NormalCG solver with the given tolerances.
func NewNormalCG(rtol, atol float64, maxSteps int) NormalCG {
	return NormalCG{Rtol: rtol, Atol: atol, MaxSteps: maxSteps}
}

// Name implements Solver.
func (NormalCG) Name() string { return "normal_cg" }

// Check accepts any operator.
func (NormalCG) Check(op operator.LinearOperator) error { return nil }

// Solve implements Solver.
func (n NormalCG) Solve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, Result, Stats, error) {
	if err := checkRhs(op, rhs); err != nil {
		return nil, Success, Stats{}, err
	}
	maxSteps := n.MaxSteps
	if maxSteps <= 0 {
		size := operator.InSize(op)
		if s := operator.OutSize(op); s > size {
			size = s
		}
		maxSteps = 10 * size
	}

	opT := op.Transpose()
	apply := func(v *pytree.Value) (*pytree.Value, error) {
		av, err := op.Mv(backend, v)
		if err != nil {
			return nil, err
		}
		return opT.Mv(backend, av)
	}
	b, err := opT.Mv(backend, rhs)
	if err != nil {
		return nil, Success, Stats{}, errors.Wrap(err, "normal_cg: forming normal rhs")
	}

	value, result, stats, err := cgLoop(backend, apply, b, n.Rtol, n.Atol, maxSteps)
	if err != nil {
		return nil, Success, Stats{}, err
	}
	klog.V(2).Infof("normal_cg: %s after %d steps, residual %g", result, stats.Steps, stats.Residual)
	return value, result, stats, nil
}
