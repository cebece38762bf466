// Package linsolve dispatches linear solves: it validates the system,
// picks a solver from the operator's structural tags when none is
// given, and makes the solve differentiable when run under a recording
// backend.
package linsolve

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/resolvent-ml/resolvent/internal/autodiff"
	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/solver"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// SolveResult bundles the solution tree with the numerical outcome.
type SolveResult struct {
	// Value has the operator's input structure. On a numerical
	// failure with throwing disabled it is filled with NaN.
	Value *pytree.Value

	// Result classifies the numerical outcome.
	Result solver.Result

	// Stats carries solver diagnostics.
	Stats solver.Stats
}

type options struct {
	solver solver.Solver
	throw  bool
}

// Option configures a solve.
type Option func(*options)

// WithSolver overrides the tag-based solver choice.
func WithSolver(s solver.Solver) Option {
	return func(o *options) { o.solver = s }
}

// NoThrow reports numerical failure through SolveResult.Result instead
// of an error. Structural failures remain errors regardless.
func NoThrow() Option {
	return func(o *options) { o.throw = false }
}

// defaultSolver picks the cheapest solver the operator's tags allow:
// specialized structure first, then Cholesky for symmetric definite
// operators, LU for general square ones and QR for everything else.
func defaultSolver(op operator.LinearOperator) solver.Solver {
	tags := op.Tags()
	switch {
	case tags.Has(operator.Diagonal):
		return solver.Diagonal{}
	case tags.Has(operator.Tridiagonal):
		return solver.Tridiagonal{}
	case tags.Has(operator.LowerTriangular) || tags.Has(operator.UpperTriangular):
		return solver.Triangular{}
	case tags.Has(operator.Symmetric) &&
		(tags.Has(operator.PositiveSemidefinite) || tags.Has(operator.NegativeSemidefinite)):
		return solver.Cholesky{}
	case operator.IsSquare(op):
		return solver.LU{}
	default:
		return solver.QR{}
	}
}

// LinearSolve solves op(x) = rhs.
//
// The right-hand side must match the operator's output structure;
// integer leaves are promoted to the default float first. Numerical
// failure (singular matrix, stalled iteration) is an error by default
// and a Result with NoThrow; structural failure is always an error.
//
// Under a recording backend the solve itself is recorded as one tape
// operation carrying the implicit-function-theorem derivative rule, so
// gradients flow to the operator's data and the right-hand side at the
// cost of one extra solve per differentiation sweep.
func LinearSolve(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value, opts ...Option) (*SolveResult, error) {
	o := options{throw: true}
	for _, apply := range opts {
		apply(&o)
	}

	got := pytree.StructureOf(rhs)
	if !pytree.StructuresEqualShape(op.OutStructure(), got) {
		return nil, errors.Wrapf(ErrStructureMismatch, "got %s, want %s",
			pytree.Signature(got), pytree.Signature(op.OutStructure()))
	}
	rhs = misc.InexactTree(backend, rhs)

	s := o.solver
	if s == nil {
		s = defaultSolver(op)
	}
	if err := s.Check(op); err != nil {
		return nil, err
	}

	var (
		value  *pytree.Value
		result solver.Result
		stats  solver.Stats
		err    error
	)
	if rec, ok := backend.(autodiff.Recorder); ok && rec.Tape().IsRecording() {
		value, result, stats, err = solveRecorded(rec, s, op, rhs)
	} else {
		value, result, stats, err = s.Solve(backend, op, rhs)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "linsolve: %s", s.Name())
	}

	klog.V(1).Infof("linsolve: %s -> %s (steps=%d, residual=%g)",
		s.Name(), result, stats.Steps, stats.Residual)
	if result != solver.Success && o.throw {
		return nil, errors.Wrapf(resultErr(result), "linsolve: %s after %d steps", s.Name(), stats.Steps)
	}
	return &SolveResult{Value: value, Result: result, Stats: stats}, nil
}

// solveRecorded runs the differentiable path: materialize the operator
// and rhs through the recording backend, solve eagerly on the inner
// backend, and record a single linearSolveOp bridging the two.
func solveRecorded(rec autodiff.Recorder, s solver.Solver, op operator.LinearOperator, rhs *pytree.Value) (*pytree.Value, solver.Result, solver.Stats, error) {
	// Recorded: dense A and raveled b stay tape-connected to whatever
	// the operator and rhs were built from.
	dense, err := op.AsDense(rec)
	if err != nil {
		return nil, solver.Success, solver.Stats{}, err
	}
	dense = misc.InexactAsArray(rec, dense)
	bvec := pytree.Ravel(rec, rhs)

	// Eager: the solve itself runs on the inner backend, off the tape.
	inner := rec.InnerBackend()
	mat, err := operator.NewMatrix(dense, op.Tags())
	if err != nil {
		return nil, solver.Success, solver.Stats{}, err
	}
	value, result, stats, err := s.Solve(inner, mat, pytree.Leaf(bvec))
	if err != nil {
		return nil, solver.Success, solver.Stats{}, err
	}
	xvec := value.Leaves()[0]

	rec.Tape().Record(&linearSolveOp{
		slv:  s,
		tags: op.Tags(),
		a:    dense,
		b:    bvec,
		x:    xvec,
	})

	// Recorded: unraveling routes gradients from the solution leaves
	// back through xvec.
	out, err := pytree.Unravel(rec, xvec, op.InStructure())
	if err != nil {
		return nil, solver.Success, solver.Stats{}, err
	}
	return out, result, stats, nil
}
