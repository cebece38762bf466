package solver

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// checkRhs validates the right-hand side against the operator's output
// structure.
func checkRhs(op operator.LinearOperator, rhs *pytree.Value) error {
	got := pytree.StructureOf(rhs)
	if !pytree.StructuresEqualShape(op.OutStructure(), got) {
		return errors.Errorf("solver: rhs structure mismatch: got %s, want %s",
			pytree.Signature(got), pytree.Signature(op.OutStructure()))
	}
	return nil
}

// toFloat64 copies a tensor's elements into a float64 slice,
// converting integer dtypes on the way.
func toFloat64(backend tensor.Backend, t *tensor.RawTensor) []float64 {
	if !t.DType().IsFloat() {
		t = backend.Cast(t, tensor.Float64)
	}
	out := make([]float64, t.NumElements())
	for i := range out {
		out[i] = t.FloatAt(i)
	}
	return out
}

// denseSystem materializes the operator and raveled rhs as float64
// working arrays for the factorization kernels.
func denseSystem(backend tensor.Backend, op operator.LinearOperator, rhs *pytree.Value) (a []float64, rows, cols int, b []float64, err error) {
	if err = checkRhs(op, rhs); err != nil {
		return nil, 0, 0, nil, err
	}
	dense, err := op.AsDense(backend)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	rows, cols = dense.Shape()[0], dense.Shape()[1]
	a = toFloat64(backend, dense)
	b = toFloat64(backend, pytree.Ravel(backend, rhs))
	return a, rows, cols, b, nil
}

// solutionTree packs a float64 solution vector into the operator's
// input structure, casting each leaf to its declared dtype.
func solutionTree(backend tensor.Backend, op operator.LinearOperator, x []float64) (*pytree.Value, error) {
	vec := tensor.MustFromSlice(x, tensor.Shape{len(x)})
	return pytree.Unravel(backend, vec, op.InStructure())
}

// requireSquare is the Check of solvers that only handle square
// operators.
func requireSquare(name string, op operator.LinearOperator) error {
	if !operator.IsSquare(op) {
		return errors.Errorf("solver: %s requires a square operator, got %d x %d",
			name, operator.OutSize(op), operator.InSize(op))
	}
	return nil
}

// requireTags is the Check of solvers that rely on structural tags.
func requireTags(name string, op operator.LinearOperator, anyOf ...operator.Tag) error {
	for _, t := range anyOf {
		if op.Tags().Has(t) {
			return nil
		}
	}
	return errors.Errorf("solver: %s requires an operator tagged %v, got %v",
		name, anyOf, op.Tags())
}
