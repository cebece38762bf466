// Package misc holds small numeric helpers shared by the operator and
// solver layers: tree-valued norms and inner products, dtype
// coercions, tolerance resolution and the forward/reverse mode
// heuristic.
package misc

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// TwoNorm computes the Euclidean norm of a tensor tree as a scalar.
//
// The empty tree (or one whose leaves have no elements) returns an
// exact zero without touching the backend's norm, so no derivative
// rule fires for it. Otherwise the norm is taken over the raveled
// vector; its derivative is zero, not NaN, when the norm itself is
// zero or infinite.
func TwoNorm(backend tensor.Backend, t *pytree.Value) *tensor.RawTensor {
	if pytree.NumElements(pytree.StructureOf(t)) == 0 {
		return tensor.RawZeros(tensor.Shape{}, tensor.DefaultFloat())
	}
	return backend.Norm(pytree.Ravel(backend, t))
}

// TreeDot computes the inner product of two tensor trees, leaf by
// leaf, accumulating in float64. The trees must have the same number
// of leaves; corresponding leaves must have equal element counts.
func TreeDot(backend tensor.Backend, a, b *pytree.Value) (*tensor.RawTensor, error) {
	al, bl := a.Leaves(), b.Leaves()
	if len(al) != len(bl) {
		return nil, errors.Errorf("misc: tree dot of trees with %d and %d leaves", len(al), len(bl))
	}
	if len(al) == 0 {
		return tensor.RawZeros(tensor.Shape{}, tensor.DefaultFloat()), nil
	}
	total := backend.Dot(al[0], bl[0])
	for i := 1; i < len(al); i++ {
		total = backend.Add(total, backend.Dot(al[i], bl[i]))
	}
	return total, nil
}

// TreeWhere selects leafwise between two trees of identical structure
// by a scalar Bool predicate.
func TreeWhere(backend tensor.Backend, pred *tensor.RawTensor, x, y *pytree.Value) (*pytree.Value, error) {
	return pytree.Map2(x, y, func(a, b *tensor.RawTensor) *tensor.RawTensor {
		return backend.Where(pred, a, b)
	})
}

// MaxNorm returns the maximum absolute element across all leaves, as
// a float64. Empty trees and empty leaves contribute zero.
func MaxNorm(backend tensor.Backend, t *pytree.Value) float64 {
	max := 0.0
	for _, leaf := range t.Leaves() {
		if leaf.NumElements() == 0 {
			continue
		}
		m := backend.MaxAll(backend.Abs(leaf)).FloatAt(0)
		if m > max {
			max = m
		}
	}
	return max
}

// InexactAsArray promotes a tensor to the default float dtype if it is
// not already floating point. The cast goes through the backend, so it
// stays differentiable under a recording backend.
func InexactAsArray(backend tensor.Backend, t *tensor.RawTensor) *tensor.RawTensor {
	if t.DType().IsFloat() {
		return t
	}
	return backend.Cast(t, tensor.DefaultFloat())
}

// InexactTree applies InexactAsArray to every leaf.
func InexactTree(backend tensor.Backend, t *pytree.Value) *pytree.Value {
	return pytree.Map(t, func(leaf *tensor.RawTensor) *tensor.RawTensor {
		return InexactAsArray(backend, leaf)
	})
}
