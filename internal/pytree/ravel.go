package pytree

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Ravel flattens a tensor tree into a single 1-D vector. Leaves are
// reshaped flat, promoted to the tree's common dtype and concatenated
// in canonical order. All steps go through the backend, so under a
// recording backend the result stays connected to the leaves.
//
// The empty tree ravels to a zero-length vector of the default float.
func Ravel(backend tensor.Backend, t *Value) *tensor.RawTensor {
	leaves := t.Leaves()
	if len(leaves) == 0 {
		return tensor.RawZeros(tensor.Shape{0}, tensor.DefaultFloat())
	}
	dt := PromotedDType(StructureOf(t))
	flat := make([]*tensor.RawTensor, len(leaves))
	for i, leaf := range leaves {
		v := backend.Reshape(leaf, tensor.Shape{leaf.NumElements()})
		if v.DType() != dt {
			v = backend.Cast(v, dt)
		}
		flat[i] = v
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return backend.Cat(flat, 0)
}

// Unravel splits a 1-D vector back into a tree with the given
// structure, casting each segment to its leaf dtype. It is the inverse
// of Ravel and is likewise differentiable under a recording backend.
func Unravel(backend tensor.Backend, vec *tensor.RawTensor, s *Structure) (*Value, error) {
	if vec.Shape().Rank() != 1 {
		return nil, errors.Errorf("pytree: expected 1-D vector, got shape %v", vec.Shape())
	}
	want := NumElements(s)
	if vec.NumElements() != want {
		return nil, errors.Errorf("pytree: vector has %d elements, structure needs %d",
			vec.NumElements(), want)
	}

	specs := s.Leaves()
	leaves := make([]*tensor.RawTensor, len(specs))
	offset := 0
	for i, spec := range specs {
		n := spec.Shape.NumElements()
		seg := backend.Narrow(vec, 0, offset, n)
		seg = backend.Reshape(seg, spec.Shape)
		if seg.DType() != spec.DType {
			seg = backend.Cast(seg, spec.DType)
		}
		leaves[i] = seg
		offset += n
	}
	return Unflatten(s.Def(), leaves)
}
