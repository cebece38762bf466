package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// zerosLike creates a zero tensor with the shape and dtype of ref.
func zerosLike(ref *tensor.RawTensor) *tensor.RawTensor {
	return tensor.RawZeros(ref.Shape(), ref.DType())
}

// tangentOr returns the tangent if present, else a zero tangent shaped
// like ref.
func tangentOr(t, ref *tensor.RawTensor) *tensor.RawTensor {
	if t != nil {
		return t
	}
	return zerosLike(ref)
}

// reduceTo shrinks a gradient to the shape of the input it belongs to.
// Binary kernels broadcast single-element operands, so the matching
// gradient must be summed back down to that single element.
func reduceTo(grad, input *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(input.Shape()) {
		return grad
	}
	if input.NumElements() == 1 {
		return backend.Reshape(backend.Sum(grad), input.Shape())
	}
	return backend.Reshape(grad, input.Shape())
}
