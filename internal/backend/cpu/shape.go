package cpu

import (
	"fmt"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Transpose permutes the tensor's dimensions. Empty axes reverse all
// dimensions, which for 2-D tensors is the standard transpose. The
// output is a new contiguous tensor.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := shape.Rank()
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for rank-%d tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	out := tensor.MustRaw(outShape, t.DType())
	if t.NumElements() == 0 {
		return out
	}

	elem := t.DType().Size()
	src, dst := t.Data(), out.Data()
	srcStrides := t.Strides()
	outStrides := outShape.ComputeStrides()

	coords := make([]int, ndim)
	for di := 0; di < out.NumElements(); di++ {
		rem := di
		si := 0
		for d := 0; d < ndim; d++ {
			coords[d] = rem / outStrides[d]
			rem %= outStrides[d]
			si += coords[d] * srcStrides[axes[d]]
		}
		copy(dst[di*elem:(di+1)*elem], src[si*elem:(si+1)*elem])
	}
	return out
}

// Reshape reinterprets the tensor with a new shape of equal element
// count, sharing the underlying buffer.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return t.WithShape(newShape)
}
