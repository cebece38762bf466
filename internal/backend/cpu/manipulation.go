package cpu

import (
	"fmt"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Cat concatenates tensors along a dimension. All operands must agree
// on dtype and on every dimension except dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors given")
	}
	first := tensors[0]
	ndim := first.Shape().Rank()
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for rank %d", dim, ndim))
	}

	outShape := first.Shape().Clone()
	for _, t := range tensors[1:] {
		s := t.Shape()
		if s.Rank() != ndim || t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: mismatched operand %s%v vs %s%v",
				t.DType(), s, first.DType(), first.Shape()))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && s[d] != outShape[d] {
				panic(fmt.Sprintf("cat: shapes differ outside dim %d: %v vs %v", dim, s, first.Shape()))
			}
		}
		outShape[dim] += s[dim]
	}

	out := tensor.MustRaw(outShape, first.DType())
	elem := first.DType().Size()

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= outShape[d]
	}
	inner := elem
	for d := dim + 1; d < ndim; d++ {
		inner *= outShape[d]
	}

	dst := out.Data()
	outRow := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		src := t.Data()
		row := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*outRow+offset:o*outRow+offset+row], src[o*row:(o+1)*row])
		}
		offset += row
	}
	return out
}

// Narrow slices length elements starting at start along dim, returning
// a new contiguous tensor.
func (cpu *CPUBackend) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := shape.Rank()
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("narrow: dimension %d out of range for rank %d", dim, ndim))
	}
	if start < 0 || length < 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d,%d) out of bounds for dim of size %d",
			start, start+length, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	out := tensor.MustRaw(outShape, t.DType())

	elem := t.DType().Size()
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	inner := elem
	for d := dim + 1; d < ndim; d++ {
		inner *= shape[d]
	}

	src, dst := t.Data(), out.Data()
	srcRow := shape[dim] * inner
	dstRow := length * inner
	for o := 0; o < outer; o++ {
		copy(dst[o*dstRow:(o+1)*dstRow], src[o*srcRow+start*inner:o*srcRow+(start+length)*inner])
	}
	return out
}
