package cpu

import (
	"fmt"
	"math"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

func scalarOf(dtype tensor.DataType, v float64) *tensor.RawTensor {
	out := tensor.MustRaw(tensor.Shape{}, dtype)
	writeFloat(out, 0, v)
	return out
}

// Sum reduces the whole tensor to a scalar of the same dtype,
// accumulating in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	var acc float64
	for i := 0; i < x.NumElements(); i++ {
		acc += readFloat(x, i)
	}
	return scalarOf(x.DType(), acc)
}

// Dot computes the inner product of two tensors of equal element count,
// accumulating in float64. The result dtype follows promotion rules.
func (cpu *CPUBackend) Dot(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.NumElements() != b.NumElements() {
		panic(fmt.Sprintf("dot: element counts differ, %v vs %v", a.Shape(), b.Shape()))
	}
	var acc float64
	for i := 0; i < a.NumElements(); i++ {
		acc += readFloat(a, i) * readFloat(b, i)
	}
	outType := tensor.PromoteTypes(a.DType(), b.DType())
	if !outType.IsFloat() {
		outType = tensor.DefaultFloat()
	}
	return scalarOf(outType, acc)
}

// Norm computes the Euclidean norm of the flattened tensor as a scalar
// of the same dtype, accumulating in float64.
func (cpu *CPUBackend) Norm(x *tensor.RawTensor) *tensor.RawTensor {
	var acc float64
	for i := 0; i < x.NumElements(); i++ {
		v := readFloat(x, i)
		acc += v * v
	}
	dt := x.DType()
	if !dt.IsFloat() {
		dt = tensor.DefaultFloat()
	}
	return scalarOf(dt, math.Sqrt(acc))
}

// MaxAll reduces to the maximum element of the tensor. Panics on an
// empty tensor.
func (cpu *CPUBackend) MaxAll(x *tensor.RawTensor) *tensor.RawTensor {
	if x.NumElements() == 0 {
		panic("maxall: empty tensor has no maximum")
	}
	acc := readFloat(x, 0)
	for i := 1; i < x.NumElements(); i++ {
		if v := readFloat(x, i); v > acc {
			acc = v
		}
	}
	return scalarOf(x.DType(), acc)
}
