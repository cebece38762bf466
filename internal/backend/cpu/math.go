package cpu

import (
	"fmt"
	"math"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Sqrt computes the elementwise square root of a floating tensor.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	if !x.DType().IsFloat() {
		panic(fmt.Sprintf("sqrt: dtype %s is not floating", x.DType()))
	}
	out := tensor.MustRaw(x.Shape(), x.DType())
	for i := 0; i < x.NumElements(); i++ {
		writeFloat(out, i, math.Sqrt(readFloat(x, i)))
	}
	return out
}

// Abs computes the elementwise absolute value.
func (cpu *CPUBackend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustRaw(x.Shape(), x.DType())
	for i := 0; i < x.NumElements(); i++ {
		writeFloat(out, i, math.Abs(readFloat(x, i)))
	}
	return out
}
