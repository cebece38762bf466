package cpu

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// binaryShape resolves the output shape of a binary elementwise
// operation: equal shapes, or one single-element operand broadcast
// against the other.
func binaryShape(name string, a, b *tensor.RawTensor) tensor.Shape {
	switch {
	case a.Shape().Equal(b.Shape()):
		return a.Shape()
	case a.NumElements() == 1:
		return b.Shape()
	case b.NumElements() == 1:
		return a.Shape()
	default:
		panic(fmt.Sprintf("%s: incompatible shapes %v and %v", name, a.Shape(), b.Shape()))
	}
}

// workType maps a result dtype to the dtype arithmetic runs in.
// Float16 arithmetic is performed in float32.
func workType(dt tensor.DataType) tensor.DataType {
	if dt == tensor.Float16 {
		return tensor.Float32
	}
	return dt
}

func binaryFloat[T constraints.Float](dst, a, b []T, f func(x, y T) T) {
	switch {
	case len(a) == len(b):
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
	case len(a) == 1:
		for i := range dst {
			dst[i] = f(a[0], b[i])
		}
	default:
		for i := range dst {
			dst[i] = f(a[i], b[0])
		}
	}
}

func binaryInt[T constraints.Integer](dst, a, b []T, f func(x, y T) T) {
	switch {
	case len(a) == len(b):
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
	case len(a) == 1:
		for i := range dst {
			dst[i] = f(a[0], b[i])
		}
	default:
		for i := range dst {
			dst[i] = f(a[i], b[0])
		}
	}
}

type binOpKind int

const (
	opAdd binOpKind = iota
	opSub
	opMul
	opDiv
)

func (k binOpKind) String() string {
	return [...]string{"add", "sub", "mul", "div"}[k]
}

func floatFn[T constraints.Float](k binOpKind) func(x, y T) T {
	switch k {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	default:
		return func(x, y T) T { return x / y }
	}
}

func intFn[T constraints.Integer](k binOpKind) func(x, y T) T {
	switch k {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	default:
		return func(x, y T) T { return x * y }
	}
}

func (cpu *CPUBackend) binary(k binOpKind, a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape := binaryShape(k.String(), a, b)
	outType := tensor.PromoteTypes(a.DType(), b.DType())
	if k == opDiv && !outType.IsFloat() {
		// Division always produces a floating result.
		outType = tensor.DefaultFloat()
	}
	if outType == tensor.Bool {
		panic(fmt.Sprintf("%s: arithmetic on bool tensors is not supported", k))
	}

	wt := workType(outType)
	wa, wb := cpu.Cast(a, wt), cpu.Cast(b, wt)
	out := tensor.MustRaw(outShape, wt)

	switch wt {
	case tensor.Float32:
		binaryFloat(out.AsFloat32(), wa.AsFloat32(), wb.AsFloat32(), floatFn[float32](k))
	case tensor.Float64:
		binaryFloat(out.AsFloat64(), wa.AsFloat64(), wb.AsFloat64(), floatFn[float64](k))
	case tensor.Int32:
		binaryInt(out.AsInt32(), wa.AsInt32(), wb.AsInt32(), intFn[int32](k))
	case tensor.Int64:
		binaryInt(out.AsInt64(), wa.AsInt64(), wb.AsInt64(), intFn[int64](k))
	case tensor.Uint8:
		binaryInt(out.AsUint8(), wa.AsUint8(), wb.AsUint8(), intFn[uint8](k))
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", k, wt))
	}
	return cpu.Cast(out, outType)
}

// Add performs elementwise addition.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opAdd, a, b)
}

// Sub performs elementwise subtraction.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opSub, a, b)
}

// Mul performs elementwise multiplication.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opMul, a, b)
}

// Div performs elementwise division. Integer operands are promoted to
// the default floating dtype first.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(opDiv, a, b)
}

// MulScalar multiplies every element by a scalar, preserving dtype.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	out := tensor.MustRaw(x.Shape(), x.DType())
	for i := 0; i < x.NumElements(); i++ {
		writeFloat(out, i, readFloat(x, i)*scalar)
	}
	return out
}
