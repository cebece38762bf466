package cpu

import (
	"fmt"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Where selects elementwise from x or y according to a Bool condition.
// The condition may be a scalar broadcast across both branches; x and y
// must have equal shapes (or be single-element) and are promoted to a
// common dtype.
func (cpu *CPUBackend) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition dtype is %s, want bool", cond.DType()))
	}
	outShape := binaryShape("where", x, y)
	if cond.NumElements() != 1 && !cond.Shape().Equal(outShape) {
		panic(fmt.Sprintf("where: condition shape %v incompatible with %v", cond.Shape(), outShape))
	}

	outType := tensor.PromoteTypes(x.DType(), y.DType())
	wx, wy := cpu.Cast(x, outType), cpu.Cast(y, outType)
	out := tensor.MustRaw(outShape, outType)

	pred := cond.AsBool()
	scalarCond := cond.NumElements() == 1
	pick := func(r *tensor.RawTensor, i int) float64 {
		if r.NumElements() == 1 {
			return readFloat(r, 0)
		}
		return readFloat(r, i)
	}
	for i := 0; i < out.NumElements(); i++ {
		p := pred[0]
		if !scalarCond {
			p = pred[i]
		}
		if p {
			writeFloat(out, i, pick(wx, i))
		} else {
			writeFloat(out, i, pick(wy, i))
		}
	}
	return out
}
