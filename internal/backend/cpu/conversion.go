package cpu

import (
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Cast converts a tensor to a different dtype. Casting to the same
// dtype returns a cheap buffer-sharing clone. Integer-to-integer casts
// go through int64 to avoid float rounding.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	out := tensor.MustRaw(x.Shape(), dtype)
	n := x.NumElements()

	if isInteger(x.DType()) && isInteger(dtype) {
		for i := 0; i < n; i++ {
			writeInt(out, i, readInt(x, i))
		}
		return out
	}
	for i := 0; i < n; i++ {
		writeFloat(out, i, readFloat(x, i))
	}
	return out
}

func isInteger(dt tensor.DataType) bool {
	return dt == tensor.Int32 || dt == tensor.Int64 || dt == tensor.Uint8
}

func readInt(r *tensor.RawTensor, i int) int64 {
	switch r.DType() {
	case tensor.Int32:
		return int64(r.AsInt32()[i])
	case tensor.Int64:
		return r.AsInt64()[i]
	default:
		return int64(r.AsUint8()[i])
	}
}

func writeInt(r *tensor.RawTensor, i int, v int64) {
	switch r.DType() {
	case tensor.Int32:
		r.AsInt32()[i] = int32(v)
	case tensor.Int64:
		r.AsInt64()[i] = v
	default:
		r.AsUint8()[i] = uint8(v)
	}
}
