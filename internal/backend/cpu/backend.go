// Package cpu implements the tensor.Backend interface with eager pure
// Go kernels. It is the execution substrate every solver runs on; the
// autodiff backend decorates it to add gradient tracking.
package cpu

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// CPUBackend evaluates tensor operations eagerly on the host CPU.
// It is stateless; a single instance may be shared freely.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend { return &CPUBackend{} }

// Name returns the backend name.
func (cpu *CPUBackend) Name() string { return "cpu" }

var _ tensor.Backend = (*CPUBackend)(nil)

// readFloat reads element i of any numeric/bool tensor as float64.
func readFloat(r *tensor.RawTensor, i int) float64 {
	switch r.DType() {
	case tensor.Float16:
		return float64(r.AsFloat16()[i].Float32())
	case tensor.Float32:
		return float64(r.AsFloat32()[i])
	case tensor.Float64:
		return r.AsFloat64()[i]
	case tensor.Int32:
		return float64(r.AsInt32()[i])
	case tensor.Int64:
		return float64(r.AsInt64()[i])
	case tensor.Uint8:
		return float64(r.AsUint8()[i])
	case tensor.Bool:
		if r.AsBool()[i] {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("readFloat: unsupported dtype %s", r.DType()))
	}
}

// writeFloat writes element i of any numeric/bool tensor from float64.
func writeFloat(r *tensor.RawTensor, i int, v float64) {
	switch r.DType() {
	case tensor.Float16:
		r.AsFloat16()[i] = float16.Fromfloat32(float32(v))
	case tensor.Float32:
		r.AsFloat32()[i] = float32(v)
	case tensor.Float64:
		r.AsFloat64()[i] = v
	case tensor.Int32:
		r.AsInt32()[i] = int32(v)
	case tensor.Int64:
		r.AsInt64()[i] = int64(v)
	case tensor.Uint8:
		r.AsUint8()[i] = uint8(v)
	case tensor.Bool:
		r.AsBool()[i] = v != 0
	default:
		panic(fmt.Sprintf("writeFloat: unsupported dtype %s", r.DType()))
	}
}
