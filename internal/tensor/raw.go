package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/x448/float16"
)

// tensorBuffer is a reference-counted shared buffer enabling cheap
// clones and copy-on-write style reuse when refCount == 1.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{data: make([]byte, size)}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() { tb.refCount.Add(1) }

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.data = nil
	}
}

func (tb *tensorBuffer) isUnique() bool { return tb.refCount.Load() == 1 }

// RawTensor is the low-level dense tensor representation: a
// reference-counted byte buffer plus shape, strides and runtime dtype.
// RawTensors are the leaves of every pytree the solver library moves
// around; once handed to an operator or the autodiff tape they must be
// treated as immutable.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int
	dtype  DataType
}

// NewRaw creates a zero-initialized RawTensor with the given shape and
// dtype.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// MustRaw is NewRaw that panics on an invalid shape. Kernels use it for
// shapes they have already validated.
func MustRaw(shape Shape, dtype DataType) *RawTensor {
	r, err := NewRaw(shape, dtype)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's row-major memory strides.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType { return r.dtype }

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte { return r.buffer.data }

func viewAs[T any](r *RawTensor, want DataType) []T {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&r.buffer.data[0])), n)
}

// AsFloat16 interprets the data as []float16.Float16.
// Panics if the tensor's dtype is not Float16.
func (r *RawTensor) AsFloat16() []float16.Float16 { return viewAs[float16.Float16](r, Float16) }

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 { return viewAs[float32](r, Float32) }

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 { return viewAs[float64](r, Float64) }

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 { return viewAs[int32](r, Int32) }

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 { return viewAs[int64](r, Int64) }

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.buffer.data
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool { return viewAs[bool](r, Bool) }

// FloatAt reads element i (flat index) as a float64, converting from
// the tensor's floating dtype. Panics for non-float dtypes.
func (r *RawTensor) FloatAt(i int) float64 {
	switch r.dtype {
	case Float16:
		return float64(r.AsFloat16()[i].Float32())
	case Float32:
		return float64(r.AsFloat32()[i])
	case Float64:
		return r.AsFloat64()[i]
	default:
		panic(fmt.Sprintf("FloatAt: dtype %s is not floating", r.dtype))
	}
}

// SetFloatAt writes element i (flat index) from a float64, converting
// to the tensor's floating dtype. Panics for non-float dtypes.
func (r *RawTensor) SetFloatAt(i int, v float64) {
	switch r.dtype {
	case Float16:
		r.AsFloat16()[i] = float16.Fromfloat32(float32(v))
	case Float32:
		r.AsFloat32()[i] = float32(v)
	case Float64:
		r.AsFloat64()[i] = v
	default:
		panic(fmt.Sprintf("SetFloatAt: dtype %s is not floating", r.dtype))
	}
}

// Clone creates a shallow copy sharing the underlying buffer via
// reference counting; the data is only duplicated by kernels that need
// a writable unique buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
	}
}

// Release decrements the reference count and drops the buffer when it
// reaches zero.
func (r *RawTensor) Release() { r.buffer.release() }

// IsUnique reports whether this tensor is the only reference to its
// buffer, in which case kernels may overwrite it in place.
func (r *RawTensor) IsUnique() bool { return r.buffer.isUnique() }

// ForceNonUnique temporarily raises the reference count so in-place
// optimizations are disabled while an operation is being recorded on an
// autodiff tape. The returned cleanup must be deferred.
func (r *RawTensor) ForceNonUnique() func() {
	r.buffer.addRef()
	return func() { r.buffer.release() }
}

// WithShape returns a view of the same buffer reinterpreted with a new
// shape of identical element count. Panics on a count mismatch.
func (r *RawTensor) WithShape(shape Shape) *RawTensor {
	if shape.NumElements() != r.NumElements() {
		panic(fmt.Sprintf("WithShape: cannot view %v as %v", r.shape, shape))
	}
	view := r.Clone()
	view.shape = shape.Clone()
	view.stride = shape.ComputeStrides()
	return view
}

// String returns a human-readable summary.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v", r.dtype, r.shape)
}
