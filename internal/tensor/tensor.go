package tensor

import "fmt"

// Tensor is a typed convenience wrapper around RawTensor bound to a
// backend. The solver and operator layers work on RawTensor directly;
// Tensor exists for callers that want compile-time element types.
type Tensor[T DType] struct {
	raw     *RawTensor
	backend Backend
}

// New wraps a RawTensor with a backend.
func New[T DType](raw *RawTensor, b Backend) *Tensor[T] {
	return &Tensor[T]{raw: raw, backend: b}
}

// FromSlice creates a tensor from a Go slice; the data is copied.
func FromSlice[T DType](data []T, shape Shape, b Backend) (*Tensor[T], error) {
	raw, err := RawFromSlice(data, shape)
	if err != nil {
		return nil, err
	}
	return New[T](raw, b), nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() Shape { return t.raw.Shape() }

// DType returns the tensor's runtime data type.
func (t *Tensor[T]) DType() DataType { return t.raw.DType() }

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int { return t.raw.NumElements() }

// Raw returns the underlying RawTensor.
func (t *Tensor[T]) Raw() *RawTensor { return t.raw }

// Backend returns the computation backend.
func (t *Tensor[T]) Backend() Backend { return t.backend }

// Data returns a typed slice view of the tensor's data (zero-copy).
// Modifications to the returned slice modify the tensor.
func (t *Tensor[T]) Data() []T {
	var dummy T
	return viewAs[T](t.raw, inferDataType(dummy))
}

// Item returns the value of a single-element tensor.
// Panics otherwise.
func (t *Tensor[T]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() requires a single-element tensor, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor[T]) flatIndex(indices []int) int {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(shape), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// Add performs elementwise addition.
func (t *Tensor[T]) Add(other *Tensor[T]) *Tensor[T] {
	return New[T](t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs elementwise subtraction.
func (t *Tensor[T]) Sub(other *Tensor[T]) *Tensor[T] {
	return New[T](t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs elementwise multiplication.
func (t *Tensor[T]) Mul(other *Tensor[T]) *Tensor[T] {
	return New[T](t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div performs elementwise division.
func (t *Tensor[T]) Div(other *Tensor[T]) *Tensor[T] {
	return New[T](t.backend.Div(t.raw, other.raw), t.backend)
}

// MatMul performs 2-D matrix multiplication.
func (t *Tensor[T]) MatMul(other *Tensor[T]) *Tensor[T] {
	return New[T](t.backend.MatMul(t.raw, other.raw), t.backend)
}

// T is the 2-D transpose. Panics if the tensor is not 2-D.
func (t *Tensor[T]) T() *Tensor[T] {
	if t.Shape().Rank() != 2 {
		panic("T() only works for 2D tensors")
	}
	return New[T](t.backend.Transpose(t.raw, 1, 0), t.backend)
}

// String returns a human-readable representation.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%v", t.DType(), t.Shape())
}
