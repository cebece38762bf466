package tensor

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/x448/float16"
)

// RawFromSlice creates a RawTensor from a Go slice; the data is copied.
func RawFromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy))
	if err != nil {
		return nil, err
	}
	copy(viewAs[T](raw, raw.dtype), data)
	return raw, nil
}

// MustFromSlice is RawFromSlice that panics on a shape mismatch.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	r, err := RawFromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return r
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar[T DType](value T) *RawTensor {
	return MustFromSlice([]T{value}, Shape{})
}

// RawZeros creates a zero-filled tensor.
func RawZeros(shape Shape, dtype DataType) *RawTensor {
	return MustRaw(shape, dtype)
}

// RawOnes creates a one-filled tensor.
func RawOnes(shape Shape, dtype DataType) *RawTensor {
	return RawFull(shape, dtype, 1)
}

// RawFull creates a tensor filled with a value, converted to dtype.
func RawFull(shape Shape, dtype DataType, value float64) *RawTensor {
	r := MustRaw(shape, dtype)
	n := r.NumElements()
	switch dtype {
	case Float16:
		v := float16.Fromfloat32(float32(value))
		data := r.AsFloat16()
		for i := 0; i < n; i++ {
			data[i] = v
		}
	case Float32:
		data := r.AsFloat32()
		for i := 0; i < n; i++ {
			data[i] = float32(value)
		}
	case Float64:
		data := r.AsFloat64()
		for i := 0; i < n; i++ {
			data[i] = value
		}
	case Int32:
		data := r.AsInt32()
		for i := 0; i < n; i++ {
			data[i] = int32(value)
		}
	case Int64:
		data := r.AsInt64()
		for i := 0; i < n; i++ {
			data[i] = int64(value)
		}
	case Uint8:
		data := r.AsUint8()
		for i := 0; i < n; i++ {
			data[i] = uint8(value)
		}
	case Bool:
		data := r.AsBool()
		for i := 0; i < n; i++ {
			data[i] = value != 0
		}
	}
	return r
}

// RawNaN creates a NaN-filled floating tensor. Direct solvers return it
// as the structurally valid value of a failed solve.
func RawNaN(shape Shape, dtype DataType) *RawTensor {
	return RawFull(shape, dtype, math.NaN())
}

// Eye creates the n x n identity matrix.
func Eye(n int, dtype DataType) *RawTensor {
	r := MustRaw(Shape{n, n}, dtype)
	for i := 0; i < n; i++ {
		r.SetFloatAt(i*n+i, 1)
	}
	return r
}

// BasisVector creates the i-th standard basis vector of length n.
func BasisVector(n, i int, dtype DataType) *RawTensor {
	r := MustRaw(Shape{n}, dtype)
	r.SetFloatAt(i, 1)
	return r
}

// RawRandn creates a tensor with values drawn from a standard normal
// distribution. Only floating dtypes are supported.
func RawRandn(shape Shape, dtype DataType, rng *rand.Rand) *RawTensor {
	r := MustRaw(shape, dtype)
	for i := 0; i < r.NumElements(); i++ {
		r.SetFloatAt(i, rng.NormFloat64())
	}
	return r
}
