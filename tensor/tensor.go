// Copyright 2026 The Resolvent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in the
// Resolvent linear solver library.
//
// The package defines the core types the operator and solver layers
// are built on:
//   - RawTensor: Ref-counted byte buffer with shape, strides and dtype
//   - Tensor[T]: Type-safe convenience wrapper
//   - Backend: Interface for compute implementations
//   - Shape, DataType: Core type definitions
//
// Example:
//
//	backend := cpu.New()
//	a := tensor.MustFromSlice([]float64{1, 5, -2, -2}, tensor.Shape{2, 2})
//	b := backend.MatMul(a, a)
package tensor

import (
	"math/rand"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// DType is a constraint for tensor element types.
// Supported types: float16.Float16, float32, float64, int32, int64,
// uint8, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float16 DataType = tensor.Float16
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} is a 2x3 matrix; Shape{} is a scalar.
type Shape = tensor.Shape

// RawTensor is the dtype-erased tensor all backends operate on.
type RawTensor = tensor.RawTensor

// Tensor is a generic type-safe view over a RawTensor bound to a
// backend.
type Tensor[T DType] = tensor.Tensor[T]

// Backend is the compute interface; see backend/cpu for the pure Go
// implementation and autodiff for the recording decorator.
type Backend = tensor.Backend

// PromoteTypes returns the common dtype two operands promote to.
func PromoteTypes(a, b DataType) DataType { return tensor.PromoteTypes(a, b) }

// Eps returns the machine epsilon of a floating dtype.
func Eps(dt DataType) float64 { return tensor.Eps(dt) }

// SetDoublePrecision switches the default float dtype between Float64
// (the default) and Float32. It affects integer promotion in solves
// and the dtype of freshly created float tensors with no explicit
// dtype.
func SetDoublePrecision(enabled bool) { tensor.SetDoublePrecision(enabled) }

// DefaultFloat returns the current default float dtype.
func DefaultFloat() DataType { return tensor.DefaultFloat() }

// Creation functions.

// New wraps a RawTensor in a typed tensor bound to a backend. The raw
// dtype must match T.
func New[T DType](raw *RawTensor, backend Backend) *Tensor[T] {
	return tensor.New[T](raw, backend)
}

// FromSlice creates a typed tensor bound to a backend.
func FromSlice[T DType](data []T, shape Shape, backend Backend) (*Tensor[T], error) {
	return tensor.FromSlice[T](data, shape, backend)
}

// RawFromSlice creates a RawTensor from a Go slice; the data is copied.
func RawFromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.RawFromSlice(data, shape)
}

// MustFromSlice is RawFromSlice that panics on a shape mismatch.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	return tensor.MustFromSlice(data, shape)
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar[T DType](value T) *RawTensor { return tensor.Scalar(value) }

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape, dtype DataType) *RawTensor { return tensor.RawZeros(shape, dtype) }

// Ones creates a one-filled tensor.
func Ones(shape Shape, dtype DataType) *RawTensor { return tensor.RawOnes(shape, dtype) }

// Full creates a tensor filled with a value, converted to dtype.
func Full(shape Shape, dtype DataType, value float64) *RawTensor {
	return tensor.RawFull(shape, dtype, value)
}

// Eye creates the n x n identity matrix.
func Eye(n int, dtype DataType) *RawTensor { return tensor.Eye(n, dtype) }

// BasisVector creates the i-th standard basis vector of length n.
func BasisVector(n, i int, dtype DataType) *RawTensor { return tensor.BasisVector(n, i, dtype) }

// Randn creates a tensor with standard normal values.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) *RawTensor {
	return tensor.RawRandn(shape, dtype, rng)
}
