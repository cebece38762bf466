package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

func TestShapeBasics(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, 24, s.NumElements())
	assert.True(t, s.Equal(tensor.Shape{2, 3, 4}))
	assert.False(t, s.Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
}

func TestShapeScalarAndEmpty(t *testing.T) {
	scalar := tensor.Shape{}
	assert.Equal(t, 0, scalar.Rank())
	assert.Equal(t, 1, scalar.NumElements())

	empty := tensor.Shape{0, 3}
	assert.Equal(t, 0, empty.NumElements())
	require.NoError(t, empty.Validate())

	assert.Error(t, tensor.Shape{2, -1}.Validate())
}

func TestRawTensorViews(t *testing.T) {
	r, err := tensor.RawFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	assert.Equal(t, tensor.Float64, r.DType())
	assert.Equal(t, 6, r.NumElements())
	assert.Equal(t, 48, r.ByteSize())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, r.AsFloat64())
	assert.Equal(t, 4.0, r.FloatAt(3))

	assert.Panics(t, func() { r.AsFloat32() })
}

func TestRawTensorCloneSharesBuffer(t *testing.T) {
	r := tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{2})
	assert.True(t, r.IsUnique())

	c := r.Clone()
	assert.False(t, r.IsUnique())
	assert.False(t, c.IsUnique())

	c.Release()
	assert.True(t, r.IsUnique())
}

func TestForceNonUnique(t *testing.T) {
	r := tensor.MustFromSlice([]float64{1}, tensor.Shape{1})
	restore := r.ForceNonUnique()
	assert.False(t, r.IsUnique())
	restore()
	assert.True(t, r.IsUnique())
}

func TestWithShape(t *testing.T) {
	r := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{4})
	v := r.WithShape(tensor.Shape{2, 2})
	assert.True(t, v.Shape().Equal(tensor.Shape{2, 2}))
	assert.Equal(t, r.FloatAt(2), v.FloatAt(2))
	assert.Panics(t, func() { r.WithShape(tensor.Shape{3}) })
}

func TestPromoteTypes(t *testing.T) {
	assert.Equal(t, tensor.Float64, tensor.PromoteTypes(tensor.Float32, tensor.Float64))
	assert.Equal(t, tensor.Float32, tensor.PromoteTypes(tensor.Int64, tensor.Float32))
	assert.Equal(t, tensor.Float16, tensor.PromoteTypes(tensor.Float16, tensor.Int32))
	assert.Equal(t, tensor.Int64, tensor.PromoteTypes(tensor.Int32, tensor.Int64))
	assert.Equal(t, tensor.Uint8, tensor.PromoteTypes(tensor.Bool, tensor.Uint8))
}

func TestDefaultFloat(t *testing.T) {
	assert.Equal(t, tensor.Float64, tensor.DefaultFloat())

	tensor.SetDoublePrecision(false)
	assert.Equal(t, tensor.Float32, tensor.DefaultFloat())

	tensor.SetDoublePrecision(true)
	assert.Equal(t, tensor.Float64, tensor.DefaultFloat())
}

func TestEps(t *testing.T) {
	assert.Equal(t, 0x1p-52, tensor.Eps(tensor.Float64))
	assert.Equal(t, 0x1p-23, tensor.Eps(tensor.Float32))
	assert.Equal(t, 0x1p-10, tensor.Eps(tensor.Float16))
	assert.Panics(t, func() { tensor.Eps(tensor.Int32) })
}

func TestCreationHelpers(t *testing.T) {
	eye := tensor.Eye(3, tensor.Float64)
	assert.Equal(t, 1.0, eye.FloatAt(0))
	assert.Equal(t, 0.0, eye.FloatAt(1))
	assert.Equal(t, 1.0, eye.FloatAt(4))

	e1 := tensor.BasisVector(4, 1, tensor.Float32)
	assert.Equal(t, []float32{0, 1, 0, 0}, e1.AsFloat32())

	nan := tensor.RawNaN(tensor.Shape{2}, tensor.Float64)
	for _, v := range nan.AsFloat64() {
		assert.NotEqual(t, v, v) // NaN
	}

	full := tensor.RawFull(tensor.Shape{2}, tensor.Int32, 7)
	assert.Equal(t, []int32{7, 7}, full.AsInt32())
}
