package operator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvent-ml/resolvent/internal/backend/cpu"
	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

func leafVec(data ...float64) *pytree.Value {
	return pytree.Leaf(tensor.MustFromSlice(data, tensor.Shape{len(data)}))
}

func TestNewMatrixRejectsNon2D(t *testing.T) {
	_, err := operator.NewMatrix(tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}), 0)
	assert.Error(t, err)

	_, err = operator.NewMatrix(tensor.RawZeros(tensor.Shape{2, 2, 2}, tensor.Float64), 0)
	assert.Error(t, err)
}

func TestMatrixMv(t *testing.T) {
	b := cpu.New()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	op, err := operator.NewMatrix(a, 0)
	require.NoError(t, err)

	out, err := op.Mv(b, leafVec(5, 6))
	require.NoError(t, err)
	assert.Equal(t, []float64{17, 39}, out.Value().AsFloat64())

	tout, err := op.Transpose().Mv(b, leafVec(5, 6))
	require.NoError(t, err)
	assert.Equal(t, []float64{23, 34}, tout.Value().AsFloat64())
}

func TestMatrixMvRejectsWrongShape(t *testing.T) {
	b := cpu.New()
	op, err := operator.NewMatrix(tensor.RawZeros(tensor.Shape{2, 3}, tensor.Float64), 0)
	require.NoError(t, err)

	_, err = op.Mv(b, leafVec(1, 2))
	assert.Error(t, err)
}

func TestTransposeView(t *testing.T) {
	b := cpu.New()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	op, err := operator.NewMatrix(a, operator.LowerTriangular)
	require.NoError(t, err)

	tr := op.Transpose()
	assert.Equal(t, 2, operator.InSize(tr))
	assert.Equal(t, 3, operator.OutSize(tr))
	assert.Equal(t, operator.UpperTriangular, tr.Tags())

	// Transpose of a transpose is the original operator.
	assert.Same(t, operator.LinearOperator(op), tr.Transpose())

	dense, err := tr.AsDense(b)
	require.NoError(t, err)
	assert.True(t, dense.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, dense.AsFloat64())
}

func TestTagTransposition(t *testing.T) {
	tags := operator.Symmetric | operator.Diagonal | operator.PositiveSemidefinite
	op, err := operator.NewMatrix(tensor.RawZeros(tensor.Shape{2, 2}, tensor.Float64), tags)
	require.NoError(t, err)
	// Side-independent tags survive a transpose unchanged.
	assert.Equal(t, tags, op.Transpose().Tags())
}

func TestWithTags(t *testing.T) {
	op, err := operator.NewMatrix(tensor.RawZeros(tensor.Shape{2, 2}, tensor.Float64), operator.Symmetric)
	require.NoError(t, err)

	tagged := operator.WithTags(op, operator.UpperTriangular)
	assert.Equal(t, operator.UpperTriangular, tagged.Tags())
	assert.Equal(t, operator.LowerTriangular, tagged.Transpose().Tags())

	// Re-tagging replaces, it does not stack views.
	again := operator.WithTags(tagged, operator.Diagonal)
	assert.Equal(t, operator.Diagonal, again.Tags())
}

func TestTagHasAndString(t *testing.T) {
	tags := operator.Symmetric | operator.PositiveSemidefinite
	assert.True(t, tags.Has(operator.Symmetric))
	assert.False(t, tags.Has(operator.Diagonal))
	assert.Contains(t, tags.String(), "symmetric")
}

func TestPyTreeOperator(t *testing.T) {
	b := cpu.New()
	// One output leaf of shape [2], two input leaves of shapes [2], [1].
	b0 := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	b1 := tensor.MustFromSlice([]float64{5, 6}, tensor.Shape{2, 1})
	blocks := pytree.List(pytree.Leaf(b0), pytree.Leaf(b1))
	outStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{2}, DType: tensor.Float64})

	op, err := operator.NewPyTree(blocks, outStructure, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, operator.InSize(op))
	assert.Equal(t, 2, operator.OutSize(op))
	assert.Equal(t, "(float64[2],float64[1])", pytree.Signature(op.InStructure()))

	v := pytree.List(leafVec(1, 1), leafVec(2))
	out, err := op.Mv(b, v)
	require.NoError(t, err)
	assert.Equal(t, []float64{13, 19}, out.Value().AsFloat64())

	back, err := op.Transpose().Mv(b, leafVec(1, 0))
	require.NoError(t, err)
	leaves := back.Leaves()
	assert.Equal(t, []float64{1, 2}, leaves[0].AsFloat64())
	assert.Equal(t, []float64{5}, leaves[1].AsFloat64())

	dense, err := op.AsDense(b)
	require.NoError(t, err)
	assert.True(t, dense.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []float64{1, 2, 5, 3, 4, 6}, dense.AsFloat64())
}

func TestPyTreeOperatorMultipleOutputLeaves(t *testing.T) {
	b := cpu.New()
	row0 := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{1, 2})
	row1 := tensor.MustFromSlice([]float64{3, 4}, tensor.Shape{1, 2})
	blocks := pytree.List(pytree.Leaf(row0), pytree.Leaf(row1))
	outStructure := pytree.List(
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
	)

	op, err := operator.NewPyTree(blocks, outStructure, 0)
	require.NoError(t, err)

	out, err := op.Mv(b, leafVec(5, 6))
	require.NoError(t, err)
	leaves := out.Leaves()
	assert.Equal(t, []float64{17}, leaves[0].AsFloat64())
	assert.Equal(t, []float64{39}, leaves[1].AsFloat64())
}

func TestPyTreeOperatorValidation(t *testing.T) {
	outStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{2}, DType: tensor.Float64})

	// Block shape does not start with the output leaf shape.
	bad := pytree.List(pytree.Leaf(tensor.RawZeros(tensor.Shape{3, 2}, tensor.Float64)))
	_, err := operator.NewPyTree(bad, outStructure, 0)
	assert.Error(t, err)

	// Empty output structure.
	_, err = operator.NewPyTree(bad, pytree.List[pytree.ArraySpec](), 0)
	assert.Error(t, err)

	// Mismatched input layouts across output leaves.
	out2 := pytree.List(
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
	)
	mismatched := pytree.List(
		pytree.List(
			pytree.Leaf(tensor.RawZeros(tensor.Shape{1, 2}, tensor.Float64)),
			pytree.Leaf(tensor.RawZeros(tensor.Shape{1, 1}, tensor.Float64)),
		),
		pytree.Leaf(tensor.RawZeros(tensor.Shape{1, 2}, tensor.Float64)),
	)
	_, err = operator.NewPyTree(mismatched, out2, 0)
	assert.Error(t, err)
}

func TestPyTreeOperatorPromotesInputDTypes(t *testing.T) {
	// Two output leaves contribute f32 and f64 blocks to the same input
	// column, so the inferred input dtype is f64.
	outStructure := pytree.List(
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float32}),
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
	)
	blocks := pytree.List(
		pytree.Leaf(tensor.RawZeros(tensor.Shape{1, 2}, tensor.Float32)),
		pytree.Leaf(tensor.RawZeros(tensor.Shape{1, 2}, tensor.Float64)),
	)
	op, err := operator.NewPyTree(blocks, outStructure, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, op.InStructure().Value().DType)
}

func TestFunctionOperator(t *testing.T) {
	b := cpu.New()
	operator.SetOutStructureCache(misc.NewCache[string, *pytree.Structure](misc.DefaultCacheSize))

	a := tensor.MustFromSlice([]float64{2, 0, 0, 3}, tensor.Shape{2, 2})
	fn := func(bk tensor.Backend, v *pytree.Value) *pytree.Value {
		col := bk.Reshape(v.Value(), tensor.Shape{2, 1})
		return pytree.Leaf(bk.Reshape(bk.MatMul(a, col), tensor.Shape{2}))
	}
	inStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{2}, DType: tensor.Float64})

	op, err := operator.NewFunction(b, fn, inStructure, 0)
	require.NoError(t, err)
	assert.Equal(t, "float64[2]", pytree.Signature(op.OutStructure()))

	out, err := op.Mv(b, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, out.Value().AsFloat64())

	// Transpose application through the reverse sweep.
	back, err := op.Transpose().Mv(b, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, back.Value().AsFloat64())

	dense, err := op.AsDense(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0, 3}, dense.AsFloat64())
}

func TestFunctionOperatorNonSymmetricTranspose(t *testing.T) {
	b := cpu.New()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	fn := func(bk tensor.Backend, v *pytree.Value) *pytree.Value {
		col := bk.Reshape(v.Value(), tensor.Shape{2, 1})
		return pytree.Leaf(bk.Reshape(bk.MatMul(a, col), tensor.Shape{2}))
	}
	inStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{2}, DType: tensor.Float64})

	op, err := operator.NewFunction(b, fn, inStructure, 0)
	require.NoError(t, err)

	// A^T [1, 0] = first column of A^T = first row of A.
	back, err := op.Transpose().Mv(b, leafVec(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, back.Value().AsFloat64())

	// The plain application must differ: A [1, 0] is A's first column.
	fwd, err := op.Mv(b, leafVec(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, fwd.Value().AsFloat64())
}

func TestFunctionOperatorWideAsDense(t *testing.T) {
	b := cpu.New()
	operator.SetOutStructureCache(misc.NewCache[string, *pytree.Structure](misc.DefaultCacheSize))

	// Wide enough that the dense matrix is assembled row by row through
	// the transpose rather than column by column.
	const inN, outN = 120, 2
	data := make([]float64, outN*inN)
	for i := range data {
		data[i] = float64(i + 1)
	}
	a := tensor.MustFromSlice(data, tensor.Shape{outN, inN})
	fn := func(bk tensor.Backend, v *pytree.Value) *pytree.Value {
		col := bk.Reshape(v.Value(), tensor.Shape{inN, 1})
		return pytree.Leaf(bk.Reshape(bk.MatMul(a, col), tensor.Shape{outN}))
	}
	inStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{inN}, DType: tensor.Float64})

	op, err := operator.NewFunction(b, fn, inStructure, 0)
	require.NoError(t, err)
	require.Equal(t, misc.ModeReverse, misc.PickJacobianMode(inN, outN))

	dense, err := op.AsDense(b)
	require.NoError(t, err)
	assert.True(t, dense.Shape().Equal(tensor.Shape{outN, inN}))
	assert.Equal(t, data, dense.AsFloat64())
}

func TestFunctionOperatorProbeCache(t *testing.T) {
	b := cpu.New()
	cache := misc.NewCache[string, *pytree.Structure](misc.DefaultCacheSize)
	operator.SetOutStructureCache(cache)

	fn := func(bk tensor.Backend, v *pytree.Value) *pytree.Value { return v }
	inStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{3}, DType: tensor.Float64})

	_, err := operator.NewFunction(b, fn, inStructure, 0)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	// Same function and structure hit the cache.
	_, err = operator.NewFunction(b, fn, inStructure, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// A different input structure probes again.
	other := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{5}, DType: tensor.Float64})
	_, err = operator.NewFunction(b, fn, other, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}

func TestFunctionOperatorProbeFailure(t *testing.T) {
	b := cpu.New()
	operator.SetOutStructureCache(misc.NewCache[string, *pytree.Structure](misc.DefaultCacheSize))

	three := tensor.RawZeros(tensor.Shape{3}, tensor.Float64)
	fn := func(bk tensor.Backend, v *pytree.Value) *pytree.Value {
		return pytree.Leaf(bk.Add(v.Value(), three))
	}
	inStructure := pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{2}, DType: tensor.Float64})

	_, err := operator.NewFunction(b, fn, inStructure, 0)
	assert.Error(t, err)
}
