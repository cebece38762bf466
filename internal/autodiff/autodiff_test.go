package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvent-ml/resolvent/internal/autodiff"
	"github.com/resolvent-ml/resolvent/internal/backend/cpu"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newRecording() Backend {
	b := autodiff.New(cpu.New())
	b.Tape().StartRecording()
	return b
}

func ones(like *tensor.RawTensor) *tensor.RawTensor {
	return tensor.RawOnes(like.Shape(), like.DType())
}

func TestRecorderInterface(_ *testing.T) {
	var _ autodiff.Recorder = (Backend)(nil)
	var _ tensor.Backend = (Backend)(nil)
}

func TestNoRecordingWhenStopped(t *testing.T) {
	b := autodiff.New(cpu.New())
	x := tensor.MustFromSlice([]float64{2}, tensor.Shape{1})
	_ = b.Mul(x, x)
	assert.Equal(t, 0, b.Tape().NumOps())
}

// TestBackwardSquare checks d(x*x)/dx = 2x.
func TestBackwardSquare(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{3}, tensor.Shape{1})
	y := b.Mul(x, x)

	grads := b.Tape().Backward(y, ones(y), b)
	require.Contains(t, grads, x)
	assert.InDelta(t, 6.0, grads[x].FloatAt(0), 1e-12)
}

// TestBackwardComposite checks a chain: z = (x + c) * x.
func TestBackwardComposite(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{5}, tensor.Shape{1})
	c := tensor.MustFromSlice([]float64{2}, tensor.Shape{1})
	z := b.Mul(b.Add(x, c), x)

	// dz/dx = (x + c) + x = 12, dz/dc = x = 5.
	grads := b.Tape().Backward(z, ones(z), b)
	assert.InDelta(t, 12.0, grads[x].FloatAt(0), 1e-12)
	assert.InDelta(t, 5.0, grads[c].FloatAt(0), 1e-12)
}

func TestBackwardDivMatMul(t *testing.T) {
	b := newRecording()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	v := tensor.MustFromSlice([]float64{1, 1}, tensor.Shape{2, 1})
	y := b.MatMul(a, v) // [3, 7]
	s := b.Sum(y)

	grads := b.Tape().Backward(s, ones(s), b)
	// d sum(Av)/dA = 1 vᵀ, d/dv = Aᵀ 1.
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[a].AsFloat64())
	assert.Equal(t, []float64{4, 6}, grads[v].AsFloat64())
}

// TestGradientMatchesFiniteDifference checks f(x) = sqrt(x) * x
// against a central difference.
func TestGradientMatchesFiniteDifference(t *testing.T) {
	point := 2.5
	f := func(x float64) float64 { return math.Sqrt(x) * x }

	b := newRecording()
	x := tensor.MustFromSlice([]float64{point}, tensor.Shape{1})
	y := b.Mul(b.Sqrt(x), x)

	grads := b.Tape().Backward(y, ones(y), b)
	got := grads[x].FloatAt(0)

	eps := 1e-6
	want := (f(point+eps) - f(point-eps)) / (2 * eps)
	assert.InDelta(t, want, got, 1e-5)
}

func TestBackwardAccumulatesFanOut(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{4}, tensor.Shape{1})
	y := b.Add(b.Mul(x, x), x) // y = x² + x, dy/dx = 2x + 1 = 9

	grads := b.Tape().Backward(y, ones(y), b)
	assert.InDelta(t, 9.0, grads[x].FloatAt(0), 1e-12)
}

func TestNormGradient(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{3, 4}, tensor.Shape{2})
	n := b.Norm(x) // 5

	grads := b.Tape().Backward(n, ones(n), b)
	// d||x||/dx = x / ||x||.
	assert.InDelta(t, 0.6, grads[x].FloatAt(0), 1e-12)
	assert.InDelta(t, 0.8, grads[x].FloatAt(1), 1e-12)
}

// TestNormGradientAtZero: the derivative of the norm at zero is zero,
// not NaN.
func TestNormGradientAtZero(t *testing.T) {
	b := newRecording()
	x := tensor.RawZeros(tensor.Shape{2}, tensor.Float64)
	n := b.Norm(x)

	grads := b.Tape().Backward(n, ones(n), b)
	require.Contains(t, grads, x)
	assert.Equal(t, 0.0, grads[x].FloatAt(0))
	assert.Equal(t, 0.0, grads[x].FloatAt(1))
}

// TestCastGradient: the derivative of a cast is the cast of the
// derivative.
func TestCastGradient(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float32{2}, tensor.Shape{1})
	y := b.Mul(b.Cast(x, tensor.Float64), b.Cast(x, tensor.Float64))

	grads := b.Tape().Backward(y, ones(y), b)
	require.Contains(t, grads, x)
	assert.Equal(t, tensor.Float32, grads[x].DType())
	assert.InDelta(t, 4.0, float64(grads[x].AsFloat32()[0]), 1e-6)
}

func TestCastGradientStopsAtIntegers(t *testing.T) {
	b := newRecording()
	i := tensor.MustFromSlice([]int32{3}, tensor.Shape{1})
	x := b.Cast(i, tensor.Float64)
	y := b.Mul(x, x)

	grads := b.Tape().Backward(y, ones(y), b)
	assert.NotContains(t, grads, i)
}

func TestCatNarrowGradients(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2})
	y := tensor.MustFromSlice([]float64{3, 4, 5}, tensor.Shape{3})
	c := b.Cat([]*tensor.RawTensor{x, y}, 0)
	mid := b.Narrow(c, 0, 1, 3) // [2, 3, 4]
	s := b.Sum(mid)

	grads := b.Tape().Backward(s, ones(s), b)
	assert.Equal(t, []float64{0, 1}, grads[x].AsFloat64())
	assert.Equal(t, []float64{1, 1, 0}, grads[y].AsFloat64())
}

func TestWhereGradientRouting(t *testing.T) {
	b := newRecording()
	cond := tensor.MustFromSlice([]bool{true, false}, tensor.Shape{2})
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2})
	y := tensor.MustFromSlice([]float64{3, 4}, tensor.Shape{2})
	s := b.Sum(b.Where(cond, x, y))

	grads := b.Tape().Backward(s, ones(s), b)
	assert.Equal(t, []float64{1, 0}, grads[x].AsFloat64())
	assert.Equal(t, []float64{0, 1}, grads[y].AsFloat64())
}

// TestJVPSquare checks the forward sweep: d(x*x) = 2x dx.
func TestJVPSquare(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{3}, tensor.Shape{1})
	y := b.Mul(x, x)

	seeds := map[*tensor.RawTensor]*tensor.RawTensor{x: ones(x)}
	tangents := b.Tape().JVP(seeds, b)
	require.Contains(t, tangents, y)
	assert.InDelta(t, 6.0, tangents[y].FloatAt(0), 1e-12)
}

func TestJVPSkipsUnseededBranches(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{1}, tensor.Shape{1})
	z := tensor.MustFromSlice([]float64{10}, tensor.Shape{1})
	u := b.Mul(z, z)
	y := b.Add(x, u)

	seeds := map[*tensor.RawTensor]*tensor.RawTensor{x: ones(x)}
	tangents := b.Tape().JVP(seeds, b)
	assert.NotContains(t, tangents, u)
	require.Contains(t, tangents, y)
	assert.InDelta(t, 1.0, tangents[y].FloatAt(0), 1e-12)
}

func TestJVPNormAtZeroIsZero(t *testing.T) {
	b := newRecording()
	x := tensor.RawZeros(tensor.Shape{2}, tensor.Float64)
	n := b.Norm(x)

	seeds := map[*tensor.RawTensor]*tensor.RawTensor{x: ones(x)}
	tangents := b.Tape().JVP(seeds, b)
	require.Contains(t, tangents, n)
	assert.Equal(t, 0.0, tangents[n].FloatAt(0))
}

func TestClearResetsTape(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{1}, tensor.Shape{1})
	_ = b.Add(x, x)
	require.Equal(t, 1, b.Tape().NumOps())

	b.Tape().Clear()
	assert.Equal(t, 0, b.Tape().NumOps())
	assert.True(t, b.Tape().IsRecording())
}

func TestSweepDoesNotGrowTape(t *testing.T) {
	b := newRecording()
	x := tensor.MustFromSlice([]float64{2}, tensor.Shape{1})
	y := b.Mul(x, x)
	before := b.Tape().NumOps()

	_ = b.Tape().Backward(y, ones(y), b)
	assert.Equal(t, before, b.Tape().NumOps())
	assert.True(t, b.Tape().IsRecording())
}
