package solver_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvent-ml/resolvent/internal/backend/cpu"
	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/operator"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/solver"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

func matrixOp(t *testing.T, data []float64, rows, cols int, tags operator.Tag) operator.LinearOperator {
	t.Helper()
	op, err := operator.NewMatrix(tensor.MustFromSlice(data, tensor.Shape{rows, cols}), tags)
	require.NoError(t, err)
	return op
}

func leafVec(data ...float64) *pytree.Value {
	return pytree.Leaf(tensor.MustFromSlice(data, tensor.Shape{len(data)}))
}

func assertSolution(t *testing.T, value *pytree.Value, want []float64, tol float64) {
	t.Helper()
	got := value.Value().AsFloat64()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol)
	}
}

// The 2x2 system [[1, 5], [-2, -2]] x = [3, 4] has the exact solution
// [-3.25, 1.25]. Every general-purpose solver must agree on it.
func TestGeneralSolversAgree(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 5, -2, -2}, 2, 2, 0)
	rhs := leafVec(3, 4)

	solvers := []solver.Solver{
		solver.LU{},
		solver.QR{},
		solver.NewSVD(),
		solver.NewNormalCG(1e-12, 0, 0),
		solver.NewGMRES(1e-12, 0, 0, 0),
	}
	for _, s := range solvers {
		value, result, _, err := s.Solve(b, op, rhs)
		require.NoError(t, err, s.Name())
		require.Equal(t, solver.Success, result, s.Name())
		assertSolution(t, value, []float64{-3.25, 1.25}, 1e-8)
	}
}

func TestLUSingular(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 2, 2, 4}, 2, 2, 0)

	value, result, stats, err := solver.LU{}.Solve(b, op, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, solver.Singular, result)
	assert.Equal(t, 0, stats.Steps)
	assert.True(t, math.IsNaN(stats.Residual))

	// The value is structurally valid but NaN-filled.
	got := value.Value().AsFloat64()
	require.Len(t, got, 2)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestLURejectsNonSquare(t *testing.T) {
	op := matrixOp(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3, 0)
	assert.Error(t, solver.LU{}.Check(op))
	assert.NoError(t, solver.QR{}.Check(op))
}

func TestQRLeastSquares(t *testing.T) {
	b := cpu.New()
	// Overdetermined: argmin ||Ax - b|| is [1, 2].
	op := matrixOp(t, []float64{1, 0, 0, 1, 1, 1}, 3, 2, 0)

	value, result, _, err := solver.QR{}.Solve(b, op, leafVec(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 2}, 1e-10)
}

func TestQRMinimumNorm(t *testing.T) {
	b := cpu.New()
	// Underdetermined: the minimum-norm solution of x0 + x1 = 2.
	op := matrixOp(t, []float64{1, 1}, 1, 2, 0)

	value, result, _, err := solver.QR{}.Solve(b, op, leafVec(2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 1}, 1e-10)
}

func TestSVDPseudoinverse(t *testing.T) {
	b := cpu.New()
	// Rank-deficient: the pseudoinverse drops the null direction
	// instead of failing.
	op := matrixOp(t, []float64{1, 0, 0, 0}, 2, 2, 0)

	value, result, _, err := solver.NewSVD().Solve(b, op, leafVec(2, 3))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{2, 0}, 1e-10)
}

func TestSVDWideOperator(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 1}, 1, 2, 0)

	value, result, _, err := solver.NewSVD().Solve(b, op, leafVec(2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 1}, 1e-10)
}

func TestSVDRcondCutoff(t *testing.T) {
	b := cpu.New()
	// Singular values 1 and 1e-3; an rcond of 1e-2 zeroes the second.
	op := matrixOp(t, []float64{1, 0, 0, 1e-3}, 2, 2, 0)

	value, result, _, err := solver.SVD{Rcond: 1e-2}.Solve(b, op, leafVec(1, 1))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 0}, 1e-10)
}

func TestCholesky(t *testing.T) {
	b := cpu.New()
	tags := operator.Symmetric | operator.PositiveSemidefinite
	op := matrixOp(t, []float64{4, 1, 1, 3}, 2, 2, tags)

	value, result, _, err := solver.Cholesky{}.Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1.0 / 11, 7.0 / 11}, 1e-12)
}

func TestCholeskyNegativeSemidefinite(t *testing.T) {
	b := cpu.New()
	tags := operator.Symmetric | operator.NegativeSemidefinite
	op := matrixOp(t, []float64{-4, -1, -1, -3}, 2, 2, tags)

	value, result, _, err := solver.Cholesky{}.Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{-1.0 / 11, -7.0 / 11}, 1e-12)
}

func TestCholeskyIndefiniteReportsSingular(t *testing.T) {
	b := cpu.New()
	tags := operator.Symmetric | operator.PositiveSemidefinite
	op := matrixOp(t, []float64{1, 0, 0, -1}, 2, 2, tags)

	value, result, _, err := solver.Cholesky{}.Solve(b, op, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, solver.Singular, result)
	assert.True(t, math.IsNaN(value.Value().FloatAt(0)))
}

func TestCholeskyCheckRequiresTags(t *testing.T) {
	op := matrixOp(t, []float64{4, 1, 1, 3}, 2, 2, operator.Symmetric)
	assert.Error(t, solver.Cholesky{}.Check(op))

	untagged := matrixOp(t, []float64{4, 1, 1, 3}, 2, 2, 0)
	assert.Error(t, solver.Cholesky{}.Check(untagged))
}

func TestDiagonal(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{2, 0, 0, 4}, 2, 2, operator.Diagonal)

	value, result, _, err := solver.Diagonal{}.Solve(b, op, leafVec(2, 8))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 2}, 0)
}

func TestDiagonalSingular(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{2, 0, 0, 0}, 2, 2, operator.Diagonal)

	value, result, _, err := solver.Diagonal{}.Solve(b, op, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, solver.Singular, result)
	assert.True(t, math.IsNaN(value.Value().FloatAt(1)))
}

func TestDiagonalNearZeroEntryIsSingular(t *testing.T) {
	b := cpu.New()
	// 1e-20 is far below eps relative to the largest entry, so the
	// system is singular for solving purposes even though no entry is
	// exactly zero.
	op := matrixOp(t, []float64{1, 0, 0, 1e-20}, 2, 2, operator.Diagonal)

	value, result, _, err := solver.Diagonal{}.Solve(b, op, leafVec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, solver.Singular, result)
	assert.True(t, math.IsNaN(value.Value().FloatAt(1)))
}

func TestDiagonalUnitShortcut(t *testing.T) {
	b := cpu.New()
	// With a unit diagonal tag the entries are never read, so even a
	// zero diagonal solves to the rhs itself.
	tags := operator.Diagonal | operator.UnitDiagonal
	op := matrixOp(t, []float64{0, 0, 0, 0}, 2, 2, tags)

	value, result, _, err := solver.Diagonal{}.Solve(b, op, leafVec(3, 4))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{3, 4}, 0)
}

func TestTriangular(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 0, 4, 2}, 2, 2, operator.LowerTriangular)

	value, result, _, err := solver.Triangular{}.Solve(b, op, leafVec(3, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{3, -5}, 1e-12)
}

func TestTriangularUpper(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{2, 4, 0, 1}, 2, 2, operator.UpperTriangular)

	value, result, _, err := solver.Triangular{}.Solve(b, op, leafVec(2, 3))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{-5, 3}, 1e-12)
}

func TestTriangularFloat32CastsBack(t *testing.T) {
	b := cpu.New()
	m := tensor.MustFromSlice([]float32{1, 0, 4, 2}, tensor.Shape{2, 2})
	op, err := operator.NewMatrix(m, operator.LowerTriangular)
	require.NoError(t, err)

	value, result, _, err := solver.Triangular{}.Solve(b, op, leafVec(3, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assert.Equal(t, tensor.Float32, value.Value().DType())
	assert.Equal(t, []float32{3, -5}, value.Value().AsFloat32())
}

func TestTridiagonal(t *testing.T) {
	b := cpu.New()
	// A = tridiag(-1, 2, -1), b = A [1 2 3 4].
	data := []float64{
		2, -1, 0, 0,
		-1, 2, -1, 0,
		0, -1, 2, -1,
		0, 0, -1, 2,
	}
	op := matrixOp(t, data, 4, 4, operator.Tridiagonal)

	value, result, _, err := solver.Tridiagonal{}.Solve(b, op, leafVec(0, 0, 0, 5))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 2, 3, 4}, 1e-12)
}

func TestCG(t *testing.T) {
	b := cpu.New()
	tags := operator.Symmetric | operator.PositiveSemidefinite
	op := matrixOp(t, []float64{4, 1, 1, 3}, 2, 2, tags)

	value, result, stats, err := solver.NewCG(1e-12, 0, 0).Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assert.Greater(t, stats.Steps, 0)
	assert.LessOrEqual(t, stats.Residual, 1e-10)
	assertSolution(t, value, []float64{1.0 / 11, 7.0 / 11}, 1e-8)
}

func TestCGNegativeSemidefinite(t *testing.T) {
	b := cpu.New()
	tags := operator.Symmetric | operator.NegativeSemidefinite
	op := matrixOp(t, []float64{-4, -1, -1, -3}, 2, 2, tags)

	value, result, _, err := solver.NewCG(1e-12, 0, 0).Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{-1.0 / 11, -7.0 / 11}, 1e-8)
}

func TestCGCheckRequiresTags(t *testing.T) {
	op := matrixOp(t, []float64{4, 1, 1, 3}, 2, 2, 0)
	assert.Error(t, solver.NewCG(1e-6, 0, 0).Check(op))

	wide := matrixOp(t, []float64{1, 1}, 1, 2, operator.Symmetric|operator.PositiveSemidefinite)
	assert.Error(t, solver.NewCG(1e-6, 0, 0).Check(wide))
}

// TestCGOnTrees solves a block system without ever flattening it.
func TestCGOnTrees(t *testing.T) {
	b := cpu.New()
	blocks := pytree.List(
		pytree.List(
			pytree.Leaf(tensor.MustFromSlice([]float64{4}, tensor.Shape{1, 1})),
			pytree.Leaf(tensor.MustFromSlice([]float64{1}, tensor.Shape{1, 1})),
		),
		pytree.List(
			pytree.Leaf(tensor.MustFromSlice([]float64{1}, tensor.Shape{1, 1})),
			pytree.Leaf(tensor.MustFromSlice([]float64{3}, tensor.Shape{1, 1})),
		),
	)
	outStructure := pytree.List(
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
		pytree.Leaf(pytree.ArraySpec{Shape: tensor.Shape{1}, DType: tensor.Float64}),
	)
	tags := operator.Symmetric | operator.PositiveSemidefinite
	op, err := operator.NewPyTree(blocks, outStructure, tags)
	require.NoError(t, err)

	rhs := pytree.List(leafVec(1), leafVec(2))
	value, result, _, err := solver.NewCG(1e-12, 0, 0).Solve(b, op, rhs)
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)

	leaves := value.Leaves()
	assert.InDelta(t, 1.0/11, leaves[0].FloatAt(0), 1e-8)
	assert.InDelta(t, 7.0/11, leaves[1].FloatAt(0), 1e-8)
}

func TestCGBreakdownOnIndefinite(t *testing.T) {
	b := cpu.New()
	// Mistagged: the matrix is indefinite, so p'Ap goes non-positive.
	tags := operator.Symmetric | operator.PositiveSemidefinite
	op := matrixOp(t, []float64{1, 0, 0, -1}, 2, 2, tags)

	value, result, _, err := solver.NewCG(1e-12, 0, 0).Solve(b, op, leafVec(0, 1))
	require.NoError(t, err)
	assert.Equal(t, solver.Breakdown, result)
	assert.True(t, math.IsNaN(value.Value().FloatAt(0)))
}

func TestNormalCGLeastSquares(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 0, 0, 1, 1, 1}, 3, 2, 0)

	value, result, _, err := solver.NewNormalCG(1e-12, 0, 0).Solve(b, op, leafVec(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 2}, 1e-8)
}

func TestGMRESNonSymmetric(t *testing.T) {
	b := cpu.New()
	// Clearly non-symmetric, beyond CG's reach.
	op := matrixOp(t, []float64{0, 1, -1, 0}, 2, 2, 0)

	value, result, _, err := solver.NewGMRES(1e-12, 0, 0, 0).Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{-2, 1}, 1e-10)
}

func TestGMRESLargeSystemResidual(t *testing.T) {
	b := cpu.New()
	// Random dense 100x100, shifted on the diagonal so the spectrum stays
	// well away from zero.
	n := 100
	rng := rand.New(rand.NewSource(1))
	a := tensor.RawRandn(tensor.Shape{n, n}, tensor.Float64, rng)
	diag := a.AsFloat64()
	for i := 0; i < n; i++ {
		diag[i*n+i] += float64(n)
	}
	op, err := operator.NewMatrix(a, 0)
	require.NoError(t, err)
	rhs := pytree.Leaf(tensor.RawRandn(tensor.Shape{n}, tensor.Float64, rng))

	value, result, stats, err := solver.NewGMRES(1e-10, 0, 10, 0).Solve(b, op, rhs)
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)

	// Verify through the relative residual rather than a reference
	// solution.
	ax, err := op.Mv(b, value)
	require.NoError(t, err)
	diff := b.Sub(ax.Value(), rhs.Value())
	rel := b.Norm(diff).FloatAt(0) / b.Norm(rhs.Value()).FloatAt(0)
	assert.Less(t, rel, 1e-8)
	assert.Greater(t, stats.Steps, 0)
}

func TestGMRESNonConvergenceKeepsIterate(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{4, 1, 2, 3}, 2, 2, 0)

	value, result, stats, err := solver.NewGMRES(1e-14, 0, 1, 1).Solve(b, op, leafVec(1, 2))
	require.NoError(t, err)
	assert.Equal(t, solver.NonConvergence, result)
	assert.Equal(t, 1, stats.Steps)
	// The best iterate so far is returned, not NaN.
	for _, v := range value.Value().AsFloat64() {
		assert.False(t, math.IsNaN(v))
	}
}

func TestGMRESRejectsNonSquare(t *testing.T) {
	op := matrixOp(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3, 0)
	assert.Error(t, solver.NewGMRES(1e-6, 0, 0, 0).Check(op))
}

func TestSolveRejectsMismatchedRhs(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{1, 0, 0, 1}, 2, 2, 0)

	_, _, _, err := solver.LU{}.Solve(b, op, leafVec(1, 2, 3))
	assert.Error(t, err)
}

func TestIntegerRhsPromotes(t *testing.T) {
	b := cpu.New()
	op := matrixOp(t, []float64{2, 0, 0, 4}, 2, 2, 0)
	rhs := pytree.Leaf(tensor.MustFromSlice([]int32{2, 8}, tensor.Shape{2}))

	value, result, _, err := solver.LU{}.Solve(b, op, rhs)
	require.NoError(t, err)
	require.Equal(t, solver.Success, result)
	assertSolution(t, value, []float64{1, 2}, 1e-12)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", solver.Success.String())
	assert.Equal(t, "singular", solver.Singular.String())
	assert.Equal(t, "non_convergence", solver.NonConvergence.String())
	assert.Equal(t, "breakdown", solver.Breakdown.String())
}

func TestSolversAgreeWithDefaultRcond(t *testing.T) {
	// ResolveRcond ties the SVD cutoff to the operator dtype.
	assert.Equal(t, tensor.Eps(tensor.Float64)*3,
		misc.ResolveRcond(math.NaN(), 3, 2, tensor.Float64))
}
