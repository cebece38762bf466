package cpu

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// matmulKernel computes (M,K) @ (K,N) in i-k-j order so the inner loop
// walks both operands contiguously.
func matmulKernel[T constraints.Float](dst, a, b []T, m, k, n int) {
	for i := 0; i < m; i++ {
		arow := a[i*k : (i+1)*k]
		drow := dst[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			aik := arow[kk]
			if aik == 0 {
				continue
			}
			brow := b[kk*n : (kk+1)*n]
			for j := 0; j < n; j++ {
				drow[j] += aik * brow[j]
			}
		}
	}
}

// MatMul multiplies two 2-D tensors: (M,K) @ (K,N) -> (M,N).
// Non-float operands are promoted to the default floating dtype.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	as, bs := a.Shape(), b.Shape()
	if as.Rank() != 2 || bs.Rank() != 2 {
		panic(fmt.Sprintf("matmul: operands must be 2-D, got %v and %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("matmul: inner dimensions differ, %v vs %v", as, bs))
	}

	outType := tensor.PromoteTypes(a.DType(), b.DType())
	if !outType.IsFloat() {
		outType = tensor.DefaultFloat()
	}
	wt := workType(outType)
	wa, wb := cpu.Cast(a, wt), cpu.Cast(b, wt)
	m, k, n := as[0], as[1], bs[1]
	out := tensor.MustRaw(tensor.Shape{m, n}, wt)

	switch wt {
	case tensor.Float32:
		matmulKernel(out.AsFloat32(), wa.AsFloat32(), wb.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulKernel(out.AsFloat64(), wa.AsFloat64(), wb.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported work dtype %s", wt))
	}
	return cpu.Cast(out, outType)
}
