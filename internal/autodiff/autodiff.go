// Package autodiff implements automatic differentiation using the
// decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient
// tracking through a GradientTape. Every differentiable operation is
// recorded with enough state to run both sweeps:
//   - Reverse mode: Backward walks the tape backwards applying the
//     chain rule, accumulating gradients per input tensor.
//   - Forward mode: JVP walks the tape in execution order propagating
//     tangents.
//
// Usage:
//
//	cpuBackend := cpu.New()
//	ad := autodiff.New(cpuBackend)
//	ad.Tape().StartRecording()
//
//	y := ad.Mul(x, x) // y = x²
//
//	grads := ad.Tape().Backward(y, ones, ad)
//	fmt.Println(grads[x]) // dy/dx = 2x
package autodiff

import (
	"github.com/resolvent-ml/resolvent/internal/autodiff/ops"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in
// a GradientTape.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Recorder is satisfied by backends that record operations on a tape.
// Callers that need to attach custom derivative rules (or detect an
// active recording) can type-assert any tensor.Backend against it.
type Recorder interface {
	tensor.Backend
	Tape() *GradientTape
	InnerBackend() tensor.Backend
}

// Tape returns the gradient tape for manual control: starting and
// stopping recording, clearing between iterations, and running sweeps.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// InnerBackend returns the wrapped backend as a tensor.Backend.
func (b *AutodiffBackend[B]) InnerBackend() tensor.Backend {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "autodiff(" + b.inner.Name() + ")"
}

// Add performs elementwise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	// Prevent inplace reuse that would corrupt recorded inputs: while
	// IsUnique() is false the inner backend must allocate fresh output.
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Add(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs elementwise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Sub(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs elementwise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Mul(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs elementwise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Div(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.MulScalar(x, scalar)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	}
	return result
}

// Sqrt computes the elementwise square root and records the operation.
func (b *AutodiffBackend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Sqrt(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSqrtOp(x, result))
	}
	return result
}

// Abs computes the elementwise absolute value and records the
// operation.
func (b *AutodiffBackend[B]) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Abs(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAbsOp(x, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.MatMul(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// Transpose permutes dimensions and records the operation.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	// Resolve the default (full reversal) here so the recorded axes
	// are always explicit and invertible during the backward sweep.
	if len(axes) == 0 {
		axes = make([]int, t.Shape().Rank())
		for i := range axes {
			axes[i] = len(axes) - 1 - i
		}
	}
	result := b.inner.Transpose(t, axes...)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

// Reshape changes the tensor shape and records the operation.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	result := b.inner.Reshape(t, newShape)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Cat concatenates tensors along a dimension and records the
// operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	for _, t := range tensors {
		defer t.ForceNonUnique()()
	}

	result := b.inner.Cat(tensors, dim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCatOp(tensors, result, dim))
	}
	return result
}

// Narrow slices along a dimension and records the operation.
func (b *AutodiffBackend[B]) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	result := b.inner.Narrow(t, dim, start, length)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNarrowOp(t, result, dim, start))
	}
	return result
}

// Sum reduces to the total and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Sum(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result))
	}
	return result
}

// Dot computes the flattened inner product and records the operation.
func (b *AutodiffBackend[B]) Dot(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Dot(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDotOp(x, y, result))
	}
	return result
}

// Norm computes the Euclidean norm and records the operation. NormOp
// carries a custom derivative rule that is zero, not NaN, when the
// norm is zero or infinite.
func (b *AutodiffBackend[B]) Norm(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Norm(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNormOp(x, result))
	}
	return result
}

// MaxAll returns the maximum element. The maximum is used only for
// diagnostics and tolerances, so it is deliberately not recorded.
func (b *AutodiffBackend[B]) MaxAll(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.MaxAll(x)
}

// Where selects elementwise and records the operation. The condition
// receives no gradient.
func (b *AutodiffBackend[B]) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	defer cond.ForceNonUnique()()
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Where(cond, x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewWhereOp(cond, x, y, result))
	}
	return result
}

// Cast converts the dtype and records the operation. CastOp carries a
// custom derivative rule: the derivative of a cast is the cast of the
// derivative.
func (b *AutodiffBackend[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Cast(x, dtype)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCastOp(x, result))
	}
	return result
}
