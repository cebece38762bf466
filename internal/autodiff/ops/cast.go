package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// CastOp represents a dtype conversion carrying a custom derivative
// rule: the derivative of a cast is the cast of the derivative. This
// keeps dtype coercions (for example promoting inputs to floating
// point before a solve) differentiable.
type CastOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewCastOp creates a new CastOp.
func NewCastOp(x, output *tensor.RawTensor) *CastOp {
	return &CastOp{input: x, output: output}
}

// Backward casts the gradient back to the input dtype. No gradient
// flows to non-floating inputs.
func (op *CastOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if !op.input.DType().IsFloat() {
		return []*tensor.RawTensor{nil}
	}
	return []*tensor.RawTensor{backend.Cast(outputGrad, op.input.DType())}
}

// Pushforward casts the tangent to the output dtype.
func (op *CastOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Cast(tangentOr(tangents[0], op.input), op.output.DType())
}

// Inputs returns the input tensor.
func (op *CastOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the converted output tensor.
func (op *CastOp) Output() *tensor.RawTensor { return op.output }
