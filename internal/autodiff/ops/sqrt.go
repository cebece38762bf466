package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// SqrtOp represents the elementwise square root.
// d(sqrt(x))/dx = 1 / (2*sqrt(x)).
type SqrtOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(x, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{input: x, output: output}
}

// Backward computes grad / (2 * output).
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, backend.MulScalar(op.output, 2))}
}

// Pushforward computes tangent / (2 * output).
func (op *SqrtOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	t := tangentOr(tangents[0], op.input)
	return backend.Div(t, backend.MulScalar(op.output, 2))
}

// Inputs returns the input tensor.
func (op *SqrtOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the elementwise square root.
func (op *SqrtOp) Output() *tensor.RawTensor { return op.output }
