package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// SubOp represents elementwise subtraction: output = a - b.
type SubOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward routes the gradient to a and its negation to b.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceTo(outputGrad, op.inputs[0], backend),
		reduceTo(backend.MulScalar(outputGrad, -1), op.inputs[1], backend),
	}
}

// Pushforward subtracts the input tangents.
func (op *SubOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	ta := tangentOr(tangents[0], op.inputs[0])
	tb := tangentOr(tangents[1], op.inputs[1])
	return backend.Sub(ta, tb)
}

// Inputs returns the input tensors [a, b].
func (op *SubOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor a - b.
func (op *SubOp) Output() *tensor.RawTensor { return op.output }
