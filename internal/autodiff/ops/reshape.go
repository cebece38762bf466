package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// ReshapeOp represents a shape reinterpretation. Without recording it,
// gradients would stop at the reshaped view instead of flowing back to
// the original tensor.
type ReshapeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{input: x, output: output}
}

// Backward reshapes the output gradient back to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.input.Shape())}
}

// Pushforward reshapes the input tangent to the output shape.
func (op *ReshapeOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Reshape(tangentOr(tangents[0], op.input), op.output.Shape())
}

// Inputs returns the input tensor.
func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the reshaped output tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor { return op.output }
