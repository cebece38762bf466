package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// AddOp represents elementwise addition: output = a + b.
// The gradient flows unchanged to both inputs.
type AddOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward routes the output gradient to both inputs.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceTo(outputGrad, op.inputs[0], backend),
		reduceTo(outputGrad, op.inputs[1], backend),
	}
}

// Pushforward adds the input tangents.
func (op *AddOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	switch {
	case tangents[0] == nil:
		return backend.Add(zerosLike(op.output), tangents[1])
	case tangents[1] == nil:
		return backend.Add(tangents[0], zerosLike(op.output))
	default:
		return backend.Add(tangents[0], tangents[1])
	}
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.RawTensor { return op.output }
