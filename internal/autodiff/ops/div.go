package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// DivOp represents elementwise division: output = a / b.
// d(a/b)/da = 1/b, d(a/b)/db = -a/b^2 = -output/b.
type DivOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes [grad/b, -grad*output/b].
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.Div(outputGrad, b)
	gradB := backend.MulScalar(backend.Div(backend.Mul(outputGrad, op.output), b), -1)
	return []*tensor.RawTensor{
		reduceTo(gradA, a, backend),
		reduceTo(gradB, b, backend),
	}
}

// Pushforward computes (ta - output*tb) / b.
func (op *DivOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	b := op.inputs[1]
	ta := tangentOr(tangents[0], op.inputs[0])
	num := ta
	if tangents[1] != nil {
		num = backend.Sub(ta, backend.Mul(op.output, tangents[1]))
	}
	return backend.Div(num, b)
}

// Inputs returns the input tensors [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor a / b.
func (op *DivOp) Output() *tensor.RawTensor { return op.output }
