package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// MulOp represents elementwise multiplication: output = a * b.
// d(a*b)/da = b, d(a*b)/db = a.
type MulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes [grad*b, grad*a].
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		reduceTo(backend.Mul(outputGrad, b), a, backend),
		reduceTo(backend.Mul(outputGrad, a), b, backend),
	}
}

// Pushforward computes ta*b + a*tb.
func (op *MulOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	var out *tensor.RawTensor
	if tangents[0] != nil {
		out = backend.Mul(tangents[0], b)
	}
	if tangents[1] != nil {
		t := backend.Mul(a, tangents[1])
		if out == nil {
			out = t
		} else {
			out = backend.Add(out, t)
		}
	}
	if out == nil {
		out = zerosLike(op.output)
	}
	return out
}

// Inputs returns the input tensors [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor a * b.
func (op *MulOp) Output() *tensor.RawTensor { return op.output }
