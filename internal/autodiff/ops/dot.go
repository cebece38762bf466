package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// DotOp represents an inner product reduced to a scalar:
// output = sum(a * b).
type DotOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewDotOp creates a new DotOp.
func NewDotOp(a, b, output *tensor.RawTensor) *DotOp {
	return &DotOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes [grad*b, grad*a], reshaped to each input's shape.
func (op *DotOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.Reshape(backend.Mul(b, outputGrad), a.Shape())
	gradB := backend.Reshape(backend.Mul(a, outputGrad), b.Shape())
	return []*tensor.RawTensor{gradA, gradB}
}

// Pushforward computes dot(ta, b) + dot(a, tb).
func (op *DotOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	var out *tensor.RawTensor
	if tangents[0] != nil {
		out = backend.Dot(tangents[0], b)
	}
	if tangents[1] != nil {
		t := backend.Dot(a, tangents[1])
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
func (op *DotOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the scalar inner product.
func (op *DotOp) Output() *tensor.RawTensor { return op.output }
