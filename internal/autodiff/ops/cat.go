package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// CatOp represents concatenation along a dimension. The backward pass
// splits the output gradient back into per-input slices.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{inputs: inputs, output: output, dim: dim}
}

// Backward narrows the output gradient into one slice per input.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	start := 0
	for i, in := range op.inputs {
		length := in.Shape()[op.dim]
		grads[i] = backend.Narrow(outputGrad, op.dim, start, length)
		start += length
	}
	return grads
}

// Pushforward concatenates the input tangents.
func (op *CatOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	ts := make([]*tensor.RawTensor, len(op.inputs))
	for i, in := range op.inputs {
		ts[i] = tangentOr(tangents[i], in)
	}
	return backend.Cat(ts, op.dim)
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the concatenated output tensor.
func (op *CatOp) Output() *tensor.RawTensor { return op.output }
