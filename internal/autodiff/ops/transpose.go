package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// TransposeOp represents a dimension permutation. The gradient is the
// inverse permutation of the output gradient.
type TransposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a new TransposeOp with the resolved axes.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{input: x, output: output, axes: axes}
}

func (op *TransposeOp) inverseAxes() []int {
	inv := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inv[ax] = i
	}
	return inv
}

// Backward applies the inverse permutation to the output gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad, op.inverseAxes()...)}
}

// Pushforward permutes the input tangent.
func (op *TransposeOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Transpose(tangentOr(tangents[0], op.input), op.axes...)
}

// Inputs returns the input tensor.
func (op *TransposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the permuted output tensor.
func (op *TransposeOp) Output() *tensor.RawTensor { return op.output }
