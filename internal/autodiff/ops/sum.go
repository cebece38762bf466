package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// SumOp represents a full reduction to a scalar. The gradient of a sum
// broadcasts the scalar cotangent across the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: x, output: output}
}

// Backward broadcasts the scalar gradient across the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	ones := tensor.RawOnes(op.input.Shape(), outputGrad.DType())
	return []*tensor.RawTensor{backend.Mul(ones, outputGrad)}
}

// Pushforward sums the input tangent.
func (op *SumOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Sum(tangentOr(tangents[0], op.input))
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }
