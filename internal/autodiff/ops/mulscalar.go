package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// MulScalarOp represents multiplication by a constant scalar.
type MulScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scalar float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{input: x, output: output, scalar: scalar}
}

// Backward scales the output gradient by the constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Pushforward scales the input tangent by the constant.
func (op *MulScalarOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(tangentOr(tangents[0], op.input), op.scalar)
}

// Inputs returns the input tensor.
func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scaled output tensor.
func (op *MulScalarOp) Output() *tensor.RawTensor { return op.output }
