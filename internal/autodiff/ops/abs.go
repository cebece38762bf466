package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// AbsOp represents the elementwise absolute value.
// d|x|/dx = sign(x); the subgradient at zero is taken as zero.
type AbsOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewAbsOp creates a new AbsOp.
func NewAbsOp(x, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{input: x, output: output}
}

// sign builds the elementwise sign tensor of the input.
func (op *AbsOp) sign() *tensor.RawTensor {
	s := tensor.RawZeros(op.input.Shape(), op.input.DType())
	for i := 0; i < s.NumElements(); i++ {
		switch v := op.input.FloatAt(i); {
		case v > 0:
			s.SetFloatAt(i, 1)
		case v < 0:
			s.SetFloatAt(i, -1)
		}
	}
	return s
}

// Backward computes grad * sign(x).
func (op *AbsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.sign())}
}

// Pushforward computes tangent * sign(x).
func (op *AbsOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.Mul(tangentOr(tangents[0], op.input), op.sign())
}

// Inputs returns the input tensor.
func (op *AbsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the elementwise absolute value.
func (op *AbsOp) Output() *tensor.RawTensor { return op.output }
