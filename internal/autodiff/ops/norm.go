package ops

import (
	"math"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// NormOp represents the Euclidean norm with a custom derivative rule.
//
// The true derivative of |x| in direction t is dot(x,t)/|x|, which is
// undefined when |x| is zero and overflows when it is infinite. Both
// cases are deliberately defined to have zero derivative so gradients
// stay finite instead of turning into NaN.
type NormOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewNormOp creates a new NormOp.
func NewNormOp(x, output *tensor.RawTensor) *NormOp {
	return &NormOp{input: x, output: output}
}

func (op *NormOp) singular() (float64, bool) {
	v := op.output.FloatAt(0)
	return v, v == 0 || math.IsInf(v, 0)
}

// Backward computes grad * x / |x|, or zero at the singularity.
func (op *NormOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	v, bad := op.singular()
	if bad {
		return []*tensor.RawTensor{zerosLike(op.input)}
	}
	g := outputGrad.FloatAt(0)
	return []*tensor.RawTensor{backend.MulScalar(op.input, g/v)}
}

// Pushforward computes dot(x, t) / |x|, or zero at the singularity.
func (op *NormOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	v, bad := op.singular()
	if bad {
		return zerosLike(op.output)
	}
	t := tangentOr(tangents[0], op.input)
	return backend.MulScalar(backend.Reshape(backend.Dot(op.input, t), op.output.Shape()), 1/v)
}

// Inputs returns the input tensor.
func (op *NormOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scalar norm.
func (op *NormOp) Output() *tensor.RawTensor { return op.output }
