package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// MatMulOp represents matrix multiplication: output = a @ b.
//
// Backward:
//   - d(A@B)/dA = grad @ B^T
//   - d(A@B)/dB = A^T @ grad
type MatMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes [grad @ b^T, a^T @ grad].
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.MatMul(outputGrad, backend.Transpose(b, 1, 0))
	gradB := backend.MatMul(backend.Transpose(a, 1, 0), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}

// Pushforward computes ta@b + a@tb.
func (op *MatMulOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	var out *tensor.RawTensor
	if tangents[0] != nil {
		out = backend.MatMul(tangents[0], b)
	}
	if tangents[1] != nil {
		t := backend.MatMul(a, tangents[1])
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
func (op *MatMulOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor a @ b.
func (op *MatMulOp) Output() *tensor.RawTensor { return op.output }
