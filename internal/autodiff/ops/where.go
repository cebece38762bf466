package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// WhereOp represents an elementwise select. Gradients are routed to
// whichever branch was taken; the condition itself is not
// differentiable and receives no gradient.
type WhereOp struct {
	cond   *tensor.RawTensor
	inputs []*tensor.RawTensor // [x, y]
	output *tensor.RawTensor
}

// NewWhereOp creates a new WhereOp.
func NewWhereOp(cond, x, y, output *tensor.RawTensor) *WhereOp {
	return &WhereOp{cond: cond, inputs: []*tensor.RawTensor{x, y}, output: output}
}

// Backward masks the output gradient per branch.
func (op *WhereOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	zero := zerosLike(outputGrad)
	gradX := backend.Where(op.cond, outputGrad, zero)
	gradY := backend.Where(op.cond, zero, outputGrad)
	return []*tensor.RawTensor{
		reduceTo(gradX, op.inputs[0], backend),
		reduceTo(gradY, op.inputs[1], backend),
	}
}

// Pushforward selects between the branch tangents.
func (op *WhereOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	tx := tangentOr(tangents[0], op.inputs[0])
	ty := tangentOr(tangents[1], op.inputs[1])
	return backend.Where(op.cond, tx, ty)
}

// Inputs returns the branch tensors [x, y].
func (op *WhereOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the selected output tensor.
func (op *WhereOp) Output() *tensor.RawTensor { return op.output }
