package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// NarrowOp represents slicing a contiguous range along a dimension.
// The backward pass embeds the output gradient into a zero tensor of
// the input's shape at the sliced position.
type NarrowOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	dim, start int
}

// NewNarrowOp creates a new NarrowOp.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start int) *NarrowOp {
	return &NarrowOp{input: x, output: output, dim: dim, start: start}
}

// Backward zero-pads the output gradient back to the input shape.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.input)
	embedNarrow(grad, outputGrad, op.dim, op.start)
	return []*tensor.RawTensor{grad}
}

// Pushforward narrows the input tangent.
func (op *NarrowOp) Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	length := op.output.Shape()[op.dim]
	return backend.Narrow(tangentOr(tangents[0], op.input), op.dim, op.start, length)
}

// Inputs returns the input tensor.
func (op *NarrowOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the sliced output tensor.
func (op *NarrowOp) Output() *tensor.RawTensor { return op.output }

// embedNarrow copies src into dst at offset start along dim; dst and
// src agree on every other dimension and on dtype.
func embedNarrow(dst, src *tensor.RawTensor, dim, start int) {
	shape := dst.Shape()
	elem := dst.DType().Size()
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	inner := elem
	for d := dim + 1; d < shape.Rank(); d++ {
		inner *= shape[d]
	}
	dstRow := shape[dim] * inner
	srcRow := src.Shape()[dim] * inner
	db, sb := dst.Data(), src.Data()
	for o := 0; o < outer; o++ {
		copy(db[o*dstRow+start*inner:o*dstRow+start*inner+srcRow], sb[o*srcRow:(o+1)*srcRow])
	}
}
