package tensor

// Backend defines the compute interface the operator and solver layers
// are written against. The CPU backend evaluates eagerly in pure Go;
// the autodiff backend decorates any Backend and records every
// differentiable operation on a gradient tape.
//
// Binary elementwise operations accept operands of equal shape, or one
// scalar (rank-0 or single-element) operand broadcast against the
// other. Mixed dtypes are promoted with PromoteTypes.
type Backend interface {
	// Elementwise binary operations.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by a scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Elementwise unary math.
	Sqrt(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor

	// MatMul multiplies two 2-D tensors: (M,K) @ (K,N) -> (M,N).
	MatMul(a, b *RawTensor) *RawTensor

	// Transpose permutes dimensions; empty axes reverse them all.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Reshape reinterprets the tensor with a new shape of the same
	// element count.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// Cat concatenates tensors along a dimension.
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Narrow slices length elements starting at start along dim.
	Narrow(t *RawTensor, dim, start, length int) *RawTensor

	// Reductions. Sum and Dot accumulate in float64 regardless of the
	// operand dtype; Norm is the Euclidean norm of the flattened
	// tensor; MaxAll is the plain maximum element.
	Sum(x *RawTensor) *RawTensor
	Dot(a, b *RawTensor) *RawTensor
	Norm(x *RawTensor) *RawTensor
	MaxAll(x *RawTensor) *RawTensor

	// Where selects elementwise from x or y by a Bool condition; the
	// condition may be scalar.
	Where(cond, x, y *RawTensor) *RawTensor

	// Cast converts to a different dtype.
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Name identifies the backend ("cpu", "autodiff(cpu)", ...).
	Name() string
}
