package operator

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// checkVector validates a vector tree against an expected structure.
// Shapes and layout must match exactly; dtypes are free, arithmetic
// promotes them as needed.
func checkVector(structure *pytree.Structure, v *pytree.Value, what string) error {
	got := pytree.StructureOf(v)
	if !pytree.StructuresEqualShape(structure, got) {
		return errors.Errorf("operator: %s structure mismatch: got %s, want %s",
			what, pytree.Signature(got), pytree.Signature(structure))
	}
	return nil
}

// MatrixLinearOperator wraps a dense 2-D tensor as a linear operator.
// Its input and output structures are single flat vector leaves.
type MatrixLinearOperator struct {
	matrix *tensor.RawTensor
	tags   Tag
}

// NewMatrix creates an operator from a dense matrix. The matrix must
// be 2-D.
func NewMatrix(matrix *tensor.RawTensor, tags Tag) (*MatrixLinearOperator, error) {
	if matrix.Shape().Rank() != 2 {
		return nil, errors.Errorf("operator: matrix operator needs a 2-D tensor, got shape %v",
			matrix.Shape())
	}
	return &MatrixLinearOperator{matrix: matrix, tags: tags}, nil
}

// Matrix returns the underlying dense matrix.
func (m *MatrixLinearOperator) Matrix() *tensor.RawTensor { return m.matrix }

// Mv computes matrix @ vector.
func (m *MatrixLinearOperator) Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(m.InStructure(), vector, "input"); err != nil {
		return nil, err
	}
	v := vector.Leaves()[0]
	col := backend.Reshape(v, tensor.Shape{v.NumElements(), 1})
	out := backend.MatMul(m.matrix, col)
	return pytree.Leaf(backend.Reshape(out, tensor.Shape{m.matrix.Shape()[0]})), nil
}

func (m *MatrixLinearOperator) mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(m.OutStructure(), vector, "input"); err != nil {
		return nil, err
	}
	v := vector.Leaves()[0]
	col := backend.Reshape(v, tensor.Shape{v.NumElements(), 1})
	out := backend.MatMul(backend.Transpose(m.matrix), col)
	return pytree.Leaf(backend.Reshape(out, tensor.Shape{m.matrix.Shape()[1]})), nil
}

// Transpose returns a lazy transpose view.
func (m *MatrixLinearOperator) Transpose() LinearOperator {
	return &transposedOperator{inner: m}
}

// AsDense returns the wrapped matrix itself.
func (m *MatrixLinearOperator) AsDense(backend tensor.Backend) (*tensor.RawTensor, error) {
	return m.matrix, nil
}

// InStructure is a single vector leaf with the matrix column count.
func (m *MatrixLinearOperator) InStructure() *pytree.Structure {
	return pytree.Leaf(pytree.ArraySpec{
		Shape: tensor.Shape{m.matrix.Shape()[1]},
		DType: m.matrix.DType(),
	})
}

// OutStructure is a single vector leaf with the matrix row count.
func (m *MatrixLinearOperator) OutStructure() *pytree.Structure {
	return pytree.Leaf(pytree.ArraySpec{
		Shape: tensor.Shape{m.matrix.Shape()[0]},
		DType: m.matrix.DType(),
	})
}

// Tags returns the structural tags given at construction.
func (m *MatrixLinearOperator) Tags() Tag { return m.tags }
