package operator

import (
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// LinearOperator represents a linear map between tensor trees.
//
// The interface is closed: the unexported mvT method keeps the set of
// implementations inside this package, so solvers can rely on every
// operator supporting transpose application and dense materialization.
type LinearOperator interface {
	// Mv applies the operator to a vector tree with the input
	// structure, producing one with the output structure.
	Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error)

	// Transpose returns a view of the transposed operator. No data is
	// copied; the view applies the transpose lazily.
	Transpose() LinearOperator

	// AsDense materializes the operator as a 2-D tensor of shape
	// (out elements, in elements). Under a recording backend the dense
	// matrix stays differentiable with respect to the operator's data.
	AsDense(backend tensor.Backend) (*tensor.RawTensor, error)

	// InStructure is the structure of vectors the operator accepts.
	InStructure() *pytree.Structure

	// OutStructure is the structure of vectors the operator produces.
	OutStructure() *pytree.Structure

	// Tags returns the operator's structural tags.
	Tags() Tag

	// mvT applies the transpose of the operator.
	mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error)
}

// InSize returns the operator's input dimension in elements.
func InSize(op LinearOperator) int { return pytree.NumElements(op.InStructure()) }

// OutSize returns the operator's output dimension in elements.
func OutSize(op LinearOperator) int { return pytree.NumElements(op.OutStructure()) }

// IsSquare reports whether the operator maps between spaces of equal
// dimension.
func IsSquare(op LinearOperator) bool { return InSize(op) == OutSize(op) }

// transposedOperator is a zero-copy transpose view: Mv and mvT swap,
// structures swap, triangularity tags flip sides.
type transposedOperator struct {
	inner LinearOperator
}

func (t *transposedOperator) Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	return t.inner.mvT(backend, vector)
}

func (t *transposedOperator) mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	return t.inner.Mv(backend, vector)
}

// Transpose of a transpose is the original operator.
func (t *transposedOperator) Transpose() LinearOperator { return t.inner }

func (t *transposedOperator) AsDense(backend tensor.Backend) (*tensor.RawTensor, error) {
	dense, err := t.inner.AsDense(backend)
	if err != nil {
		return nil, err
	}
	return backend.Transpose(dense), nil
}

func (t *transposedOperator) InStructure() *pytree.Structure  { return t.inner.OutStructure() }
func (t *transposedOperator) OutStructure() *pytree.Structure { return t.inner.InStructure() }
func (t *transposedOperator) Tags() Tag                       { return transposeTags(t.inner.Tags()) }

// taggedOperator overrides the tags of an operator without copying it.
type taggedOperator struct {
	inner LinearOperator
	tags  Tag
}

// WithTags returns a view of op carrying the given tags instead of its
// own. Tags are trusted: no check is made that op actually has the
// claimed structure.
func WithTags(op LinearOperator, tags Tag) LinearOperator {
	if inner, ok := op.(*taggedOperator); ok {
		op = inner.inner
	}
	return &taggedOperator{inner: op, tags: tags}
}

func (t *taggedOperator) Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	return t.inner.Mv(backend, vector)
}

func (t *taggedOperator) mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	return t.inner.mvT(backend, vector)
}

func (t *taggedOperator) Transpose() LinearOperator {
	return &taggedOperator{inner: t.inner.Transpose(), tags: transposeTags(t.tags)}
}

func (t *taggedOperator) AsDense(backend tensor.Backend) (*tensor.RawTensor, error) {
	return t.inner.AsDense(backend)
}

func (t *taggedOperator) InStructure() *pytree.Structure  { return t.inner.InStructure() }
func (t *taggedOperator) OutStructure() *pytree.Structure { return t.inner.OutStructure() }
func (t *taggedOperator) Tags() Tag                       { return t.tags }
