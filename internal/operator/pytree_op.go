package operator

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// PyTreeLinearOperator represents a linear map between tensor trees as
// a nested tree of dense blocks. The block tree mirrors the output
// structure; at every output leaf it holds a subtree mirroring the
// input structure, and the block at output leaf i / input leaf j has
// shape outShape_i followed by inShape_j.
//
// The input structure is inferred from the blocks: input leaf shapes
// come from the trailing block dimensions, input leaf dtypes from
// promoting the dtypes of that block column.
type PyTreeLinearOperator struct {
	// rows[i][j] is the block mapping input leaf j to output leaf i,
	// kept in its original shape so backend reshapes at application
	// time stay differentiable.
	rows         [][]*tensor.RawTensor
	inStructure  *pytree.Structure
	outStructure *pytree.Structure
	tags         Tag
}

// NewPyTree creates an operator from a tree of blocks and the output
// structure it should produce.
func NewPyTree(blocks *pytree.Value, outStructure *pytree.Structure, tags Tag) (*PyTreeLinearOperator, error) {
	outSpecs := outStructure.Leaves()
	if len(outSpecs) == 0 {
		return nil, errors.New("operator: pytree operator needs an output structure with at least one leaf")
	}

	subtrees, err := subtreesAt(blocks, outStructure.Def())
	if err != nil {
		return nil, err
	}

	inDef := subtrees[0].Def()
	for i, sub := range subtrees[1:] {
		if !pytree.DefsEqual(inDef, sub.Def()) {
			return nil, errors.Errorf("operator: block subtree at output leaf %d has a different input layout", i+1)
		}
	}

	// Infer input leaf shapes from the first block row.
	firstRow := subtrees[0].Leaves()
	out0 := outSpecs[0].Shape
	inShapes := make([]tensor.Shape, len(firstRow))
	for j, block := range firstRow {
		bs := block.Shape()
		if len(bs) < len(out0) || !tensor.Shape(bs[:len(out0)]).Equal(out0) {
			return nil, errors.Errorf("operator: block (0, %d) has shape %v, want prefix %v", j, bs, out0)
		}
		inShapes[j] = bs[len(out0):].Clone()
	}

	rows := make([][]*tensor.RawTensor, len(subtrees))
	inDTypes := make([]tensor.DataType, len(firstRow))
	for i, sub := range subtrees {
		leaves := sub.Leaves()
		rows[i] = make([]*tensor.RawTensor, len(leaves))
		oshape := outSpecs[i].Shape
		for j, block := range leaves {
			want := append(oshape.Clone(), inShapes[j]...)
			if !block.Shape().Equal(want) {
				return nil, errors.Errorf("operator: block (%d, %d) has shape %v, want %v",
					i, j, block.Shape(), want)
			}
			rows[i][j] = block
			if i == 0 {
				inDTypes[j] = block.DType()
			} else {
				inDTypes[j] = tensor.PromoteTypes(inDTypes[j], block.DType())
			}
		}
	}

	inSpecs := make([]pytree.ArraySpec, len(inShapes))
	for j := range inShapes {
		inSpecs[j] = pytree.ArraySpec{Shape: inShapes[j], DType: inDTypes[j]}
	}
	inStructure, err := pytree.Unflatten(inDef, inSpecs)
	if err != nil {
		return nil, err
	}

	return &PyTreeLinearOperator{
		rows:         rows,
		inStructure:  inStructure,
		outStructure: outStructure,
		tags:         tags,
	}, nil
}

// subtreesAt returns the subtree of blocks sitting at every leaf
// position of def, in canonical order.
func subtreesAt(blocks *pytree.Value, def *pytree.Def) ([]*pytree.Value, error) {
	if def.Kind() == pytree.KindLeaf {
		return []*pytree.Value{blocks}, nil
	}
	if blocks.Kind() != def.Kind() || blocks.Len() != def.Len() {
		return nil, errors.New("operator: block tree does not extend the output structure")
	}
	if def.Kind() == pytree.KindDict {
		for i := 0; i < def.Len(); i++ {
			if blocks.Key(i) != def.Key(i) {
				return nil, errors.Errorf("operator: block tree key %q does not match output key %q",
					blocks.Key(i), def.Key(i))
			}
		}
	}
	var out []*pytree.Value
	for i := 0; i < def.Len(); i++ {
		sub, err := subtreesAt(blocks.Child(i), def.Child(i))
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// Mv applies the block matrix to an input tree: output leaf i is the
// sum over j of block_ij @ input_j, reshaped to the output leaf shape.
func (p *PyTreeLinearOperator) Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(p.inStructure, vector, "input"); err != nil {
		return nil, err
	}
	vin := vector.Leaves()
	outSpecs := p.outStructure.Leaves()

	outLeaves := make([]*tensor.RawTensor, len(p.rows))
	for i, row := range p.rows {
		oN := outSpecs[i].Shape.NumElements()
		var acc *tensor.RawTensor
		for j, block := range row {
			mat := backend.Reshape(block, tensor.Shape{oN, vin[j].NumElements()})
			col := backend.Reshape(vin[j], tensor.Shape{vin[j].NumElements(), 1})
			term := backend.MatMul(mat, col)
			if acc == nil {
				acc = term
			} else {
				acc = backend.Add(acc, term)
			}
		}
		out := backend.Reshape(acc, outSpecs[i].Shape)
		if out.DType() != outSpecs[i].DType {
			out = backend.Cast(out, outSpecs[i].DType)
		}
		outLeaves[i] = out
	}
	return pytree.Unflatten(p.outStructure.Def(), outLeaves)
}

func (p *PyTreeLinearOperator) mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(p.outStructure, vector, "input"); err != nil {
		return nil, err
	}
	vout := vector.Leaves()
	inSpecs := p.inStructure.Leaves()

	inLeaves := make([]*tensor.RawTensor, len(inSpecs))
	for j := range inSpecs {
		iN := inSpecs[j].Shape.NumElements()
		var acc *tensor.RawTensor
		for i, row := range p.rows {
			mat := backend.Reshape(row[j], tensor.Shape{vout[i].NumElements(), iN})
			col := backend.Reshape(vout[i], tensor.Shape{vout[i].NumElements(), 1})
			term := backend.MatMul(backend.Transpose(mat), col)
			if acc == nil {
				acc = term
			} else {
				acc = backend.Add(acc, term)
			}
		}
		in := backend.Reshape(acc, inSpecs[j].Shape)
		if in.DType() != inSpecs[j].DType {
			in = backend.Cast(in, inSpecs[j].DType)
		}
		inLeaves[j] = in
	}
	return pytree.Unflatten(p.inStructure.Def(), inLeaves)
}

// Transpose returns a lazy transpose view.
func (p *PyTreeLinearOperator) Transpose() LinearOperator {
	return &transposedOperator{inner: p}
}

// AsDense concatenates the blocks into one dense matrix, promoting all
// blocks to a common dtype.
func (p *PyTreeLinearOperator) AsDense(backend tensor.Backend) (*tensor.RawTensor, error) {
	dt := tensor.PromoteTypes(
		pytree.PromotedDType(p.inStructure),
		pytree.PromotedDType(p.outStructure),
	)
	outSpecs := p.outStructure.Leaves()
	inSpecs := p.inStructure.Leaves()
	rowMats := make([]*tensor.RawTensor, len(p.rows))
	for i, row := range p.rows {
		cells := make([]*tensor.RawTensor, len(row))
		for j, block := range row {
			cell := backend.Reshape(block, tensor.Shape{
				outSpecs[i].Shape.NumElements(),
				inSpecs[j].Shape.NumElements(),
			})
			if cell.DType() != dt {
				cell = backend.Cast(cell, dt)
			}
			cells[j] = cell
		}
		if len(cells) == 1 {
			rowMats[i] = cells[0]
		} else {
			rowMats[i] = backend.Cat(cells, 1)
		}
	}
	if len(rowMats) == 1 {
		return rowMats[0], nil
	}
	return backend.Cat(rowMats, 0), nil
}

// InStructure is the inferred input structure.
func (p *PyTreeLinearOperator) InStructure() *pytree.Structure { return p.inStructure }

// OutStructure is the output structure given at construction.
func (p *PyTreeLinearOperator) OutStructure() *pytree.Structure { return p.outStructure }

// Tags returns the structural tags given at construction.
func (p *PyTreeLinearOperator) Tags() Tag { return p.tags }
