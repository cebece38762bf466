package pytree

import (
	"fmt"
	"strings"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Value is a tree of tensors.
type Value = Tree[*tensor.RawTensor]

// ArraySpec describes one leaf: its shape and dtype, no data.
type ArraySpec struct {
	Shape tensor.Shape
	DType tensor.DataType
}

// String renders the spec like "float32[3 4]".
func (s ArraySpec) String() string {
	return fmt.Sprintf("%s%v", s.DType, []int(s.Shape))
}

// Structure is a tree of array specs: the "abstract value" of a Value.
type Structure = Tree[ArraySpec]

// StructureOf captures the structure of a tensor tree.
func StructureOf(t *Value) *Structure {
	return Map(t, func(raw *tensor.RawTensor) ArraySpec {
		return ArraySpec{Shape: raw.Shape().Clone(), DType: raw.DType()}
	})
}

// StructuresEqual reports whether two structures match exactly,
// including dtypes.
func StructuresEqual(a, b *Structure) bool {
	return structuresEqual(a, b, true)
}

// StructuresEqualShape reports whether two structures match up to
// dtype: same tree layout and leaf shapes, dtypes free.
func StructuresEqualShape(a, b *Structure) bool {
	return structuresEqual(a, b, false)
}

func structuresEqual(a, b *Structure, checkDType bool) bool {
	if !DefsEqual(a.Def(), b.Def()) {
		return false
	}
	al, bl := a.Leaves(), b.Leaves()
	for i := range al {
		if !al[i].Shape.Equal(bl[i].Shape) {
			return false
		}
		if checkDType && al[i].DType != bl[i].DType {
			return false
		}
	}
	return true
}

// NumElements returns the total element count across all leaves.
func NumElements(s *Structure) int {
	n := 0
	for _, spec := range s.Leaves() {
		n += spec.Shape.NumElements()
	}
	return n
}

// PromotedDType returns the common dtype of all leaves under the
// promotion lattice, or DefaultFloat for an empty structure.
func PromotedDType(s *Structure) tensor.DataType {
	leaves := s.Leaves()
	if len(leaves) == 0 {
		return tensor.DefaultFloat()
	}
	dt := leaves[0].DType
	for _, spec := range leaves[1:] {
		dt = tensor.PromoteTypes(dt, spec.DType)
	}
	return dt
}

// ZerosOf materializes a tree of zero tensors with the given structure.
func ZerosOf(s *Structure) *Value {
	return Map(s, func(spec ArraySpec) *tensor.RawTensor {
		return tensor.RawZeros(spec.Shape, spec.DType)
	})
}

// Signature renders a structure as a compact string, usable as a map
// key for shape caches.
func Signature(s *Structure) string {
	var b strings.Builder
	signature(s, &b)
	return b.String()
}

func signature(s *Structure, b *strings.Builder) {
	switch s.Kind() {
	case KindLeaf:
		b.WriteString(s.Value().String())
	case KindList:
		b.WriteByte('(')
		for i := 0; i < s.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			signature(s.Child(i), b)
		}
		b.WriteByte(')')
	case KindDict:
		b.WriteByte('{')
		for i := 0; i < s.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s.Key(i))
			b.WriteByte(':')
			signature(s.Child(i), b)
		}
		b.WriteByte('}')
	}
}
