// Package operator implements linear operators over tensor trees: a
// dense matrix, a tree of blocks, or an opaque linear function, plus
// zero-copy transposed and retagged views. Structural tags describe
// properties (symmetry, triangularity, definiteness) that solvers use
// to pick and validate algorithms; tags are trusted, never verified.
package operator

import "strings"

// Tag is a bitmask of structural properties of a linear operator.
type Tag uint16

const (
	// Symmetric marks the operator equal to its transpose.
	Symmetric Tag = 1 << iota
	// LowerTriangular marks all entries above the diagonal zero.
	LowerTriangular
	// UpperTriangular marks all entries below the diagonal zero.
	UpperTriangular
	// Diagonal marks all off-diagonal entries zero.
	Diagonal
	// Tridiagonal marks all entries off the three central bands zero.
	Tridiagonal
	// PositiveSemidefinite marks x'Ax >= 0 for all x.
	PositiveSemidefinite
	// NegativeSemidefinite marks x'Ax <= 0 for all x.
	NegativeSemidefinite
	// UnitDiagonal marks every diagonal entry equal to one.
	UnitDiagonal
)

var tagNames = []struct {
	tag  Tag
	name string
}{
	{Symmetric, "symmetric"},
	{LowerTriangular, "lower_triangular"},
	{UpperTriangular, "upper_triangular"},
	{Diagonal, "diagonal"},
	{Tridiagonal, "tridiagonal"},
	{PositiveSemidefinite, "positive_semidefinite"},
	{NegativeSemidefinite, "negative_semidefinite"},
	{UnitDiagonal, "unit_diagonal"},
}

// Has reports whether every bit of flag is set.
func (t Tag) Has(flag Tag) bool { return t&flag == flag }

// String lists the set tags, or "none".
func (t Tag) String() string {
	var parts []string
	for _, e := range tagNames {
		if t.Has(e.tag) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// transposeTags maps the tags of an operator to the tags of its
// transpose. Triangularity flips sides; symmetry, diagonal structure,
// bandedness, definiteness and the unit diagonal are preserved.
func transposeTags(t Tag) Tag {
	out := t &^ (LowerTriangular | UpperTriangular)
	if t.Has(LowerTriangular) {
		out |= UpperTriangular
	}
	if t.Has(UpperTriangular) {
		out |= LowerTriangular
	}
	return out
}
