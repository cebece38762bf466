// Copyright 2026 The Resolvent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pytree provides nested containers of tensors.
//
// Operators and solvers accept and return trees rather than bare
// vectors, so one linear system can relate values with heterogeneous
// shapes and dtypes. Leaves are ordered depth first with dict keys
// sorted, and flattening round-trips exactly.
//
// Example:
//
//	v := pytree.List(
//	    pytree.Leaf(a), // float32[2]
//	    pytree.Leaf(b), // float64[3 3]
//	)
//	vec := pytree.Ravel(backend, v) // float64[11]
package pytree

import (
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Kind discriminates leaf, list and dict nodes.
type Kind = pytree.Kind

// Node kind constants.
const (
	KindLeaf Kind = pytree.KindLeaf
	KindList Kind = pytree.KindList
	KindDict Kind = pytree.KindDict
)

// Tree is an immutable nested container with leaves of type L.
type Tree[L any] = pytree.Tree[L]

// Def is a tree structure with the leaf values erased.
type Def = pytree.Def

// Value is a tree of tensors.
type Value = pytree.Value

// ArraySpec describes one leaf: shape and dtype, no data.
type ArraySpec = pytree.ArraySpec

// Structure is a tree of array specs.
type Structure = pytree.Structure

// Leaf wraps a single value as a leaf node.
func Leaf[L any](v L) *Tree[L] { return pytree.Leaf(v) }

// List builds a list node; List() with no children is the empty tree.
func List[L any](children ...*Tree[L]) *Tree[L] { return pytree.List(children...) }

// Dict builds a dict node with sorted keys.
func Dict[L any](m map[string]*Tree[L]) *Tree[L] { return pytree.Dict(m) }

// Unflatten rebuilds a tree from a structure and a flat leaf slice.
func Unflatten[L any](def *Def, leaves []L) (*Tree[L], error) {
	return pytree.Unflatten(def, leaves)
}

// Map applies f to every leaf, preserving structure.
func Map[L, M any](t *Tree[L], f func(L) M) *Tree[M] { return pytree.Map(t, f) }

// Map2 applies f leafwise across two trees of identical structure.
func Map2[A, B, C any](a *Tree[A], b *Tree[B], f func(A, B) C) (*Tree[C], error) {
	return pytree.Map2(a, b, f)
}

// DefsEqual reports whether two structures are identical.
func DefsEqual(a, b *Def) bool { return pytree.DefsEqual(a, b) }

// StructureOf captures the structure of a tensor tree.
func StructureOf(t *Value) *Structure { return pytree.StructureOf(t) }

// StructuresEqual reports an exact structure match, dtypes included.
func StructuresEqual(a, b *Structure) bool { return pytree.StructuresEqual(a, b) }

// StructuresEqualShape reports a structure match up to dtype.
func StructuresEqualShape(a, b *Structure) bool { return pytree.StructuresEqualShape(a, b) }

// NumElements returns the total element count across all leaves.
func NumElements(s *Structure) int { return pytree.NumElements(s) }

// ZerosOf materializes a tree of zero tensors with the given
// structure.
func ZerosOf(s *Structure) *Value { return pytree.ZerosOf(s) }

// Ravel flattens a tensor tree into a single 1-D vector in the tree's
// promoted dtype.
func Ravel(backend tensor.Backend, t *Value) *tensor.RawTensor {
	return pytree.Ravel(backend, t)
}

// Unravel splits a 1-D vector back into a tree with the given
// structure; the inverse of Ravel.
func Unravel(backend tensor.Backend, vec *tensor.RawTensor, s *Structure) (*Value, error) {
	return pytree.Unravel(backend, vec, s)
}
