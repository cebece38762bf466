// Package pytree implements immutable nested containers of tensors.
//
// A Tree is a leaf, a list of subtrees, or a string-keyed dict of
// subtrees. Leaves are visited in a canonical order (depth first, dict
// keys sorted) so that flattening and unflattening round-trip exactly.
// Operators and solvers use trees for their inputs and outputs, which
// lets a single vector be structured as, say, a pair of differently
// shaped and typed tensors.
package pytree

import (
	"sort"

	"github.com/pkg/errors"
)

// Kind discriminates the three node types of a Tree.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindList
	KindDict
)

// Tree is an immutable nested container with leaves of type L.
// The zero value is not usable; build trees with Leaf, List and Dict.
type Tree[L any] struct {
	kind     Kind
	leaf     L
	keys     []string // dict keys, sorted; parallel to children
	children []*Tree[L]
}

// Leaf wraps a single value as a leaf node.
func Leaf[L any](v L) *Tree[L] {
	return &Tree[L]{kind: KindLeaf, leaf: v}
}

// List builds a list node. List() with no children is the empty tree.
func List[L any](children ...*Tree[L]) *Tree[L] {
	return &Tree[L]{kind: KindList, children: children}
}

// Dict builds a dict node. Keys are sorted so leaf order is canonical.
func Dict[L any](m map[string]*Tree[L]) *Tree[L] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	children := make([]*Tree[L], len(keys))
	for i, k := range keys {
		children[i] = m[k]
	}
	return &Tree[L]{kind: KindDict, keys: keys, children: children}
}

// Kind returns the node type.
func (t *Tree[L]) Kind() Kind { return t.kind }

// Value returns the leaf value; it panics on non-leaf nodes.
func (t *Tree[L]) Value() L {
	if t.kind != KindLeaf {
		panic("pytree: Value called on non-leaf node")
	}
	return t.leaf
}

// Len returns the number of direct children.
func (t *Tree[L]) Len() int { return len(t.children) }

// Child returns the i-th child in canonical order.
func (t *Tree[L]) Child(i int) *Tree[L] { return t.children[i] }

// Key returns the i-th dict key; it panics on non-dict nodes.
func (t *Tree[L]) Key(i int) string {
	if t.kind != KindDict {
		panic("pytree: Key called on non-dict node")
	}
	return t.keys[i]
}

// NumLeaves counts the leaves of the tree.
func (t *Tree[L]) NumLeaves() int {
	if t.kind == KindLeaf {
		return 1
	}
	n := 0
	for _, c := range t.children {
		n += c.NumLeaves()
	}
	return n
}

// Leaves returns the leaf values in canonical order.
func (t *Tree[L]) Leaves() []L {
	out := make([]L, 0, t.NumLeaves())
	t.walk(func(v L) { out = append(out, v) })
	return out
}

func (t *Tree[L]) walk(f func(L)) {
	if t.kind == KindLeaf {
		f(t.leaf)
		return
	}
	for _, c := range t.children {
		c.walk(f)
	}
}

// Def is a tree with the leaf values erased: pure structure.
type Def = Tree[struct{}]

// Def returns the structure of the tree.
func (t *Tree[L]) Def() *Def {
	return mapTree(t, func(L) struct{} { return struct{}{} })
}

// Flatten splits the tree into its leaves and its structure.
func (t *Tree[L]) Flatten() ([]L, *Def) {
	return t.Leaves(), t.Def()
}

// Unflatten rebuilds a tree with the given structure from a flat leaf
// slice. The leaf count must match the structure exactly.
func Unflatten[L any](def *Def, leaves []L) (*Tree[L], error) {
	tree, rest := unflatten(def, leaves)
	if len(rest) != 0 {
		return nil, errors.Errorf("pytree: %d extra leaves for structure with %d leaves",
			len(rest), def.NumLeaves())
	}
	if tree == nil {
		return nil, errors.Errorf("pytree: too few leaves for structure with %d leaves",
			def.NumLeaves())
	}
	return tree, nil
}

func unflatten[L any](def *Def, leaves []L) (*Tree[L], []L) {
	if def.kind == KindLeaf {
		if len(leaves) == 0 {
			return nil, nil
		}
		return Leaf(leaves[0]), leaves[1:]
	}
	children := make([]*Tree[L], len(def.children))
	for i, c := range def.children {
		var child *Tree[L]
		child, leaves = unflatten(c, leaves)
		if child == nil {
			return nil, nil
		}
		children[i] = child
	}
	node := &Tree[L]{kind: def.kind, children: children}
	if def.kind == KindDict {
		node.keys = def.keys
	}
	return node, leaves
}

// DefsEqual reports whether two structures are identical.
func DefsEqual(a, b *Def) bool {
	if a.kind != b.kind || len(a.children) != len(b.children) {
		return false
	}
	if a.kind == KindDict {
		for i, k := range a.keys {
			if b.keys[i] != k {
				return false
			}
		}
	}
	for i, c := range a.children {
		if !DefsEqual(c, b.children[i]) {
			return false
		}
	}
	return true
}

// Map applies f to every leaf, preserving structure.
func Map[L, M any](t *Tree[L], f func(L) M) *Tree[M] {
	return mapTree(t, f)
}

func mapTree[L, M any](t *Tree[L], f func(L) M) *Tree[M] {
	if t.kind == KindLeaf {
		return Leaf(f(t.leaf))
	}
	children := make([]*Tree[M], len(t.children))
	for i, c := range t.children {
		children[i] = mapTree(c, f)
	}
	node := &Tree[M]{kind: t.kind, children: children}
	if t.kind == KindDict {
		node.keys = t.keys
	}
	return node
}

// Map2 applies f leafwise across two trees of identical structure.
func Map2[A, B, C any](a *Tree[A], b *Tree[B], f func(A, B) C) (*Tree[C], error) {
	if !DefsEqual(a.Def(), b.Def()) {
		return nil, errors.New("pytree: mismatched tree structures")
	}
	return map2(a, b, f), nil
}

func map2[A, B, C any](a *Tree[A], b *Tree[B], f func(A, B) C) *Tree[C] {
	if a.kind == KindLeaf {
		return Leaf(f(a.leaf, b.leaf))
	}
	children := make([]*Tree[C], len(a.children))
	for i, c := range a.children {
		children[i] = map2(c, b.children[i], f)
	}
	node := &Tree[C]{kind: a.kind, children: children}
	if a.kind == KindDict {
		node.keys = a.keys
	}
	return node
}
