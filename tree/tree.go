// Package tree implements the nested translation tree used by keysync.
//
// A translation file is a JSON object whose values are either strings
// (leaves) or further objects (branches):
//
//	{
//	    "nav": { "home": "Home", "about": "About" },
//	    "title": "Welcome"
//	}
//
// Each value is held in a Node, a tagged variant of three kinds: a string
// leaf, a raw leaf (any other JSON scalar or array, kept verbatim) and a
// branch. Branches remember the order in which keys were inserted so that
// files round-trip unchanged until Sort is applied.
package tree

import (
	"encoding/json"
)

// Kind identifies which variant a Node holds.
type Kind int

const (
	// KindLeaf is a string leaf (a translation or a placeholder).
	KindLeaf Kind = iota
	// KindRaw is a non-string, non-object JSON value (number, bool, array, null).
	KindRaw
	// KindBranch is a nested mapping.
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindRaw:
		return "raw"
	case KindBranch:
		return "branch"
	}
	return "unknown"
}

// Node is a single value in a translation tree.
type Node struct {
	kind  Kind
	value string
	raw   json.RawMessage

	keys     []string
	children map[string]*Node
}

// NewBranch returns an empty branch.
func NewBranch() *Node {
	return &Node{kind: KindBranch, children: make(map[string]*Node)}
}

// NewLeaf returns a string leaf.
func NewLeaf(value string) *Node {
	return &Node{kind: KindLeaf, value: value}
}

// NewRaw returns a raw leaf holding an arbitrary JSON value.
func NewRaw(raw json.RawMessage) *Node {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return &Node{kind: KindRaw, raw: cp}
}

// Kind reports the variant held by n.
func (n *Node) Kind() Kind { return n.kind }

// IsBranch reports whether n is a branch.
func (n *Node) IsBranch() bool { return n != nil && n.kind == KindBranch }

// IsLeaf reports whether n is a leaf of either kind.
func (n *Node) IsLeaf() bool { return n != nil && n.kind != KindBranch }

// Value returns the value of a string leaf. ok is false for raw leaves
// and branches.
func (n *Node) Value() (value string, ok bool) {
	if n == nil || n.kind != KindLeaf {
		return "", false
	}
	return n.value, true
}

// Raw returns the JSON encoding of a raw leaf.
func (n *Node) Raw() (json.RawMessage, bool) {
	if n == nil || n.kind != KindRaw {
		return nil, false
	}
	return n.raw, true
}

// Len returns the number of children of a branch (0 for leaves).
func (n *Node) Len() int {
	if !n.IsBranch() {
		return 0
	}
	return len(n.keys)
}

// Keys returns the branch keys in their stored order.
func (n *Node) Keys() []string {
	if !n.IsBranch() {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Child returns the child stored under key.
func (n *Node) Child(key string) (*Node, bool) {
	if !n.IsBranch() {
		return nil, false
	}
	c, ok := n.children[key]
	return c, ok
}

// SetChild stores child under key. A new key is appended to the key order;
// an existing key keeps its position. Calling SetChild on a leaf panics.
func (n *Node) SetChild(key string, child *Node) {
	if !n.IsBranch() {
		panic("tree: SetChild on " + n.kind.String())
	}
	if _, exists := n.children[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindLeaf:
		return NewLeaf(n.value)
	case KindRaw:
		return NewRaw(n.raw)
	}
	out := NewBranch()
	for _, k := range n.keys {
		out.SetChild(k, n.children[k].Clone())
	}
	return out
}
