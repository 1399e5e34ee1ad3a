package tree

import (
	"sort"
	"strings"
)

// Separator joins the segments of a key path.
const Separator = "."

// SplitPath splits a dotted key path into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, Separator)
}

// JoinPath joins segments into a dotted key path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Separator)
}

// LastSegment returns the final segment of a dotted key path.
func LastSegment(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[i+len(Separator):]
	}
	return path
}

// Flatten returns the dotted path of every leaf under n. Branch keys are
// visited in sorted order at each level, depth first, so the result does
// not depend on insertion order. Empty branches contribute nothing.
func Flatten(n *Node) []string {
	var paths []string
	Walk(n, func(path string, _ *Node) {
		paths = append(paths, path)
	})
	return paths
}

// Walk calls fn with the dotted path of every leaf under n, in the order
// Flatten reports them.
func Walk(n *Node, fn func(path string, leaf *Node)) {
	walk(n, "", true, fn)
}

func walk(n *Node, prefix string, top bool, fn func(string, *Node)) {
	keys := n.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		child := n.children[k]
		path := k
		if !top {
			path = prefix + Separator + k
		}
		if child.IsBranch() {
			walk(child, path, false, fn)
			continue
		}
		fn(path, child)
	}
}

// Expand returns a copy of n in which every leaf is stored at the nested
// address of its dotted path: {"a.b": "x"} becomes {"a": {"b": "x"}}.
// When a literal dotted key and a nested key name the same path, the
// literal key is visited last and wins.
func Expand(n *Node) *Node {
	out := NewBranch()
	Walk(n, func(path string, leaf *Node) {
		Set(out, path, leaf.Clone())
	})
	return out
}

// Get resolves a dotted path one segment at a time. It returns false as
// soon as a segment is missing or an intermediate value is not a branch.
func Get(n *Node, path string) (*Node, bool) {
	cur := n
	for _, seg := range SplitPath(path) {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// GetValue resolves path to a string leaf.
func GetValue(n *Node, path string) (string, bool) {
	v, ok := Get(n, path)
	if !ok {
		return "", false
	}
	return v.Value()
}

// Set stores value at path, creating intermediate branches as needed, and
// returns n. A leaf found at an intermediate segment is replaced by a fresh
// branch; sibling keys are left untouched.
func Set(n *Node, path string, value *Node) *Node {
	segs := SplitPath(path)
	cur := n
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.Child(seg)
		if !ok || !next.IsBranch() {
			next = NewBranch()
			cur.SetChild(seg, next)
		}
		cur = next
	}
	cur.SetChild(segs[len(segs)-1], value)
	return n
}
