package tree

import "sort"

// Sort returns a deep copy of n whose keys are in ascending order at every
// nesting level. It is the last step before a tree is written out, keeping
// persisted files diff-friendly.
func Sort(n *Node) *Node {
	if !n.IsBranch() {
		return n.Clone()
	}
	keys := n.Keys()
	sort.Strings(keys)

	out := NewBranch()
	for _, k := range keys {
		out.SetChild(k, Sort(n.children[k]))
	}
	return out
}

// IsSorted reports whether every branch under n has its keys in ascending order.
func IsSorted(n *Node) bool {
	if !n.IsBranch() {
		return true
	}
	if !sort.StringsAreSorted(n.keys) {
		return false
	}
	for _, k := range n.keys {
		if !IsSorted(n.children[k]) {
			return false
		}
	}
	return true
}
