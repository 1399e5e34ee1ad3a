// Package merge reconciles an existing translation tree with a reference
// tree, the way msgmerge updates a PO file from a POT template:
//   - Keys missing from the existing tree are added.
//   - Keys still holding a placeholder are regenerated.
//   - Keys already translated are kept untouched.
//   - Keys no longer in the reference are dropped.
package merge

import (
	"github.com/minios-linux/keysync/diff"
	"github.com/minios-linux/keysync/tree"
)

// DefaultPrefix marks a value as not yet translated.
const DefaultPrefix = "!<"

// Mode selects the value written for regenerated keys.
type Mode int

const (
	// ModePlaceholder writes prefix + last key segment.
	ModePlaceholder Mode = iota
	// ModeCopy copies the reference tree's own value. Used when the
	// reference is the translation source rather than a key skeleton.
	ModeCopy
)

func (m Mode) String() string {
	if m == ModeCopy {
		return "copy"
	}
	return "placeholder"
}

// Options are the parameters of a reconciliation.
type Options struct {
	Prefix string
	Mode   Mode
}

// Placeholder returns the placeholder value for key.
func Placeholder(prefix, key string) string {
	return prefix + tree.LastSegment(key)
}

// Reconcile builds the new tree for existing: stale keys are pruned and
// every key in selected is regenerated according to opts.Mode. The result
// shares no nodes with existing or reference.
func Reconcile(existing, reference *tree.Node, selected []string, opts Options) *tree.Node {
	base := diff.Prune(existing, tree.Flatten(reference))

	for _, key := range selected {
		var value *tree.Node
		switch opts.Mode {
		case ModeCopy:
			v, ok := tree.Get(reference, key)
			if !ok || v.IsBranch() {
				continue
			}
			value = v.Clone()
		default:
			value = tree.NewLeaf(Placeholder(opts.Prefix, key))
		}
		tree.Set(base, key, value)
	}

	return DeepMerge(tree.NewBranch(), base)
}

// DeepMerge merges src into dst and returns dst. When both sides hold a
// branch under the same key they are merged recursively; otherwise the
// value from src replaces the one in dst. Values taken from src are copied.
func DeepMerge(dst, src *tree.Node) *tree.Node {
	for _, k := range src.Keys() {
		s, _ := src.Child(k)
		if d, ok := dst.Child(k); ok && d.IsBranch() && s.IsBranch() {
			DeepMerge(d, s)
			continue
		}
		dst.SetChild(k, s.Clone())
	}
	return dst
}

// Synchronize runs the full per-file pipeline: flatten the reference,
// classify the existing tree, reconcile and sort. The returned report is
// computed against existing before reconciliation.
//
// Both trees are expanded first, so a literal "a.b" key and a nested
// {"a": {"b": ...}} address the same entry.
func Synchronize(existing, reference *tree.Node, opts Options) (*tree.Node, diff.Report) {
	existing = tree.Expand(existing)
	reference = tree.Expand(reference)

	refKeys := tree.Flatten(reference)
	report := diff.Compare(reference, existing, opts.Prefix)
	selected := diff.Classify(refKeys, existing, opts.Prefix)

	return tree.Sort(Reconcile(existing, reference, selected, opts)), report
}
