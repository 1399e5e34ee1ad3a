// Package diff classifies the keys of a translation tree against a
// reference tree.
//
// A reference key is selected for regeneration when the existing tree has
// no value at its path, or when the value is still a placeholder (a string
// starting with the placeholder prefix). Genuine translations, including
// deliberately empty strings, are never selected.
package diff

import (
	"strings"

	"github.com/minios-linux/keysync/tree"
)

// Report describes how an existing tree relates to a reference tree.
type Report struct {
	// Missing keys exist in the reference but not in the existing tree.
	Missing []string
	// Pending keys hold a placeholder in the existing tree.
	Pending []string
	// Translated keys hold a genuine value in the existing tree.
	Translated []string
	// Stale keys exist in the existing tree but not in the reference.
	Stale []string
}

// Total returns the number of reference keys covered by the report.
func (r Report) Total() int {
	return len(r.Missing) + len(r.Pending) + len(r.Translated)
}

// IsPlaceholder reports whether value was generated as a placeholder.
// An empty prefix never matches.
func IsPlaceholder(value, prefix string) bool {
	return prefix != "" && strings.HasPrefix(value, prefix)
}

// state is the classification of one reference key.
type state int

const (
	stateMissing state = iota
	statePending
	stateTranslated
)

func classify(existing *tree.Node, key, prefix string) state {
	v, ok := tree.Get(existing, key)
	if !ok || v.IsBranch() {
		return stateMissing
	}
	if s, isString := v.Value(); isString && IsPlaceholder(s, prefix) {
		return statePending
	}
	return stateTranslated
}

// Classify returns the subset of referenceKeys that need regeneration in
// existing, preserving reference order.
func Classify(referenceKeys []string, existing *tree.Node, prefix string) []string {
	var selected []string
	for _, k := range referenceKeys {
		if classify(existing, k, prefix) != stateTranslated {
			selected = append(selected, k)
		}
	}
	return selected
}

// Compare builds a full Report of existing against reference.
func Compare(reference, existing *tree.Node, prefix string) Report {
	refKeys := tree.Flatten(reference)

	var r Report
	for _, k := range refKeys {
		switch classify(existing, k, prefix) {
		case stateMissing:
			r.Missing = append(r.Missing, k)
		case statePending:
			r.Pending = append(r.Pending, k)
		default:
			r.Translated = append(r.Translated, k)
		}
	}
	r.Stale = staleKeys(existing, refKeys)
	return r
}

func staleKeys(existing *tree.Node, referenceKeys []string) []string {
	keep := keySet(referenceKeys)
	var stale []string
	for _, k := range tree.Flatten(existing) {
		if !keep[k] {
			stale = append(stale, k)
		}
	}
	return stale
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Prune returns a copy of existing without the leaves whose paths are not
// in referenceKeys. Branches left empty are removed, bottom-up. existing is
// not modified.
func Prune(existing *tree.Node, referenceKeys []string) *tree.Node {
	out := prune(existing, "", true, keySet(referenceKeys))
	if out == nil {
		return tree.NewBranch()
	}
	return out
}

func prune(n *tree.Node, prefix string, top bool, keep map[string]bool) *tree.Node {
	out := tree.NewBranch()
	for _, k := range n.Keys() {
		child, _ := n.Child(k)
		path := k
		if !top {
			path = prefix + tree.Separator + k
		}

		if child.IsBranch() {
			if sub := prune(child, path, false, keep); sub != nil {
				out.SetChild(k, sub)
			}
			continue
		}
		if keep[path] {
			out.SetChild(k, child.Clone())
		}
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}
