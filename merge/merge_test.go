package merge

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/minios-linux/keysync/diff"
	"github.com/minios-linux/keysync/tree"
)

func parse(t *testing.T, s string) *tree.Node {
	t.Helper()
	n, err := tree.Parse([]byte(s))
	if err != nil {
		t.Fatalf("tree.Parse(%s) error: %v", s, err)
	}
	return n
}

func marshal(t *testing.T, n *tree.Node) string {
	t.Helper()
	data, err := tree.Marshal(n)
	if err != nil {
		t.Fatalf("tree.Marshal() error: %v", err)
	}
	return string(data)
}

func placeholderOpts() Options {
	return Options{Prefix: DefaultPrefix, Mode: ModePlaceholder}
}

func TestSynchronizeScenarios(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		existing  string
		want      string
	}{
		{
			name:      "literal dotted key keeps its translation",
			reference: `{"a.b": "x"}`,
			existing:  `{"a.b": "translated"}`,
			want:      `{"a": {"b": "translated"}}`,
		},
		{
			name:      "literal dotted key matches nested translation",
			reference: `{"a.b": "x"}`,
			existing:  `{"a": {"b": "translated"}}`,
			want:      `{"a": {"b": "translated"}}`,
		},
		{
			name:      "nested key into empty tree",
			reference: `{"a": {"b": "x"}}`,
			existing:  `{}`,
			want:      `{"a": {"b": "!<b"}}`,
		},
		{
			name:      "preserve, add and prune",
			reference: `{"a": "x", "z": "y"}`,
			existing:  `{"a": "translated", "old": "stale"}`,
			want:      `{"a": "translated", "z": "!<z"}`,
		},
		{
			name:      "placeholder is regenerated",
			reference: `{"a": "x"}`,
			existing:  `{"a": "!<a"}`,
			want:      `{"a": "!<a"}`,
		},
		{
			name:      "branch replaced by leaf",
			reference: `{"a": "x"}`,
			existing:  `{"a": {"b": "old"}}`,
			want:      `{"a": "!<a"}`,
		},
		{
			name:      "leaf replaced by branch",
			reference: `{"a": {"b": "x"}}`,
			existing:  `{"a": "old"}`,
			want:      `{"a": {"b": "!<b"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Synchronize(parse(t, tc.existing), parse(t, tc.reference), placeholderOpts())
			if diff := cmp.Diff(marshal(t, parse(t, tc.want)), marshal(t, got)); diff != "" {
				t.Fatalf("Synchronize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSynchronizeReport(t *testing.T) {
	reference := parse(t, `{"a": "x", "b": "y", "c": "z"}`)
	existing := parse(t, `{"a": "done", "b": "!<b", "gone": "old"}`)

	_, report := Synchronize(existing, reference, placeholderOpts())
	want := diff.Report{
		Missing:    []string{"c"},
		Pending:    []string{"b"},
		Translated: []string{"a"},
		Stale:      []string{"gone"},
	}
	if d := cmp.Diff(want, report); d != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", d)
	}
}

func TestSynchronizeProperties(t *testing.T) {
	reference := parse(t, `{
		"title": "Title",
		"nav": {"home": "Home", "about": "About", "deep": {"x": "X"}},
		"footer": "Footer"
	}`)
	existing := parse(t, `{
		"title": "Заголовок",
		"nav": {"home": "!<home", "removed": "gone", "deep": "conflict"},
		"stale": {"k": "v"}
	}`)

	result, _ := Synchronize(existing, reference, placeholderOpts())

	refKeys := tree.Flatten(reference)
	for _, k := range refKeys {
		if _, ok := tree.GetValue(result, k); !ok {
			t.Fatalf("key coverage: %q has no string value", k)
		}
	}

	refSet := make(map[string]bool)
	for _, k := range refKeys {
		refSet[k] = true
	}
	for _, k := range tree.Flatten(result) {
		if !refSet[k] {
			t.Fatalf("orphan key %q survived", k)
		}
	}

	if got, _ := tree.GetValue(result, "title"); got != "Заголовок" {
		t.Fatalf("translation lost: title = %q", got)
	}

	if !tree.IsSorted(result) {
		t.Fatal("result is not sorted")
	}

	again, _ := Synchronize(result, reference, placeholderOpts())
	if !bytes.Equal([]byte(marshal(t, result)), []byte(marshal(t, again))) {
		t.Fatalf("second run changed output:\n%s\nvs\n%s", marshal(t, result), marshal(t, again))
	}
}

func TestSynchronizeCopyMode(t *testing.T) {
	reference := parse(t, `{"greeting": "Hello", "count": 3, "nav": {"home": "Home"}}`)
	existing := parse(t, `{"greeting": "Hi there", "nav": {"home": "!<home"}}`)

	got, _ := Synchronize(existing, reference, Options{Prefix: DefaultPrefix, Mode: ModeCopy})

	want := `{"count": 3, "greeting": "Hi there", "nav": {"home": "Home"}}`
	if d := cmp.Diff(marshal(t, parse(t, want)), marshal(t, got)); d != "" {
		t.Fatalf("copy mode mismatch (-want +got):\n%s", d)
	}
}

func TestReconcileDoesNotAlias(t *testing.T) {
	reference := parse(t, `{"a": {"b": "x", "c": "y"}}`)
	existing := parse(t, `{"a": {"b": "kept"}}`)

	result := Reconcile(existing, reference, []string{"a.c"}, placeholderOpts())
	tree.Set(result, "a.b", tree.NewLeaf("mutated"))

	if got, _ := tree.GetValue(existing, "a.b"); got != "kept" {
		t.Fatalf("existing aliased by result: a.b = %q", got)
	}
	if _, ok := tree.Get(existing, "a.c"); ok {
		t.Fatal("Reconcile() must not write into existing")
	}
}

func TestDeepMerge(t *testing.T) {
	dst := parse(t, `{"a": {"b": "1", "c": "2"}, "leaf": {"x": "y"}}`)
	src := parse(t, `{"a": {"c": "3", "d": "4"}, "leaf": "replaced", "new": {"k": "v"}}`)

	got := DeepMerge(dst, src)
	want := `{"a": {"b": "1", "c": "3", "d": "4"}, "leaf": "replaced", "new": {"k": "v"}}`
	if d := cmp.Diff(marshal(t, parse(t, want)), marshal(t, got)); d != "" {
		t.Fatalf("DeepMerge() mismatch (-want +got):\n%s", d)
	}

	tree.Set(src, "new.k", tree.NewLeaf("changed"))
	if v, _ := tree.GetValue(got, "new.k"); v != "v" {
		t.Fatalf("DeepMerge() aliased src: new.k = %q", v)
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder("!<", "nav.home"); got != "!<home" {
		t.Fatalf("Placeholder(nav.home) = %q, want !<home", got)
	}
	if got := Placeholder("??", "title"); got != "??title" {
		t.Fatalf("Placeholder(title) = %q, want ??title", got)
	}
}
