// Package runner drives a reconciliation batch: it discovers translation
// files under the source directory, plans one unit of work per
// (language, file) pair and reconciles each unit's output file against its
// reference tree.
//
// Units are independent: each owns exactly one output path, reads that
// file's current contents when it runs and replaces it at the end. A
// failing unit is reported in its Result and never stops the others.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gobwas/glob"
	"github.com/minios-linux/keysync/config"
	"github.com/minios-linux/keysync/diff"
	"github.com/minios-linux/keysync/merge"
	"github.com/minios-linux/keysync/tree"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Unit is one output file to reconcile.
type Unit struct {
	// Language is the target language code.
	Language string
	// RelPath is the slash-separated path relative to the source directory.
	RelPath string
	// Reference is the path of the reference tree.
	Reference string
	// Output is the path of the file written.
	Output string
	// Mode selects placeholder or value-copy regeneration.
	Mode merge.Mode
}

// Result is the outcome of one unit.
type Result struct {
	Unit Unit
	// Report classifies the existing output against the reference.
	Report diff.Report
	// Missing is set when no usable output existed and reconciliation
	// started from an empty tree.
	Missing bool
	// LoadErr explains why an existing output file could not be used.
	// It is nil when the file was simply absent.
	LoadErr error
	// Changed reports whether the reconciled output differs from the file.
	Changed bool
	// Patch is the RFC 7386 merge patch from the current file to the new
	// output. Only set by DryRun.
	Patch []byte
	// Err is the failure that prevented this unit from completing.
	Err error
}

// Runner plans and executes reconciliation units.
type Runner struct {
	fs      afero.Fs
	opts    config.Options
	include glob.Glob
}

// New returns a Runner over fs. opts should already be validated.
func New(fs afero.Fs, opts config.Options) (*Runner, error) {
	pattern := opts.Include
	if pattern == "" {
		pattern = config.DefaultInclude
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Runner{fs: fs, opts: opts, include: g}, nil
}

// ---------------------------------------------------------------------------
// Discovery and planning
// ---------------------------------------------------------------------------

// Discover returns the slash-separated paths, relative to the source
// directory, of every translation file selected by the include pattern.
// The reserved file and the output directory are skipped.
func (r *Runner) Discover() ([]string, error) {
	src := r.opts.Source
	outDir := filepath.Clean(r.opts.Output)

	var files []string
	err := afero.Walk(r.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != src && filepath.Clean(path) == outDir {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == config.ReservedFileName {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if r.matches(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", src, err)
	}

	sort.Strings(files)
	return files, nil
}

// matches tests rel against the include pattern. The path is also tried
// with a leading slash so that "**/" patterns select top-level files too.
func (r *Runner) matches(rel string) bool {
	return r.include.Match(rel) || r.include.Match("/"+rel)
}

// Plan builds the units for files (as returned by Discover).
//
// When both a default language and an input file are configured, every
// file except the input file is first seeded for the default language from
// the input file, copying its values. Then each target language gets one
// unit per file, reconciled against that file itself: value-copy for the
// default language, placeholders for the others. Outputs that would land
// inside the source directory are skipped, and a later unit for the same
// output path replaces an earlier one.
func (r *Runner) Plan(files []string) []Unit {
	var units []Unit
	byOutput := make(map[string]int)
	add := func(u Unit) {
		if r.insideSource(u.Output) {
			return
		}
		if i, ok := byOutput[u.Output]; ok {
			units[i] = u
			return
		}
		byOutput[u.Output] = len(units)
		units = append(units, u)
	}

	input := r.opts.InputFileName()
	def := r.opts.DefaultLanguage

	if def != "" && input != "" {
		ref := filepath.Join(r.opts.Source, input)
		for _, rel := range files {
			if rel == input {
				continue
			}
			add(Unit{
				Language:  def,
				RelPath:   rel,
				Reference: ref,
				Output:    r.outputPath(def, rel),
				Mode:      merge.ModeCopy,
			})
		}
	}

	for _, lang := range r.opts.Languages {
		mode := merge.ModePlaceholder
		if lang == def {
			mode = merge.ModeCopy
		}
		for _, rel := range files {
			add(Unit{
				Language:  lang,
				RelPath:   rel,
				Reference: filepath.Join(r.opts.Source, filepath.FromSlash(rel)),
				Output:    r.outputPath(lang, rel),
				Mode:      mode,
			})
		}
	}

	return units
}

func (r *Runner) outputPath(lang, rel string) string {
	return filepath.Join(r.opts.Output, lang, filepath.FromSlash(rel))
}

func (r *Runner) insideSource(path string) bool {
	src, err := filepath.Abs(r.opts.Source)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(src, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

type action int

const (
	actionWrite action = iota
	actionDryRun
	actionStatus
)

// Run reconciles every unit and writes the changed outputs.
func (r *Runner) Run(ctx context.Context, units []Unit) []Result {
	return r.execute(ctx, units, actionWrite)
}

// DryRun reconciles every unit without writing; each Result carries the
// merge patch that Run would apply.
func (r *Runner) DryRun(ctx context.Context, units []Unit) []Result {
	return r.execute(ctx, units, actionDryRun)
}

// Status computes the reports of every unit without writing.
func (r *Runner) Status(ctx context.Context, units []Unit) []Result {
	return r.execute(ctx, units, actionStatus)
}

func (r *Runner) execute(ctx context.Context, units []Unit, act action) []Result {
	refs := r.loadReferences(units)
	results := make([]Result, len(units))

	var g errgroup.Group
	g.SetLimit(r.opts.Jobs)
	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Unit: u, Err: err}
				return nil
			}
			results[i] = r.process(u, refs[u.Reference], act)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type reference struct {
	node *tree.Node
	err  error
}

// loadReferences reads every distinct reference once. The trees are shared
// read-only by all units.
func (r *Runner) loadReferences(units []Unit) map[string]reference {
	refs := make(map[string]reference)
	for _, u := range units {
		if _, ok := refs[u.Reference]; ok {
			continue
		}
		n, err := tree.ReadFile(r.fs, u.Reference)
		refs[u.Reference] = reference{node: n, err: err}
	}
	return refs
}

func (r *Runner) process(u Unit, ref reference, act action) Result {
	res := Result{Unit: u}
	if ref.err != nil {
		res.Err = fmt.Errorf("reading reference: %w", ref.err)
		return res
	}

	prev, existing, loadErr := r.loadExisting(u.Output)
	if existing == nil {
		existing = tree.NewBranch()
		res.Missing = true
		res.LoadErr = loadErr
	}

	out, report := merge.Synchronize(existing, ref.node, merge.Options{
		Prefix: r.opts.Prefix,
		Mode:   u.Mode,
	})
	res.Report = report

	data, err := tree.Marshal(out)
	if err != nil {
		res.Err = err
		return res
	}
	res.Changed = !bytes.Equal(prev, data)

	switch act {
	case actionStatus:
	case actionDryRun:
		original := prev
		if res.Missing {
			original = []byte("{}")
		}
		patch, err := jsonpatch.CreateMergePatch(original, data)
		if err != nil {
			res.Err = fmt.Errorf("computing patch: %w", err)
			return res
		}
		res.Patch = patch
	default:
		if res.Changed {
			if err := tree.WriteFile(r.fs, u.Output, out); err != nil {
				res.Err = err
			}
		}
	}
	return res
}

// loadExisting reads the current output file. existing is nil when the
// file is absent (err nil) or unusable (err set).
func (r *Runner) loadExisting(path string) (data []byte, existing *tree.Node, err error) {
	data, err = afero.ReadFile(r.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	n, err := tree.Parse(data)
	if err != nil {
		return data, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, n, nil
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary aggregates a batch of results.
type Summary struct {
	Units     int
	Written   int
	Unchanged int
	Failed    int
	Missing   int
	Added     int
	Pruned    int
}

// Summarize counts the outcomes in results.
func Summarize(results []Result) Summary {
	s := Summary{Units: len(results)}
	for _, res := range results {
		switch {
		case res.Err != nil:
			s.Failed++
			continue
		case res.Changed:
			s.Written++
		default:
			s.Unchanged++
		}
		if res.Missing {
			s.Missing++
		}
		s.Added += len(res.Report.Missing)
		s.Pruned += len(res.Report.Stale)
	}
	return s
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
