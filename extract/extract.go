// Package extract finds translation keys in source code.
//
// Keys are the literal first argument of calls to a marker function,
// "__" by default:
//
//	__('nav.home')          // JavaScript, TypeScript, Vue, PHP, Python, Ruby...
//	i18n.__("nav.about")    // method calls match too
//	__(`title`)             // template literals without ${...}
//
// Go files are parsed with go/ast; everything else is scanned with a
// regular expression built from the function name. The extracted keys form
// the skeleton tree that language files are reconciled against.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/keysync/tree"
	"github.com/spf13/afero"
)

// DefaultFunctionName is the marker function scanned for by default.
const DefaultFunctionName = "__"

// SupportedExtensions maps file extensions to the scanner that handles them.
var SupportedExtensions = map[string]string{
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".mjs":    "JavaScript",
	".cjs":    "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".vue":    "Vue",
	".svelte": "Svelte",
	".html":   "HTML",
	".go":     "Go",
	".py":     "Python",
	".php":    "PHP",
	".rb":     "Ruby",
}

// skipDirs contains directory names to skip during source file scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// Entry is a single extracted key.
type Entry struct {
	// Key is the dotted key path, transformised when requested.
	Key string
	// Text is the literal as written in the source.
	Text string
	// Locations are "file:line" references.
	Locations []string
}

// Result holds the outcome of an extraction.
type Result struct {
	// SourceFiles is the list of source files scanned.
	SourceFiles []string
	// Entries are the extracted keys sorted by key.
	Entries []*Entry
	// Warnings are per-file failures; extraction continues past them.
	Warnings []error
}

// Options control extraction.
type Options struct {
	// FunctionName is the marker function (default "__").
	FunctionName string
	// Transformise slugifies every key segment.
	Transformise bool
}

// FindSources recursively finds all source files with known extensions in dirs.
// Skips common non-source directories (node_modules, .git, dist, etc.).
func FindSources(fs afero.Fs, dirs []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, dir := range dirs {
		err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if path == dir {
					return err
				}
				return nil // skip unreadable entries
			}
			if info.IsDir() {
				if path != dir && skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := SupportedExtensions[filepath.Ext(path)]; ok && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Extract scans dirs for marker-function calls.
func Extract(fs afero.Fs, dirs []string, opts Options) (*Result, error) {
	files, err := FindSources(fs, dirs)
	if err != nil {
		return nil, err
	}

	s := NewScanner(fs, opts)
	res := &Result{SourceFiles: files}
	for _, path := range files {
		if err := s.ScanFile(path); err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("skipping %s: %w", path, err))
		}
	}
	res.Entries = s.Entries()
	return res, nil
}

// Scanner accumulates entries across files.
type Scanner struct {
	fs      afero.Fs
	opts    Options
	script  *scriptMatcher
	entries map[string]*Entry
}

// NewScanner returns a Scanner reading from fs.
func NewScanner(fs afero.Fs, opts Options) *Scanner {
	if opts.FunctionName == "" {
		opts.FunctionName = DefaultFunctionName
	}
	return &Scanner{
		fs:      fs,
		opts:    opts,
		script:  newScriptMatcher(opts.FunctionName),
		entries: make(map[string]*Entry),
	}
}

// ScanFile extracts keys from a single file.
func (s *Scanner) ScanFile(path string) error {
	src, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == ".go" {
		return s.scanGo(path, src)
	}
	for _, m := range s.script.find(string(src)) {
		s.add(m.text, fmt.Sprintf("%s:%d", path, m.line))
	}
	return nil
}

func (s *Scanner) add(text, location string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	key := text
	if s.opts.Transformise {
		key = Transformise(text)
	}
	if e, ok := s.entries[key]; ok {
		e.Locations = append(e.Locations, location)
		return
	}
	s.entries[key] = &Entry{Key: key, Text: text, Locations: []string{location}}
}

// Entries returns the accumulated entries sorted by key.
func (s *Scanner) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BuildTree turns entries into a skeleton tree mapping each key to its
// source text. When a key is also the prefix of another key, the longer
// path wins because entries are applied in key order.
func BuildTree(entries []*Entry) *tree.Node {
	n := tree.NewBranch()
	for _, e := range entries {
		tree.Set(n, e.Key, tree.NewLeaf(e.Text))
	}
	return n
}
