package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/minios-linux/keysync/config"
	"github.com/minios-linux/keysync/runner"
	"github.com/minios-linux/keysync/tree"
	"github.com/spf13/afero"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{name: "clamps below zero", percent: -10, width: 4, want: "░░░░   0%"},
		{name: "mid range", percent: 50, width: 4, want: "██░░  50%"},
		{name: "clamps above hundred", percent: 120, width: 4, want: "████ 100%"},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLangHelpers(t *testing.T) {
	langs := []string{"en", "pt-BR", "zh-Hant"}
	if got := langColumnWidth(langs); got != len("zh-Hant") {
		t.Fatalf("langColumnWidth() = %d, want %d", got, len("zh-Hant"))
	}

	cell := langCell("pt-BR", 6)
	if !strings.Contains(cell, "🇧🇷") || !strings.Contains(cell, "pt-BR ") {
		t.Fatalf("langCell() = %q, want flag and padded language code", cell)
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	root := newRootCmd()
	fs := root.PersistentFlags()
	if err := fs.Parse([]string{"-s", "app", "-l", "de, fr", "--jobs", "4", "-t"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	o := config.Defaults()
	o.Prefix = "from-config"
	if err := applyFlags(fs, &o); err != nil {
		t.Fatalf("applyFlags() error: %v", err)
	}

	if o.Source != "app" || o.Jobs != 4 || !o.Transformise {
		t.Fatalf("applyFlags() = %+v", o)
	}
	if want := []string{"de", "fr"}; !reflect.DeepEqual(o.Languages, want) {
		t.Fatalf("Languages = %#v, want %#v", o.Languages, want)
	}
	if o.Prefix != "from-config" {
		t.Fatalf("Prefix = %q, unset flag must not override", o.Prefix)
	}
}

func TestLoadOptionsPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := "source: locales\nlanguages: [ru]\nprefix: '#'\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}
	t.Chdir(dir)
	for _, name := range []string{config.EnvSource, config.EnvLanguages, config.EnvOutput, config.EnvJobs} {
		t.Setenv(name, "")
	}
	t.Setenv(config.EnvPrefix, "??")

	root := newRootCmd()
	fs := root.PersistentFlags()
	if err := fs.Parse([]string{"-l", "de"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	opts, err := loadOptions(fs)
	if err != nil {
		t.Fatalf("loadOptions() error: %v", err)
	}
	if opts.Source != "locales" {
		t.Fatalf("Source = %q, want value from config file", opts.Source)
	}
	if opts.Prefix != "??" {
		t.Fatalf("Prefix = %q, want value from environment", opts.Prefix)
	}
	if !reflect.DeepEqual(opts.Languages, []string{"de"}) {
		t.Fatalf("Languages = %v, want value from flag", opts.Languages)
	}
}

func syncOptions() config.Options {
	opts := config.Defaults()
	opts.Source = "/src"
	opts.Output = "/out"
	opts.Languages = []string{"de"}
	return opts
}

func TestRunSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/src/app.json": `{"greeting": "Hello"}`})

	var out bytes.Buffer
	if err := runSync(context.Background(), fs, syncOptions(), false, &out); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if !strings.Contains(out.String(), "/src/app.json ==> /out/de/app.json: new translations found") ||
		!strings.Contains(out.String(), "  + greeting") {
		t.Fatalf("runSync() output = %q", out.String())
	}

	got, err := tree.ReadFile(fs, "/out/de/app.json")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if v, _ := tree.GetValue(got, "greeting"); v != "!<greeting" {
		t.Fatalf("greeting = %q, want placeholder", v)
	}

	out.Reset()
	if err := runSync(context.Background(), fs, syncOptions(), false, &out); err != nil {
		t.Fatalf("second runSync() error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("second runSync() output = %q, want nothing new", out.String())
	}
}

func TestRunSyncDryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/src/app.json": `{"greeting": "Hello"}`})

	var out bytes.Buffer
	if err := runSync(context.Background(), fs, syncOptions(), true, &out); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if !strings.Contains(out.String(), "/out/de/app.json: {") {
		t.Fatalf("dry run output = %q, want a patch", out.String())
	}
	if exists, _ := afero.Exists(fs, "/out/de/app.json"); exists {
		t.Fatal("dry run wrote a file")
	}
}

func TestRunSyncReportsFailures(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFiles(t, base, map[string]string{"/src/app.json": `{"greeting": "Hello"}`})

	var out bytes.Buffer
	err := runSync(context.Background(), afero.NewReadOnlyFs(base), syncOptions(), false, &out)
	if err == nil || !strings.Contains(err.Error(), "1 file failed") {
		t.Fatalf("runSync() error = %v, want one failed file", err)
	}
	if !strings.Contains(err.Error(), "/out/de/app.json") {
		t.Fatalf("runSync() error = %v, want the failed output named", err)
	}
}

func TestTransformiseHelpNamesExtract(t *testing.T) {
	f := newRootCmd().PersistentFlags().Lookup("transformise")
	if f == nil || !strings.Contains(f.Usage, "extract only") {
		t.Fatalf("transformise usage = %v, want it scoped to extract", f)
	}
}

func TestRunSyncIgnoresTransformise(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/src/app.json": `{"Hello World": "Hello"}`})

	opts := syncOptions()
	opts.Transformise = true
	if err := runSync(context.Background(), fs, opts, false, &bytes.Buffer{}); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	got, err := tree.ReadFile(fs, "/out/de/app.json")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if _, ok := tree.GetValue(got, "Hello World"); !ok {
		t.Fatalf("keys = %v, want reference keys untouched", tree.Flatten(got))
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	for _, want := range []string{"keysync version", "commit:", "language:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("version output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunExtract(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/code/app.js":   "__('nav.home')\n__('title')\n",
		"/src/main.json": `{"title": "Kept", "old": "x"}`,
	})

	opts := syncOptions()
	opts.InputFile = "main"
	opts.ScanDirs = []string{"/code"}

	var out bytes.Buffer
	if err := runExtract(fs, opts, &out); err != nil {
		t.Fatalf("runExtract() error: %v", err)
	}
	if !strings.Contains(out.String(), "  + nav.home") || !strings.Contains(out.String(), "  - old") {
		t.Fatalf("runExtract() output = %q", out.String())
	}
	if !strings.Contains(out.String(), "/code ==> /src/main.json: stale translations removed") {
		t.Fatalf("runExtract() output = %q, want a heading before stale keys", out.String())
	}

	got, err := tree.ReadFile(fs, "/src/main.json")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !reflect.DeepEqual(tree.Flatten(got), []string{"nav.home", "title"}) {
		t.Fatalf("keys = %v", tree.Flatten(got))
	}
	if v, _ := tree.GetValue(got, "title"); v != "Kept" {
		t.Fatalf("title = %q, want existing value kept", v)
	}
	if v, _ := tree.GetValue(got, "nav.home"); v != "nav.home" {
		t.Fatalf("nav.home = %q, want source text", v)
	}
}

func TestRunExtractStaleOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/code/app.js":   "__('title')\n",
		"/src/main.json": `{"title": "Kept", "old": "x"}`,
	})

	opts := syncOptions()
	opts.InputFile = "main"
	opts.ScanDirs = []string{"/code"}

	var out bytes.Buffer
	if err := runExtract(fs, opts, &out); err != nil {
		t.Fatalf("runExtract() error: %v", err)
	}
	want := "/code ==> /src/main.json: stale translations removed\n  - old\n"
	if out.String() != want {
		t.Fatalf("runExtract() output = %q, want %q", out.String(), want)
	}
}

func TestRunExtractNeedsInputFile(t *testing.T) {
	if err := runExtract(afero.NewMemMapFs(), syncOptions(), &bytes.Buffer{}); err == nil {
		t.Fatal("runExtract() without input file succeeded, want error")
	}
}

func TestRunStatus(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/src/app.json":    `{"greeting": "Hello", "bye": "Bye"}`,
		"/out/de/app.json": `{"greeting": "Hallo", "bye": "!<bye"}`,
	})

	var out bytes.Buffer
	if err := runStatus(context.Background(), fs, syncOptions(), &out); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	s := out.String()
	for _, want := range []string{"Deutsch", "1/2", "50%", "(1 pending, 0 missing)"} {
		if !strings.Contains(s, want) {
			t.Fatalf("runStatus() output missing %q:\n%s", want, s)
		}
	}
}

func TestCollectStats(t *testing.T) {
	results := []runner.Result{
		{Unit: runner.Unit{Language: "ru"}},
		{Unit: runner.Unit{Language: "de"}, Err: os.ErrNotExist},
		{Unit: runner.Unit{Language: "ru"}},
	}
	results[0].Report.Translated = []string{"a", "b"}
	results[2].Report.Missing = []string{"c"}

	stats := collectStats(results)
	if len(stats) != 2 || stats[0].lang != "ru" || stats[1].lang != "de" {
		t.Fatalf("collectStats() = %+v", stats)
	}
	if stats[0].files != 2 || stats[0].total() != 3 || stats[0].percent() != 66 {
		t.Fatalf("ru stats = %+v", stats[0])
	}
	if stats[1].failed != 1 || stats[1].percent() != 100 {
		t.Fatalf("de stats = %+v", stats[1])
	}
}
