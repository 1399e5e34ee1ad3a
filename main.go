// keysync keeps nested JSON translation files in step with their reference
// files: missing keys receive placeholders, stale keys are dropped and
// finished translations are left alone.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/minios-linux/keysync/config"
	"github.com/minios-linux/keysync/extract"
	"github.com/minios-linux/keysync/i18n"
	"github.com/minios-linux/keysync/langmeta"
	"github.com/minios-linux/keysync/merge"
	"github.com/minios-linux/keysync/runner"
	"github.com/minios-linux/keysync/tree"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, blue("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, green("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, yellow("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, red("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "keysync",
		Short: "Keep JSON translation files in sync with their reference keys",
		Long: `keysync keeps nested JSON translation files in sync.

Every translation file found under --source is reconciled, for each target
language, into <output>/<language>/<path>. Keys missing from a language file
get a placeholder ("!<" + last key segment), keys that still hold a
placeholder are regenerated, keys no longer in the reference are removed and
real translations are never overwritten. Output is sorted and stable, so a
second run changes nothing.

Commands:
  sync      Reconcile translation files for every target language
  extract   Collect marker-function strings from source code into the input file
  status    Show per-language translation progress
  version   Show version information

Settings are read from .keysync.yaml, KEYSYNC_* environment variables (a .env
file is loaded if present) and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: "+config.FileName+" when present)")
	pf.StringP("source", "s", "", "Directory scanned for translation files")
	pf.StringP("input-file", "i", "", "Reference file under --source, without extension")
	pf.StringP("default-language", "d", "", "Language seeded with the input file's values")
	pf.StringP("function-name", "f", config.DefaultFunctionName, "Marker function wrapping translatable strings")
	pf.StringP("output", "o", config.DefaultOutput, "Output directory")
	pf.StringP("languages", "l", config.DefaultLanguage, "Target languages, space or comma separated")
	pf.StringP("prefix", "p", config.DefaultPrefix, "Prefix marking untranslated values")
	pf.BoolP("transformise", "t", false, "Slugify keys found in source code (extract only)")
	pf.String("include", config.DefaultInclude, "Glob selecting translation files under --source")
	pf.Int("jobs", 1, "Number of files reconciled in parallel")

	root.AddCommand(
		newSyncCmd(),
		newExtractCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if errors.Is(err, config.ErrNoSource) {
			logWarning("%s", i18n.T("No source directory supplied (use --source)"))
		} else {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// loadOptions layers defaults, the config file, the environment and the
// flags that were set explicitly.
func loadOptions(fs *pflag.FlagSet) (config.Options, error) {
	opts := config.Defaults()

	if err := config.LoadDotEnv(".env"); err != nil {
		return opts, err
	}

	cfgPath, _ := fs.GetString("config")
	file, err := config.LoadFile(".", cfgPath)
	if err != nil {
		return opts, err
	}
	file.Apply(&opts)

	if err := opts.ApplyEnv(os.LookupEnv); err != nil {
		return opts, err
	}
	if err := applyFlags(fs, &opts); err != nil {
		return opts, err
	}

	opts.Normalize()
	return opts, opts.Validate()
}

// applyFlags copies the flags set on the command line over o.
func applyFlags(fs *pflag.FlagSet, o *config.Options) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"source", &o.Source},
		{"input-file", &o.InputFile},
		{"default-language", &o.DefaultLanguage},
		{"function-name", &o.FunctionName},
		{"output", &o.Output},
		{"prefix", &o.Prefix},
		{"include", &o.Include},
	}
	for _, s := range strs {
		if !fs.Changed(s.name) {
			continue
		}
		v, err := fs.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	if fs.Changed("languages") {
		v, err := fs.GetString("languages")
		if err != nil {
			return err
		}
		o.Languages = config.ParseLanguages(v)
	}
	if fs.Changed("transformise") {
		v, err := fs.GetBool("transformise")
		if err != nil {
			return err
		}
		o.Transformise = v
	}
	if fs.Changed("jobs") {
		v, err := fs.GetInt("jobs")
		if err != nil {
			return err
		}
		o.Jobs = v
	}
	if f := fs.Lookup("scan"); f != nil && f.Changed {
		v, err := fs.GetStringSlice("scan")
		if err != nil {
			return err
		}
		o.ScanDirs = v
	}
	return nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "keysync version %s\n", version)
			fmt.Fprintf(w, "  commit:    %s\n", commit)
			fmt.Fprintf(w, "  built:     %s\n", date)
			fmt.Fprintf(w, "  language:  %s\n", i18n.Language())
		},
	}
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile translation files for every target language",
		Long: `Reconcile every translation file under --source into
<output>/<language>/<path> for each target language.

When --default-language and --input-file are both set, the default
language is first seeded with the input file's values; the default
language always copies reference values instead of writing placeholders.

Use --dry-run to print the JSON merge patch each file would receive
without writing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags())
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runSync(cmd.Context(), afero.NewOsFs(), opts, dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show what would change without writing files")

	return cmd
}

func runSync(ctx context.Context, fs afero.Fs, opts config.Options, dryRun bool, w io.Writer) error {
	warnExtractOnly(opts)

	r, err := runner.New(fs, opts)
	if err != nil {
		return err
	}

	files, err := r.Discover()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logWarning(i18n.T("No translation files found in %s"), opts.Source)
		return nil
	}

	units := r.Plan(files)
	logInfo(i18n.N("Reconciling %d file", "Reconciling %d files", len(units)), len(units))

	var results []runner.Result
	if dryRun {
		results = r.DryRun(ctx, units)
	} else {
		results = r.Run(ctx, units)
	}
	for _, res := range results {
		printResult(w, res, dryRun)
	}

	s := runner.Summarize(results)
	if dryRun {
		logInfo(i18n.T("Dry run: %d of %d files would change"), s.Written, s.Units)
	} else {
		logSuccess(i18n.T("%d written, %d unchanged, %d keys added, %d stale keys removed"),
			s.Written, s.Unchanged, s.Added, s.Pruned)
	}

	if failed := runner.Failed(results); len(failed) > 0 {
		outputs := make([]string, len(failed))
		for i, res := range failed {
			outputs[i] = res.Unit.Output
		}
		return fmt.Errorf("%s: %s",
			fmt.Sprintf(i18n.N("%d file failed", "%d files failed", len(failed)), len(failed)),
			strings.Join(outputs, ", "))
	}
	return nil
}

// warnExtractOnly reports options that only the extract command honours.
func warnExtractOnly(opts config.Options) {
	if opts.Transformise {
		logWarning("%s", i18n.T("--transformise only applies to extract; ignored"))
	}
}

// printResult writes the per-file diagnostics of res to w; warnings and
// errors go to the log.
func printResult(w io.Writer, res runner.Result, dryRun bool) {
	u := res.Unit
	if res.Err != nil {
		logError("%s: %v", u.Output, res.Err)
		return
	}

	switch {
	case res.LoadErr != nil:
		logWarning(i18n.T("Cannot use %s, starting from an empty tree: %v"), u.Output, res.LoadErr)
	case res.Missing:
		logWarning(i18n.T("%s does not exist, starting from an empty tree"), u.Output)
	}

	if len(res.Report.Missing) > 0 {
		fmt.Fprintf(w, "%s ==> %s: %s\n", u.Reference, u.Output, i18n.T("new translations found"))
		for _, k := range res.Report.Missing {
			fmt.Fprintf(w, "  + %s\n", k)
		}
	}
	if len(res.Report.Stale) > 0 {
		fmt.Fprintf(w, "%s ==> %s: %s\n", u.Reference, u.Output, i18n.T("stale translations removed"))
		for _, k := range res.Report.Stale {
			fmt.Fprintf(w, "  - %s\n", k)
		}
	}
	if dryRun && res.Changed {
		fmt.Fprintf(w, "%s: %s\n", u.Output, res.Patch)
	}
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Collect marker-function strings from source code into the input file",
		Long: `Scan source code for calls to the marker function (--function-name,
"__" by default) and reconcile <source>/<input-file>.json with the keys
found. Existing values are kept, new keys take the literal text from the
code and keys no longer used are removed.

Go files are parsed; JavaScript, TypeScript, Vue, Svelte, HTML, Python,
PHP and Ruby files are scanned for fn('...'), fn("...") and fn(` + "`...`" + `).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags())
			if err != nil {
				return err
			}
			return runExtract(afero.NewOsFs(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSlice("scan", nil, "Source code directories to scan (default: current directory)")

	return cmd
}

func runExtract(fs afero.Fs, opts config.Options, w io.Writer) error {
	if opts.InputFile == "" {
		return errors.New(i18n.T("extract needs an input file (use --input-file)"))
	}

	dirs := opts.ScanDirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	res, err := extract.Extract(fs, dirs, extract.Options{
		FunctionName: opts.FunctionName,
		Transformise: opts.Transformise,
	})
	if err != nil {
		return err
	}
	for _, warn := range res.Warnings {
		logWarning("%v", warn)
	}
	logInfo(i18n.N("Found %d string", "Found %d strings", len(res.Entries)), len(res.Entries))

	target := filepath.Join(opts.Source, opts.InputFileName())
	existing, err := tree.ReadFile(fs, target)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		logWarning(i18n.T("%s does not exist, creating it"), target)
		existing = tree.NewBranch()
	}

	out, report := merge.Synchronize(existing, extract.BuildTree(res.Entries), merge.Options{
		Prefix: opts.Prefix,
		Mode:   merge.ModeCopy,
	})

	if len(report.Missing) > 0 {
		fmt.Fprintf(w, "%s ==> %s: %s\n", strings.Join(dirs, " "), target, i18n.T("new translations found"))
		for _, k := range report.Missing {
			fmt.Fprintf(w, "  + %s\n", k)
		}
	}
	if len(report.Stale) > 0 {
		fmt.Fprintf(w, "%s ==> %s: %s\n", strings.Join(dirs, " "), target, i18n.T("stale translations removed"))
		for _, k := range report.Stale {
			fmt.Fprintf(w, "  - %s\n", k)
		}
	}

	if err := tree.WriteFile(fs, target, out); err != nil {
		return err
	}
	logSuccess(i18n.N("Wrote %s (%d key)", "Wrote %s (%d keys)", report.Total()), target, report.Total())
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: per-language progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-language translation progress",
		Long: `Show how many keys of each target language are translated, still hold a
placeholder or are missing. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags())
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), afero.NewOsFs(), opts, cmd.OutOrStdout())
		},
	}
}

// langStats aggregates the reports of one language.
type langStats struct {
	lang       string
	files      int
	translated int
	pending    int
	missing    int
	stale      int
	failed     int
}

func (s langStats) total() int { return s.translated + s.pending + s.missing }

func (s langStats) percent() int {
	if s.total() == 0 {
		return 100
	}
	return s.translated * 100 / s.total()
}

func collectStats(results []runner.Result) []langStats {
	byLang := make(map[string]*langStats)
	var order []string
	for _, res := range results {
		lang := res.Unit.Language
		st, ok := byLang[lang]
		if !ok {
			st = &langStats{lang: lang}
			byLang[lang] = st
			order = append(order, lang)
		}
		st.files++
		if res.Err != nil {
			st.failed++
			continue
		}
		st.translated += len(res.Report.Translated)
		st.pending += len(res.Report.Pending)
		st.missing += len(res.Report.Missing)
		st.stale += len(res.Report.Stale)
	}

	out := make([]langStats, 0, len(order))
	for _, lang := range order {
		out = append(out, *byLang[lang])
	}
	return out
}

func runStatus(ctx context.Context, fs afero.Fs, opts config.Options, w io.Writer) error {
	warnExtractOnly(opts)

	r, err := runner.New(fs, opts)
	if err != nil {
		return err
	}
	files, err := r.Discover()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", blue(i18n.T("Project")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	absSource, _ := filepath.Abs(opts.Source)
	fmt.Fprintf(w, "  Source:     %s\n", absSource)
	fmt.Fprintf(w, "  Output:     %s\n", opts.Output)
	if opts.InputFile != "" {
		fmt.Fprintf(w, "  Input:      %s\n", opts.InputFileName())
	}
	fmt.Fprintf(w, "  Files:      %d\n", len(files))
	fmt.Fprintln(w)

	if len(files) == 0 {
		logInfo(i18n.T("No translation files found in %s"), opts.Source)
		return nil
	}

	stats := collectStats(r.Status(ctx, r.Plan(files)))
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].lang < stats[j].lang })

	langs := make([]string, len(stats))
	for i, st := range stats {
		langs[i] = st.lang
	}
	width := langColumnWidth(langs)

	fmt.Fprintf(w, "%s\n", blue(i18n.T("Translation Statistics")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, st := range stats {
		name := langmeta.Resolve(st.lang).Name
		fmt.Fprintf(w, "%s %-16s %s  %d/%d", langCell(st.lang, width), name, progressBar(st.percent(), 20), st.translated, st.total())
		if st.pending > 0 || st.missing > 0 {
			fmt.Fprintf(w, "  (%d pending, %d missing)", st.pending, st.missing)
		}
		if st.failed > 0 {
			fmt.Fprintf(w, "  %s", red(fmt.Sprintf(i18n.N("%d file unreadable", "%d files unreadable", st.failed), st.failed)))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	return nil
}

// progressBar renders percent as a coloured bar of width cells followed by
// the percentage.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := yellow
	switch {
	case percent < 30:
		paint = red
	case percent >= 80:
		paint = green
	}
	return paint(bar) + fmt.Sprintf(" %3d%%", percent)
}

func langColumnWidth(langs []string) int {
	width := 0
	for _, lang := range langs {
		width = max(width, len(lang))
	}
	return width
}

// langCell renders a language code with its flag, padded to width.
func langCell(lang string, width int) string {
	flag := langmeta.Resolve(lang).Flag
	if flag == "" {
		flag = "  "
	}
	return flag + " " + fmt.Sprintf("%-*s", width, lang)
}
