// Package config holds keysync's run options and loads them from the
// layered sources: built-in defaults, a .keysync.yaml file, KEYSYNC_*
// environment variables (optionally from a .env file) and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Defaults.
const (
	DefaultFunctionName = "__"
	DefaultOutput       = "translations"
	DefaultLanguage     = "en"
	DefaultPrefix       = "!<"
	DefaultInclude      = "**/*.json"

	// ReservedFileName is never treated as a translation source.
	ReservedFileName = "keysync.json"
)

// ErrNoSource is returned by Validate when no source directory is configured.
var ErrNoSource = errors.New("no source directory supplied (use --source)")

// Options are the settings of one keysync run.
type Options struct {
	// Source is the root directory scanned for translation files.
	Source string
	// InputFile is the reference file basename under Source, without extension.
	InputFile string
	// DefaultLanguage is the language whose files carry the canonical values.
	DefaultLanguage string
	// FunctionName is the marker function located in source code.
	FunctionName string
	// Output is the directory receiving <language>/<relative path> files.
	Output string
	// Languages are the target language codes.
	Languages []string
	// Prefix marks untranslated placeholder values.
	Prefix string
	// Transformise slugifies extracted keys.
	Transformise bool
	// Include is the glob selecting translation files under Source.
	Include string
	// ScanDirs are the source code directories read by extract.
	ScanDirs []string
	// Jobs bounds how many files are reconciled concurrently.
	Jobs int
}

// Defaults returns the built-in options.
func Defaults() Options {
	return Options{
		FunctionName: DefaultFunctionName,
		Output:       DefaultOutput,
		Languages:    []string{DefaultLanguage},
		Prefix:       DefaultPrefix,
		Include:      DefaultInclude,
		Jobs:         1,
	}
}

// InputFileName returns the reference file name with its .json extension,
// or "" when no input file is configured.
func (o *Options) InputFileName() string {
	if o.InputFile == "" {
		return ""
	}
	return o.InputFile + ".json"
}

// ParseLanguages splits a language list on spaces and commas.
func ParseLanguages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// Environment variable names.
const (
	EnvSource          = "KEYSYNC_SOURCE"
	EnvInputFile       = "KEYSYNC_INPUT_FILE"
	EnvDefaultLanguage = "KEYSYNC_DEFAULT_LANGUAGE"
	EnvFunctionName    = "KEYSYNC_FUNCTION_NAME"
	EnvOutput          = "KEYSYNC_OUTPUT"
	EnvLanguages       = "KEYSYNC_LANGUAGES"
	EnvPrefix          = "KEYSYNC_PREFIX"
	EnvTransformise    = "KEYSYNC_TRANSFORMISE"
	EnvInclude         = "KEYSYNC_INCLUDE"
	EnvJobs            = "KEYSYNC_JOBS"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored; the .env file is optional when variables come from the
// real environment (CI, containers).
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides o with KEYSYNC_* variables found through lookup
// (usually os.LookupEnv).
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvSource, &o.Source)
	str(EnvInputFile, &o.InputFile)
	str(EnvDefaultLanguage, &o.DefaultLanguage)
	str(EnvFunctionName, &o.FunctionName)
	str(EnvOutput, &o.Output)
	str(EnvPrefix, &o.Prefix)
	str(EnvInclude, &o.Include)

	if v, ok := lookup(EnvLanguages); ok && v != "" {
		o.Languages = ParseLanguages(v)
	}
	if v, ok := lookup(EnvTransformise); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTransformise, err)
		}
		o.Transformise = b
	}
	if v, ok := lookup(EnvJobs); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		o.Jobs = n
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Normalize cleans up values that are accepted in more than one spelling.
func (o *Options) Normalize() {
	o.InputFile = strings.TrimSuffix(strings.TrimSpace(o.InputFile), ".json")
	if o.Source != "" {
		o.Source = filepath.Clean(o.Source)
	}
	o.Languages = ParseLanguages(strings.Join(o.Languages, " "))
}

// Validate checks that o describes a runnable configuration.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Source) == "" {
		return ErrNoSource
	}
	if o.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	if o.Output == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if o.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", o.Jobs)
	}
	if len(o.Languages) == 0 {
		return fmt.Errorf("no target languages configured")
	}
	for _, lang := range o.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("invalid language code %q: %w", lang, err)
		}
	}
	if o.DefaultLanguage != "" {
		if _, err := language.Parse(o.DefaultLanguage); err != nil {
			return fmt.Errorf("invalid default language %q: %w", o.DefaultLanguage, err)
		}
	}
	if strings.ContainsAny(o.InputFile, `/\`) {
		return fmt.Errorf("input file %q must be a basename", o.InputFile)
	}
	return nil
}
