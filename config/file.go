package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".keysync.yaml"

// File is the .keysync.yaml structure. Every field is optional; unset
// fields leave the defaults in place.
type File struct {
	// Source is the directory scanned for translation files.
	Source string `yaml:"source,omitempty"`
	// InputFile is the reference file basename (".json" optional).
	InputFile string `yaml:"input_file,omitempty"`
	// DefaultLanguage seeds the canonical key structure.
	DefaultLanguage string `yaml:"default_language,omitempty"`
	// FunctionName is the marker function located in source code.
	FunctionName string `yaml:"function_name,omitempty"`
	// Output is the output directory.
	Output string `yaml:"output,omitempty"`
	// Languages is the target language list.
	Languages []string `yaml:"languages,omitempty"`
	// Prefix marks untranslated values.
	Prefix string `yaml:"prefix,omitempty"`
	// Transformise slugifies extracted keys.
	Transformise *bool `yaml:"transformise,omitempty"`
	// Include is the glob selecting translation files.
	Include string `yaml:"include,omitempty"`
	// Scan lists source code directories for extract.
	Scan []string `yaml:"scan,omitempty"`
	// Jobs bounds parallel reconciliation.
	Jobs int `yaml:"jobs,omitempty"`

	// dir is the directory holding the file; relative paths resolve from it.
	dir string `yaml:"-"`
}

// LoadFile loads a config file. When path is empty, .keysync.yaml in dir is
// used and a missing file is not an error (nil, nil is returned). An
// explicitly named file must exist.
func LoadFile(dir, path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.dir = filepath.Dir(path)

	if f.Jobs < 0 {
		return nil, fmt.Errorf("%s: jobs must not be negative", path)
	}
	for i, lang := range f.Languages {
		if lang == "" {
			return nil, fmt.Errorf("%s: language #%d is empty", path, i+1)
		}
	}

	return &f, nil
}

// resolve makes p relative to the config file's directory.
func (f *File) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Apply copies the fields set in f over o.
func (f *File) Apply(o *Options) {
	if f == nil {
		return
	}
	if f.Source != "" {
		o.Source = f.resolve(f.Source)
	}
	if f.InputFile != "" {
		o.InputFile = f.InputFile
	}
	if f.DefaultLanguage != "" {
		o.DefaultLanguage = f.DefaultLanguage
	}
	if f.FunctionName != "" {
		o.FunctionName = f.FunctionName
	}
	if f.Output != "" {
		o.Output = f.resolve(f.Output)
	}
	if len(f.Languages) > 0 {
		o.Languages = append([]string(nil), f.Languages...)
	}
	if f.Prefix != "" {
		o.Prefix = f.Prefix
	}
	if f.Transformise != nil {
		o.Transformise = *f.Transformise
	}
	if f.Include != "" {
		o.Include = f.Include
	}
	if len(f.Scan) > 0 {
		o.ScanDirs = nil
		for _, d := range f.Scan {
			o.ScanDirs = append(o.ScanDirs, f.resolve(d))
		}
	}
	if f.Jobs > 0 {
		o.Jobs = f.Jobs
	}
}
