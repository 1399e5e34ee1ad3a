// Package langmeta resolves display metadata (native name and emoji flag)
// for language codes shown in the CLI.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Code string
	Name string
	Flag string
}

// canonicalize returns the BCP 47 form of lang ("pt_br" → "pt-BR").
// Codes that do not parse are returned trimmed but otherwise unchanged.
func canonicalize(lang string) string {
	lang = strings.TrimSpace(lang)
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}

// Resolve returns best-effort metadata for lang. The name is the
// language's own name for itself; unknown codes fall back to the code.
func Resolve(lang string) Meta {
	m := Meta{Code: canonicalize(lang), Name: lang}
	tag, err := language.Parse(m.Code)
	if err != nil {
		return m
	}
	if name := display.Self.Name(tag); name != "" {
		m.Name = name
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = FlagFromRegion(region.String())
	}
	return m
}

// FlagFromRegion converts a two-letter region code into its regional
// indicator pair. Anything else yields "".
func FlagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
