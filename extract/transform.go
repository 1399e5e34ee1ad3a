package extract

import (
	"strings"
	"unicode"

	"github.com/minios-linux/keysync/tree"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Transformise normalises a key into a stable identifier, segment by
// segment: diacritics are stripped, letters lower-cased and every run of
// other characters collapsed to a single underscore.
//
//	"Nav.Página Inicial"  →  "nav.pagina_inicial"
//
// A segment that would become empty keeps its original text.
func Transformise(key string) string {
	segs := tree.SplitPath(key)
	for i, seg := range segs {
		segs[i] = slugSegment(seg)
	}
	return tree.JoinPath(segs...)
}

func slugSegment(seg string) string {
	// Transformers and casers carry state; build them per call.
	strip := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(strip, seg)
	if err != nil {
		s = seg
	}
	s = cases.Lower(language.Und).String(s)

	var b strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	if b.Len() == 0 {
		return seg
	}
	return b.String()
}
