package extract

import (
	"regexp"
	"strings"
)

// scriptMatcher finds marker calls with a literal first argument in
// JavaScript-like sources: single, double and backtick quotes.
type scriptMatcher struct {
	re *regexp.Regexp
}

type scriptMatch struct {
	text string
	line int
}

func newScriptMatcher(functionName string) *scriptMatcher {
	pattern := `(?:^|[^\w$])` + regexp.QuoteMeta(functionName) +
		`\s*\(\s*(?:'((?:[^'\\\n]|\\.)*)'|"((?:[^"\\\n]|\\.)*)"|` + "`((?:[^`\\\\]|\\\\.)*)`" + `)`
	return &scriptMatcher{re: regexp.MustCompile(pattern)}
}

func (m *scriptMatcher) find(src string) []scriptMatch {
	var out []scriptMatch
	for _, idx := range m.re.FindAllStringSubmatchIndex(src, -1) {
		line := strings.Count(src[:idx[0]], "\n") + 1
		// A leading newline consumed by (?:^|[^\w$]) belongs to the previous line.
		if src[idx[0]] == '\n' {
			line++
		}

		switch {
		case idx[2] >= 0:
			out = append(out, scriptMatch{text: unescape(src[idx[2]:idx[3]]), line: line})
		case idx[4] >= 0:
			out = append(out, scriptMatch{text: unescape(src[idx[4]:idx[5]]), line: line})
		case idx[6] >= 0:
			raw := src[idx[6]:idx[7]]
			if strings.Contains(raw, "${") {
				continue // interpolated, not a static key
			}
			out = append(out, scriptMatch{text: unescape(raw), line: line})
		}
	}
	return out
}

// unescape resolves the common backslash escapes of a quoted literal.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
