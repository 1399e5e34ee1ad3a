// Package i18n translates keysync's own user-facing messages.
//
// Catalogues are gettext PO files embedded from locales/<lang>/LC_MESSAGES
// and read through gotext. Messages without a translation pass through
// unchanged, so calling T or N before Init is safe.
//
//	i18n.Init("")  // language from LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	logInfo(i18n.N("Found %d string", "Found %d strings", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

// domain is the gettext domain of keysync's catalogue.
const domain = "keysync"

// localeEnv lists the variables consulted for the UI language, highest
// priority first, as GNU gettext does.
var localeEnv = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

var (
	po   *gotext.Locale
	lang string
)

// Init loads the catalogue for language code l, detecting it from the
// environment when l is empty.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l

	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language passed to or detected by Init.
func Language() string {
	if lang == "" {
		return "en"
	}
	return lang
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

func detectLanguage() string {
	for _, env := range localeEnv {
		if l := localeName(os.Getenv(env)); l != "" {
			return l
		}
	}
	return "en"
}

// localeName reduces a locale variable value to a language name:
// "ru_RU.UTF-8:en_US" → "ru_RU". "C" and "POSIX" mean no translation.
func localeName(val string) string {
	val, _, _ = strings.Cut(val, ":")
	val, _, _ = strings.Cut(val, ".")
	if val == "C" || val == "POSIX" {
		return ""
	}
	return val
}
