// Package l10n is the small localized-message lookup the error
// taxonomy surfaces to listeners. It carries one locale (en) rather
// than a full i18n framework, since UI/localization beyond message
// text is out of scope for this module.
package l10n

// Locale "en" is the only table defined; Lookup falls back to key
// itself when no translation exists, so an unregistered ErrKind
// string still round-trips instead of surfacing an empty message.
var en = map[string]string{
	"unknown":         "An unknown error occurred.",
	"invalid url":     "The constructed request URL was invalid.",
	"socket error":    "A network error occurred while talking to the gallery host.",
	"parse error":     "The page could not be parsed.",
	"509":             "The gallery host returned a rate-limit page (509).",
	"write failed":    "The downloaded page could not be written to storage.",
	"ptoken error":    "No page token was available for this page.",
	"decoding failed": "The downloaded bytes could not be decoded as an image.",
	"reading failed":  "The stored page could not be read back.",
	"not found":       "The requested page has not been downloaded yet.",
	"out of range":    "The requested page index is outside the gallery's page count.",
}

// Lookup returns the localized message for key in locale. Locale is
// accepted for forward compatibility with additional languages; only
// "en" is registered today, and any other locale falls back to it.
func Lookup(locale, key string) string {
	table := en
	if msg, ok := table[key]; ok {
		return msg
	}
	return key
}
