package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives the URL-safe name slug used as a guest's external identity key.
//
// Accents are folded (NFD, combining marks dropped), letters are lower-cased, and every run
// of characters outside [a-z0-9] becomes one hyphen. Leading and trailing hyphens are
// trimmed. The mapping is deterministic: "Zoë  O'Neil" and "zoe o neil" share a slug.
func Slugify(fullName string) string {
	folded, _, err := transform.String(foldMarks(), fullName)
	if err != nil {
		folded = fullName
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// foldMarks returns a fresh transformer; transform.Chain values are stateful and not
// safe for concurrent reuse.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
