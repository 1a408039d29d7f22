package identity

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	phoneE164NG  = regexp.MustCompile(`^\+234[1-9]\d{9}$`)
	phoneLocalNG = regexp.MustCompile(`^0[1-9]\d{9}$`)
)

// NormalizePhone canonicalizes a Nigerian phone number to E.164.
//
// Accepted inputs, whitespace ignored:
//   - "+2348031234567" (already E.164)
//   - "08031234567"    (local trunk prefix)
//
// Anything else fails with ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	switch {
	case phoneE164NG.MatchString(compact):
		return compact, nil
	case phoneLocalNG.MatchString(compact):
		return "+234" + compact[1:], nil
	default:
		return "", ErrInvalidPhone
	}
}
