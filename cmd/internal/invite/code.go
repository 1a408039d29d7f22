package invite

import (
	"crypto/rand"
	"io"
	"strings"
)

const (
	// CodeAlphabet omits I, O, 0 and 1.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 4
)

// Generator draws invite codes from a byte source. The alphabet has 32 symbols, which
// divides 256, so b%32 is uniform without rejection sampling.
type Generator struct {
	r io.Reader
}

// NewGenerator returns a Generator reading from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{r: r}
}

// Generate returns a fresh candidate code. Uniqueness is the caller's concern.
func (g *Generator) Generate() (string, error) {
	var b [CodeLength]byte
	if _, err := io.ReadFull(g.r, b[:]); err != nil {
		return "", err
	}
	out := make([]byte, CodeLength)
	for i, v := range b {
		out[i] = CodeAlphabet[int(v)%len(CodeAlphabet)]
	}
	return string(out), nil
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCodeFormat reports whether code is exactly 4 characters of [A-Z0-9]. A code
// outside CodeAlphabet still passes and answers not-found on lookup.
func ValidCodeFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
