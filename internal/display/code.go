package display

import (
	"errors"
	"math/rand"
	"strings"
)

// DefaultCharset excludes visually ambiguous characters (I, O, 0, 1) so
// codes survive being read off a screen and typed on a phone.
const DefaultCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of display codes and session ids.
const CodeLength = 6

// maxAttempts bounds collision retries before giving up on a namespace.
const maxAttempts = 1000

// ErrNamespaceExhausted is returned when the generator cannot find a free
// code after maxAttempts tries.
var ErrNamespaceExhausted = errors.New("code namespace exhausted")

// Generator produces short human-typable codes by rejection sampling
// against a caller-supplied uniqueness check. One generator serves both the
// display-code and session-id namespaces; uniqueness is per namespace.
type Generator struct {
	charset string
}

// NewGenerator creates a code generator. An empty charset falls back to
// DefaultCharset.
func NewGenerator(charset string) *Generator {
	if charset == "" {
		charset = DefaultCharset
	}
	return &Generator{charset: charset}
}

// Generate returns a fresh code for which taken reports false. The caller
// must hold its namespace lock across Generate and the subsequent insert so
// the code is unique at the instant of assignment.
func (g *Generator) Generate(taken func(string) bool) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var b strings.Builder
		b.Grow(CodeLength)
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(g.charset[rand.Intn(len(g.charset))])
		}
		code := b.String()
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrNamespaceExhausted
}
