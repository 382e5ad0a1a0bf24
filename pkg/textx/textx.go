// Package textx provides the small text-normalization helpers shared by the
// classifier and response cache, so keyword matching and fingerprinting
// both see the same canonical form of a chat message.
package textx

import (
	"strings"
	"unicode"
)

// NormalizeMessage strips control characters (newline and tab count as
// whitespace, not as control characters), collapses runs of whitespace to
// a single space, and trims the result. Classifier keyword matching and
// response-cache fingerprinting both call this first so that cosmetic
// differences — stray control bytes, doubled spaces, trailing tabs — never
// produce a different handler kind or a cache miss for what is otherwise
// the same message.
func NormalizeMessage(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t' || unicode.IsSpace(r):
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		case r < 32 || r == 127:
			// drop other control characters entirely
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
