// Package shell quotes tokens for POSIX sh.
//
// Quoted output is stable byte for byte: safe words pass through unchanged,
// everything else is wrapped in single quotes with embedded single quotes
// written as '"'"'. The remote command synthesizer relies on this exact form.
package shell

import (
	"errors"
	"strings"
)

// ErrNulByte is returned when a token contains a NUL byte. No POSIX shell
// word can carry one.
var ErrNulByte = errors.New("shell: token contains NUL byte")

// Quote returns s quoted so that a POSIX shell parses it back to exactly s.
func Quote(s string) (string, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return "", ErrNulByte
	}
	if s == "" {
		return "''", nil
	}
	if isSafeWord(s) {
		return s, nil
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'", nil
}

// QuoteAll quotes every token, dropping the ones that cannot be quoted.
func QuoteAll(tokens []string) []string {
	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		q, err := Quote(token)
		if err != nil {
			continue
		}
		quoted = append(quoted, q)
	}
	return quoted
}

// Join quotes tokens with QuoteAll and joins them with single spaces.
func Join(tokens []string) string {
	return strings.Join(QuoteAll(tokens), " ")
}

// DoubleQuote wraps s in double quotes, escaping the characters that keep
// their special meaning inside them.
func DoubleQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	writeDoubleQuoted(&b, s)
	b.WriteByte('"')
	return b.String()
}

// EscapeDoubleQuoted escapes s for insertion between double quotes that the
// caller writes itself.
func EscapeDoubleQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	writeDoubleQuoted(&b, s)
	return b.String()
}

func writeDoubleQuoted(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// IsName reports whether s is a POSIX variable name, the only thing sh
// accepts on the left of a NAME=value prefix.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func isSafeWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isSafeByte(s[i]) {
			return false
		}
	}
	return true
}

func isSafeByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '+', '-', '.', '/', ':', '@', ']', '_':
		return true
	}
	return false
}
