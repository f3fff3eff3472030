package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode"
)

const linkCodeBytes = 16

// NewLinkCode returns 32 upper-case hex characters.
func NewLinkCode() (string, error) {
	b := make([]byte, linkCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeLinkCode strips what chat clients tend to wrap a pasted code in
// (quotes, brackets, punctuation) and checks the length.
func NormalizeLinkCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”«»<>.,;:()[]{}\\")
	s = strings.ToUpper(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != linkCodeBytes*2 {
		return "", false
	}
	return code, true
}
