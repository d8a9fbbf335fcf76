package embed

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC, trims, and drops control characters other
// than newlines and tabs.
func NormalizeText(text string) string {
	normed := strings.TrimSpace(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}

// CacheKey identifies a (model, text) pair. Text is normalised first so
// visually identical inputs share an entry.
func CacheKey(model, text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, model)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, NormalizeText(text))
	return hex.EncodeToString(h.Sum(nil))
}
