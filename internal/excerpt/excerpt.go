// Package excerpt cuts section text down to bounded, readable snippets.
package excerpt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Collapse replaces every run of whitespace (including newlines) with a
// single space and trims the ends.
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Prefix returns at most maxChars runes of text, cut back to the last word
// boundary when the cut would split a word.
func Prefix(text string, maxChars int) string {
	text = Collapse(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return cutAtWord(text, maxChars)
}

// Trim returns whole sentences from the start of text while they fit in
// maxChars runes. If even the first sentence is too long it falls back to
// a word-boundary cut.
func Trim(text string, maxChars int) string {
	text = Collapse(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	var current strings.Builder
	n := 0
	for _, sent := range splitSentences(text) {
		sentLen := utf8.RuneCountInString(sent)
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+sentLen > maxChars {
			break
		}
		if sep > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		n += sep + sentLen
	}
	if n > 0 {
		return current.String()
	}
	return cutAtWord(text, maxChars)
}

// Sentences splits text into sentences on terminal punctuation followed by
// a space.
func Sentences(text string) []string {
	return splitSentences(Collapse(text))
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func cutAtWord(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := runes[:maxChars]
	// Only back off when the cut lands inside a word.
	if !unicode.IsSpace(runes[maxChars]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}
