package outline

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Rule is one named scoring signal. Rules are pure: the same run and stats
// always give the same contribution.
type Rule struct {
	Name  string
	Score func(doctree.TextRun, DocumentStats) float64
}

// DefaultRules returns the scoring rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{"font-size", fontSizeRule},
		{"bold", boldRule},
		{"line-length", lineLengthRule},
		{"position", positionRule},
		{"pattern", patternRule},
		{"prose", proseRule},
	}
}

// Score sums every rule's contribution for r.
func Score(rules []Rule, r doctree.TextRun, st DocumentStats) float64 {
	var total float64
	for _, rule := range rules {
		total += rule.Score(r, st)
	}
	return total
}

func fontSizeRule(r doctree.TextRun, st DocumentStats) float64 {
	if st.BodySize <= 0 {
		return 0
	}
	size := roundSize(r.FontSize)
	if size <= st.BodySize {
		return 0
	}
	ratio := (size - st.BodySize) / st.BodySize
	if st.Band(size) >= 0 {
		return 0.2 + math.Min(ratio, 0.4)
	}
	return math.Min(ratio, 0.2)
}

func boldRule(r doctree.TextRun, _ DocumentStats) float64 {
	if r.Bold {
		return 0.2
	}
	return 0
}

func lineLengthRule(r doctree.TextRun, st DocumentStats) float64 {
	var score float64
	if utf8.RuneCountInString(r.Text) <= st.ShortLine {
		score += 0.15
	}
	if r.Width > 0 && r.Width > 0.85*st.UsableWidth() {
		score -= 0.15
	}
	return score
}

func positionRule(r doctree.TextRun, st DocumentStats) float64 {
	if math.Abs(r.X-st.LeftMargin) <= 2 {
		return 0.05
	}
	if r.Width > 0 && st.PageWidth > 0 {
		center := r.X + r.Width/2
		if math.Abs(center-st.PageWidth/2) <= 0.05*st.PageWidth {
			return 0.05
		}
	}
	return 0
}

var (
	numberedRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)
	labeledRe  = regexp.MustCompile(`(?i)^(chapter|section|part|appendix)\s+[\dA-Z]+\b`)
)

// isNumbered reports whether text opens with a section number or label.
func isNumbered(text string) bool {
	return numberedRe.MatchString(text) || labeledRe.MatchString(text)
}

func patternRule(r doctree.TextRun, _ DocumentStats) float64 {
	text := r.Text
	var score float64
	if isNumbered(text) {
		score += 0.2
	}
	if isAllCaps(text) {
		score += 0.15
	}
	if isTitleCase(text) {
		score += 0.1
	}
	if strings.HasSuffix(text, ":") {
		score += 0.1
	}
	return math.Min(score, 0.35)
}

func isAllCaps(text string) bool {
	letters := 0
	for _, c := range text {
		if unicode.IsLower(c) {
			return false
		}
		if unicode.IsUpper(c) {
			letters++
		}
	}
	return letters >= 2
}

var minorWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "nor": true,
	"of": true, "in": true, "on": true, "for": true, "to": true, "with": true,
	"at": true, "by": true, "from": true, "vs": true, "via": true,
}

// isTitleCase reports whether every word with a letter starts upper case,
// minor words aside, and the text carries no terminal punctuation.
func isTitleCase(text string) bool {
	last, _ := utf8.DecodeLastRuneInString(text)
	if text == "" || strings.ContainsRune(".!?;,", last) {
		return false
	}
	words := 0
	for i, w := range strings.Fields(text) {
		first, ok := firstLetter(w)
		if !ok {
			continue
		}
		words++
		if unicode.IsUpper(first) {
			continue
		}
		if i > 0 && minorWords[strings.ToLower(strings.Trim(w, "()[]\"'"))] {
			continue
		}
		return false
	}
	return words > 0
}

func firstLetter(s string) (rune, bool) {
	for _, c := range s {
		if unicode.IsLetter(c) {
			return c, true
		}
	}
	return 0, false
}

var (
	leadingFragments  = []string{"and", "or", "but", "nor", "so", "yet", "because", "which"}
	trailingFragments = []string{"and", "or", "but", "the", "of", "to", "with", "a", "an", "in", "for", "that"}
)

func proseRule(r doctree.TextRun, _ DocumentStats) float64 {
	text := r.Text
	var penalty float64
	if strings.HasSuffix(text, ".") && !isNumbered(text) && utf8.RuneCountInString(text) > 40 {
		penalty += 0.3
	}
	if first, ok := firstLetter(text); ok && unicode.IsLower(first) {
		penalty += 0.2
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 0 {
		firstWord := strings.Trim(words[0], ",.;:")
		lastWord := strings.Trim(words[len(words)-1], ",.;:")
		if slices.Contains(leadingFragments, firstWord) || (len(words) > 1 && slices.Contains(trailingFragments, lastWord)) {
			penalty += 0.2
		}
	}
	return -math.Min(penalty, 0.5)
}
