package outline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minHeadingRunes = 2
	maxHeadingRunes = 200
)

const months = `(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`

// nonHeadingPatterns match runs that are never structure no matter how they
// are typeset.
var nonHeadingPatterns = []*regexp.Regexp{
	// Dates.
	regexp.MustCompile(`^\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}$`),
	regexp.MustCompile(`(?i)^` + months + `\s+\d{1,2}(st|nd|rd|th)?,?\s+\d{4}$`),
	regexp.MustCompile(`(?i)^\d{1,2}(st|nd|rd|th)?\s+` + months + `,?\s+\d{4}$`),
	regexp.MustCompile(`(?i)^` + months + `\s+\d{4}$`),
	// Contact details.
	regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)+$`),
	regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`),
	// Numbers, amounts and page furniture.
	regexp.MustCompile(`^[-+$€£¥(]?[\d\s.,%:/)+-]+$`),
	regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`),
}

// rejectRun reports whether text is filtered out before scoring.
func rejectRun(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < minHeadingRunes || n > maxHeadingRunes {
		return true
	}
	for _, re := range nonHeadingPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
