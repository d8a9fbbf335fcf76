package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// scriptLanguages maps a dominant non-Latin script to its most likely language.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	tag   language.Tag
}{
	{unicode.Hangul, language.Korean},
	{unicode.Cyrillic, language.Russian},
	{unicode.Arabic, language.Arabic},
	{unicode.Devanagari, language.Hindi},
	{unicode.Greek, language.Greek},
	{unicode.Thai, language.Thai},
	{unicode.Hebrew, language.Hebrew},
}

var latinStopwords = map[language.Tag][]string{
	language.English: {"the", "and", "of", "to", "is", "in", "for"},
	language.French:  {"le", "la", "les", "des", "et", "est", "une", "du"},
	language.German:  {"der", "die", "das", "und", "ist", "nicht", "mit", "den"},
	language.Spanish: {"el", "los", "las", "y", "es", "del", "por", "una"},
}

// latinOrder fixes the iteration order so ties resolve the same way each run.
var latinOrder = []language.Tag{language.English, language.French, language.German, language.Spanish}

// DetectLanguage guesses the language of recognized text. Non-Latin text is
// classified by its dominant script; Latin text by stopword counts.
// Text without letters yields language.Und.
func DetectLanguage(text string) language.Tag {
	var latin, han, kana, letters int
	counts := make([]int, len(scriptLanguages))
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Latin, r):
			latin++
		default:
			for i, s := range scriptLanguages {
				if unicode.Is(s.table, r) {
					counts[i]++
					break
				}
			}
		}
	}
	if letters == 0 {
		return language.Und
	}

	best, bestCount := language.Und, latin
	if kana > 0 && kana+han > bestCount {
		best, bestCount = language.Japanese, kana+han
	} else if han > bestCount {
		best, bestCount = language.SimplifiedChinese, han
	}
	for i, s := range scriptLanguages {
		if counts[i] > bestCount {
			best, bestCount = s.tag, counts[i]
		}
	}
	if best != language.Und {
		return best
	}
	return detectLatin(text)
}

func detectLatin(text string) language.Tag {
	words := map[string]int{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w]++
	}

	best, bestScore := language.English, 0
	for _, tag := range latinOrder {
		score := 0
		for _, sw := range latinStopwords[tag] {
			score += words[sw]
		}
		if score > bestScore {
			best, bestScore = tag, score
		}
	}
	return best
}

// TesseractCode maps a language tag to a Tesseract traineddata name.
// Unknown languages map to "eng".
func TesseractCode(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "ja":
		return "jpn"
	case "zh":
		return "chi_sim"
	case "ko":
		return "kor"
	case "ru":
		return "rus"
	case "ar":
		return "ara"
	case "hi":
		return "hin"
	case "el":
		return "ell"
	case "th":
		return "tha"
	case "he":
		return "heb"
	case "fr":
		return "fra"
	case "de":
		return "deu"
	case "es":
		return "spa"
	}
	return "eng"
}
