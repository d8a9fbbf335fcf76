package parser

import (
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Synthetic page geometry for formats without a physical layout (US Letter).
const (
	pageWidth   = 612.0
	pageHeight  = 792.0
	pageMargin  = 72.0
	bodySize    = 11.0
	lineSpacing = 1.4
)

// headingStyle maps a structural heading level to synthetic typography so
// the outline classifier sees the same signals it would in a PDF.
func headingStyle(level int) (size float64, bold bool) {
	switch {
	case level <= 0:
		return bodySize, false
	case level == 1:
		return 24, true
	case level == 2:
		return 18, true
	case level == 3:
		return 15, true
	default:
		return 12, true
	}
}

// layoutWriter lays runs out top to bottom on synthetic pages, starting a
// new page when the current one is full.
type layoutWriter struct {
	pages []doctree.Page
	y     float64
}

func newLayoutWriter() *layoutWriter {
	w := &layoutWriter{}
	w.newPage()
	return w
}

func (w *layoutWriter) newPage() {
	w.pages = append(w.pages, doctree.Page{
		Number: len(w.pages) + 1,
		Width:  pageWidth,
		Height: pageHeight,
	})
	w.y = pageMargin
}

func (w *layoutWriter) heading(level int, text string) {
	size, bold := headingStyle(level)
	w.add(text, size, bold)
}

func (w *layoutWriter) body(text string) {
	w.add(text, bodySize, false)
}

// add writes one run per non-blank line of text.
func (w *layoutWriter) add(text string, size float64, bold bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if w.y+size > pageHeight-pageMargin {
			w.newPage()
		}
		width := float64(len([]rune(line))) * size * 0.5
		if maxWidth := pageWidth - 2*pageMargin; width > maxWidth {
			width = maxWidth
		}
		page := &w.pages[len(w.pages)-1]
		page.Runs = append(page.Runs, doctree.TextRun{
			Text:     line,
			FontSize: size,
			Bold:     bold,
			X:        pageMargin,
			Y:        w.y,
			Width:    width,
			Page:     page.Number,
		})
		w.y += size * lineSpacing
	}
}

// document returns the laid-out pages. An input without text still yields a
// single empty page.
func (w *layoutWriter) document(id string) *doctree.Document {
	return &doctree.Document{ID: id, Pages: w.pages}
}
