// Package segment splits a document's run stream into sections owned by the
// outline's headings.
package segment

import (
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// open is a section still collecting runs.
type open struct {
	section *doctree.Section
	lines   []string
	level   doctree.Level
}

// Segment assigns runs to sections. A heading of level L closes every open
// section of level L or deeper and opens a new one; body runs are appended
// to every open section, so a parent's body spans its subsections. Runs
// before the first heading form a headless preamble. Without headings the
// whole document is one headless section on page 1.
//
// runs must be the reading-order stream the outline was built from, so that
// Heading.RunIndex points into it.
func Segment(docID string, runs []doctree.TextRun, outline doctree.Outline) []doctree.Section {
	if len(outline.Headings) == 0 {
		return whole(docID, runs, outline.Title)
	}

	// Map each run index to the heading that starts there.
	starts := make(map[int]int, len(outline.Headings))
	for i, h := range outline.Headings {
		starts[h.RunIndex] = i
	}

	var (
		order    []*open
		stack    []*open
		preamble *open
	)
	closeFrom := func(level doctree.Level) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
	}

	for i := 0; i < len(runs); i++ {
		r := runs[i]
		if hi, ok := starts[i]; ok {
			h := outline.Headings[hi]
			span := max(h.RunSpan, 1)

			if preamble != nil {
				closeFrom(preamble.level)
				preamble = nil
			}
			closeFrom(h.Level)

			text := h.Text
			for _, o := range stack {
				o.lines = append(o.lines, text)
			}

			heading := h
			o := &open{
				section: &doctree.Section{
					DocumentID: docID,
					Heading:    &heading,
					Title:      h.Text,
					Page:       h.Page,
				},
				level: h.Level,
			}
			stack = append(stack, o)
			order = append(order, o)
			i += span - 1
			continue
		}

		if len(stack) == 0 {
			preamble = &open{
				section: &doctree.Section{
					DocumentID: docID,
					Title:      outline.Title,
					Page:       r.Page,
				},
				level: doctree.LevelTitle,
			}
			stack = append(stack, preamble)
			order = append(order, preamble)
		}
		for _, o := range stack {
			o.lines = append(o.lines, r.Text)
		}
	}

	if len(order) == 0 {
		return whole(docID, runs, outline.Title)
	}
	sections := make([]doctree.Section, 0, len(order))
	for _, o := range order {
		s := *o.section
		s.Body = strings.Join(o.lines, "\n")
		sections = append(sections, s)
	}
	return sections
}

// whole returns the document as a single headless section.
func whole(docID string, runs []doctree.TextRun, title string) []doctree.Section {
	lines := make([]string, 0, len(runs))
	for _, r := range runs {
		lines = append(lines, r.Text)
	}
	return []doctree.Section{{
		DocumentID: docID,
		Title:      title,
		Page:       1,
		Body:       strings.Join(lines, "\n"),
	}}
}
