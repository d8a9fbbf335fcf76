package doctree

import (
	"fmt"
	"sort"
	"strings"
)

// TextRun is one line of text with the layout signals the classifier scores.
// Runs are immutable once a layout source or OCR adapter has produced them.
type TextRun struct {
	Text     string  // Run text, already trimmed
	FontSize float64 // Size in points (synthetic for non-PDF sources)
	Bold     bool    // Font weight flag
	X        float64 // Left edge, points from the page's left side
	Y        float64 // Top edge, points from the page's top
	Width    float64 // Horizontal extent (0 if unknown)
	Page     int     // 1-based page number
}

// ImageHandle is a rendered page image handed to the OCR adapter.
type ImageHandle struct {
	Page   int    // 1-based page number
	Data   []byte // Encoded image bytes
	Format string // "png", "jpeg", ...
	DPI    int    // Render resolution; converts pixel boxes back to points
}

// Page is a single page of a Document as seen by a layout source.
type Page struct {
	Number int
	Width  float64
	Height float64
	Runs   []TextRun
	Image  *ImageHandle // Only set when the page has no extractable text
}

// HasText reports whether the layout source found any text runs on the page.
func (p Page) HasText() bool {
	return len(p.Runs) > 0
}

// Document is the layout-level view of one input file.
type Document struct {
	ID    string // Caller-visible identifier, normally the file name
	Pages []Page
}

// Runs returns every text run in reading order: page, then Y, then X.
func (d *Document) Runs() []TextRun {
	var runs []TextRun
	for _, p := range d.Pages {
		runs = append(runs, p.Runs...)
	}
	SortReadingOrder(runs)
	return runs
}

// PageCount returns the number of pages (at least 1 for a non-nil document).
func (d *Document) PageCount() int {
	if len(d.Pages) == 0 {
		return 1
	}
	return len(d.Pages)
}

// SortReadingOrder orders runs by page, vertical position, then horizontal
// position. The sort is stable so equal positions keep source order.
func SortReadingOrder(runs []TextRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i], runs[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// Level is a heading level. Smaller values rank higher.
type Level int

const (
	LevelTitle Level = iota
	LevelH1
	LevelH2
	LevelH3
	LevelH4
)

var levelNames = [...]string{"TITLE", "H1", "H2", "H3", "H4"}

func (l Level) String() string {
	if l < LevelTitle || l > LevelH4 {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	if l < LevelTitle || l > LevelH4 {
		return nil, fmt.Errorf("invalid heading level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, name := range levelNames {
		if name == s {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown heading level %q", string(b))
}

// Heading is a run (or several merged runs) classified as structure.
type Heading struct {
	Text       string
	Level      Level
	Page       int
	Confidence float64 // 0..1
	RunIndex   int     // Index of the first source run in the reading-order stream
	RunSpan    int     // Number of consecutive runs merged into this heading
}

// Covers reports whether the run at index i belongs to this heading.
func (h Heading) Covers(i int) bool {
	span := h.RunSpan
	if span < 1 {
		span = 1
	}
	return i >= h.RunIndex && i < h.RunIndex+span
}

// Outline is the leveled heading list of one document. The title heading
// is not part of Headings.
type Outline struct {
	Title    string
	Headings []Heading
}

// Section is a contiguous slice of a document owned by one heading, or by
// no heading for a preamble or a headless document.
type Section struct {
	DocumentID string
	Heading    *Heading // nil for headless sections
	Title      string   // Heading text, or the document title when headless
	Page       int
	Body       string
}

// Level returns the section's heading level. Headless sections sort below H4.
func (s Section) Level() Level {
	if s.Heading == nil {
		return LevelH4 + 1
	}
	return s.Heading.Level
}

// HeadingText returns the heading text or "" for headless sections.
func (s Section) HeadingText() string {
	if s.Heading == nil {
		return ""
	}
	return s.Heading.Text
}

// RankedSection is a selected section with its final rank.
type RankedSection struct {
	DocumentID     string
	SectionTitle   string
	PageNumber     int
	ImportanceRank int
	RefinedText    string
	Score          float64
}

// Query is the persona and job that drive relevance ranking.
type Query struct {
	Persona     string
	JobToBeDone string
}

// Text renders the query as a single embedding input. Blank halves are
// dropped; a fully blank query renders as "".
func (q Query) Text() string {
	persona := strings.TrimSpace(q.Persona)
	job := strings.TrimSpace(q.JobToBeDone)
	switch {
	case persona == "" && job == "":
		return ""
	case persona == "":
		return fmt.Sprintf("Task to be completed: %s", job)
	case job == "":
		return fmt.Sprintf("User profile: %s.", persona)
	}
	return fmt.Sprintf("User profile: %s. Task to be completed: %s", persona, job)
}

// IsEmpty reports whether both halves of the query are blank.
func (q Query) IsEmpty() bool {
	return q.Text() == ""
}
