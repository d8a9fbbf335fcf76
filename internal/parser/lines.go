package parser

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// glyph is one positioned text fragment as a PDF content stream draws it.
// Y is the baseline in PDF user space (origin bottom-left).
type glyph struct {
	Text string
	Font string
	Size float64
	X    float64
	Y    float64
	W    float64
}

const (
	// lineTolerance is the baseline distance, as a fraction of the font
	// size, within which two glyphs share a line.
	lineTolerance = 0.4
	// spaceGap is the horizontal gap, as a fraction of the font size, that
	// implies a missing space between glyphs.
	spaceGap = 0.15
	// columnGap splits a line into separate runs.
	columnGap = 3.0
)

var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demibold"}

// isBoldFont reports whether a font name implies a bold face.
func isBoldFont(name string) bool {
	name = strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// groupRuns assembles glyphs into text runs for one page. Glyphs sharing a
// baseline form a line; a line is split where the font size or weight
// changes or where a wide gap separates columns. Coordinates on the
// returned runs are top-down.
func groupRuns(glyphs []glyph, pageNum int, height float64) []doctree.TextRun {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.Text == "" || g.Size <= 0 {
			continue
		}
		sorted = append(sorted, g)
	}
	// Top of page first, then left to right.
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > lineTolerance*math.Max(sorted[i].Size, sorted[j].Size) {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]glyph
	for _, g := range sorted {
		if n := len(lines); n > 0 {
			last := lines[n-1]
			ref := last[0]
			if math.Abs(ref.Y-g.Y) <= lineTolerance*math.Max(ref.Size, g.Size) {
				lines[n-1] = append(last, g)
				continue
			}
		}
		lines = append(lines, []glyph{g})
	}

	var runs []doctree.TextRun
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		runs = append(runs, splitLine(line, pageNum, height)...)
	}
	return runs
}

func splitLine(line []glyph, pageNum int, height float64) []doctree.TextRun {
	var runs []doctree.TextRun

	var (
		buf   strings.Builder
		start glyph
		end   float64
		bold  bool
		open  bool
	)
	flush := func() {
		if !open {
			return
		}
		text := strings.Join(strings.Fields(buf.String()), " ")
		if text != "" {
			runs = append(runs, doctree.TextRun{
				Text:     text,
				FontSize: roundSize(start.Size),
				Bold:     bold,
				X:        start.X,
				Y:        math.Max(0, height-(start.Y+start.Size)),
				Width:    end - start.X,
				Page:     pageNum,
			})
		}
		buf.Reset()
		open = false
	}

	for _, g := range line {
		gBold := isBoldFont(g.Font)
		if open {
			gap := g.X - end
			switch {
			case math.Abs(g.Size-start.Size) > 0.5 || gBold != bold:
				flush()
			case gap > columnGap*g.Size:
				flush()
			case gap > spaceGap*g.Size:
				buf.WriteByte(' ')
			}
		}
		if !open {
			start, bold, open = g, gBold, true
			end = g.X
		}
		buf.WriteString(g.Text)
		end = math.Max(end, g.X+g.W)
	}
	flush()
	return runs
}

// roundSize rounds to two decimals so sizes from a content stream compare
// cleanly.
func roundSize(s float64) float64 {
	return math.Round(s*100) / 100
}
