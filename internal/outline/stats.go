package outline

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/dgallion1/docsift/internal/doctree"
)

const (
	maxBands      = 3
	minShortLine  = 12
	maxShortLine  = 60
	bandTolerance = 0.25
)

// SizeBucket is one bar of the font-size histogram.
type SizeBucket struct {
	Size  float64 // Rounded to 0.5pt
	Chars int     // Characters set in this size
}

// DocumentStats summarises a document's typography. It is computed once per
// document and shared read-only by every scoring rule.
type DocumentStats struct {
	Histogram  []SizeBucket // Ascending by size
	BodySize   float64      // Character-weighted median size
	Bands      []float64    // Up to three heading sizes above BodySize, largest first
	PageCount  int
	PageWidth  float64 // Widest page
	LeftMargin float64 // Most common left edge
	ShortLine  int     // Runs at or below this many runes count as short
}

// roundSize snaps a font size to the nearest half point.
func roundSize(s float64) float64 {
	return math.Round(s*2) / 2
}

// ComputeStats derives DocumentStats from a reading-order run stream.
func ComputeStats(runs []doctree.TextRun, pages []doctree.Page) DocumentStats {
	st := DocumentStats{PageCount: len(pages)}
	if st.PageCount == 0 {
		st.PageCount = 1
	}
	for _, p := range pages {
		st.PageWidth = math.Max(st.PageWidth, p.Width)
	}

	chars := map[float64]int{}
	margins := map[float64]int{}
	var lengths []int
	for _, r := range runs {
		n := utf8.RuneCountInString(r.Text)
		if n < 2 {
			continue
		}
		chars[roundSize(r.FontSize)] += n
		margins[math.Round(r.X)]++
		lengths = append(lengths, n)
	}

	for size, n := range chars {
		st.Histogram = append(st.Histogram, SizeBucket{Size: size, Chars: n})
	}
	sort.Slice(st.Histogram, func(i, j int) bool { return st.Histogram[i].Size < st.Histogram[j].Size })

	st.BodySize = weightedMedian(st.Histogram)
	for i := len(st.Histogram) - 1; i >= 0 && len(st.Bands) < maxBands; i-- {
		if st.Histogram[i].Size > st.BodySize {
			st.Bands = append(st.Bands, st.Histogram[i].Size)
		}
	}

	bestCount := 0
	for x, n := range margins {
		if n > bestCount || (n == bestCount && x < st.LeftMargin) {
			st.LeftMargin, bestCount = x, n
		}
	}

	st.ShortLine = minShortLine
	if len(lengths) > 0 {
		sort.Ints(lengths)
		var median float64
		if mid := len(lengths) / 2; len(lengths)%2 == 1 {
			median = float64(lengths[mid])
		} else {
			median = float64(lengths[mid-1]+lengths[mid]) / 2
		}
		st.ShortLine = int(math.Round(0.6 * median))
		st.ShortLine = max(minShortLine, min(maxShortLine, st.ShortLine))
	}
	return st
}

// weightedMedian returns the size at which half the characters are set.
func weightedMedian(hist []SizeBucket) float64 {
	total := 0
	for _, b := range hist {
		total += b.Chars
	}
	if total == 0 {
		return 0
	}
	half := (total + 1) / 2
	seen := 0
	for _, b := range hist {
		seen += b.Chars
		if seen >= half {
			return b.Size
		}
	}
	return hist[len(hist)-1].Size
}

// Band returns the 0-based heading band for size, or -1.
func (st DocumentStats) Band(size float64) int {
	for i, b := range st.Bands {
		if math.Abs(size-b) <= bandTolerance {
			return i
		}
	}
	return -1
}

// UsableWidth is the page width inside the left and right margins.
func (st DocumentStats) UsableWidth() float64 {
	w := st.PageWidth - 2*st.LeftMargin
	if w <= 0 {
		return st.PageWidth
	}
	return w
}
