// Package outline infers a leveled heading hierarchy from layout signals.
//
// Each run is scored by an ordered list of named rules against statistics
// of its own document. Runs scoring above a cutoff derived from the score
// distribution (Otsu's method) become heading candidates; their font size
// relative to the document's heading bands decides the level.
package outline

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/ocr"
)

// UntitledTitle is used when a document yields no text at all.
const UntitledTitle = "Untitled"

// Config tunes the classifier.
type Config struct {
	MinOCRConfidence float64 // OCR runs must exceed this (0..1)
	MinCutoff        float64 // Lower clamp for the score cutoff
	MaxCutoff        float64 // Upper clamp for the score cutoff
	OCRConfidenceCap float64 // Ceiling for OCR-sourced heading confidence
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MinOCRConfidence: 0.30,
		MinCutoff:        0.45,
		MaxCutoff:        0.75,
		OCRConfidenceCap: 0.8,
	}
}

// Result is the classifier's view of one document.
type Result struct {
	Outline   doctree.Outline
	Runs      []doctree.TextRun // Reading-order stream, OCR runs included
	Stats     DocumentStats
	Languages map[int]string // Page number to BCP 47 tag, OCR pages only
}

// Classifier builds outlines. It is safe for concurrent use if its
// Recognizer is.
type Classifier struct {
	cfg   Config
	rules []Rule
	ocr   ocr.Recognizer
	log   *slog.Logger
}

// New creates a Classifier. A nil recognizer disables OCR.
func New(cfg Config, rec ocr.Recognizer, log *slog.Logger) *Classifier {
	if rec == nil {
		rec = ocr.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxCutoff < cfg.MinCutoff {
		cfg.MaxCutoff = cfg.MinCutoff
	}
	return &Classifier{cfg: cfg, rules: DefaultRules(), ocr: rec, log: log}
}

// streamRun is a run plus where it came from.
type streamRun struct {
	doctree.TextRun
	ocrConf float64 // 0 for runs from the text layer
}

// candidate is a scored heading before levels and titles are settled.
type candidate struct {
	heading doctree.Heading
	score   float64
	ocrConf float64
}

// Classify builds the outline for doc. Missing signals degrade the result
// but never fail it: a document with no usable text gets an empty heading
// list and a fallback title.
func (c *Classifier) Classify(ctx context.Context, doc *doctree.Document) *Result {
	log := c.log.With("doc_id", doc.ID)
	res := &Result{Languages: map[int]string{}}

	stream := c.collect(ctx, doc, log, res.Languages)
	res.Runs = make([]doctree.TextRun, len(stream))
	for i, r := range stream {
		res.Runs[i] = r.TextRun
	}
	res.Stats = ComputeStats(res.Runs, doc.Pages)

	scores := make([]float64, len(stream))
	eligible := make([]bool, len(stream))
	var pool []float64
	for i, r := range stream {
		if rejectRun(r.Text) {
			continue
		}
		eligible[i] = true
		scores[i] = Score(c.rules, r.TextRun, res.Stats)
		pool = append(pool, scores[i])
	}
	cutoff := otsuCutoff(pool, c.cfg.MinCutoff, c.cfg.MaxCutoff)

	cands := c.merge(stream, scores, eligible, cutoff, res.Stats)
	res.Outline = c.assemble(cands, res.Runs)

	log.Debug("outline classified",
		"runs", len(stream),
		"body_size", res.Stats.BodySize,
		"bands", res.Stats.Bands,
		"cutoff", cutoff,
		"headings", len(res.Outline.Headings),
	)
	return res
}

// collect gathers the reading-order stream, running OCR on textless pages.
func (c *Classifier) collect(ctx context.Context, doc *doctree.Document, log *slog.Logger, langs map[int]string) []streamRun {
	var stream []streamRun
	for _, page := range doc.Pages {
		if page.HasText() {
			for _, r := range page.Runs {
				stream = append(stream, streamRun{TextRun: r})
			}
			continue
		}
		if page.Image == nil {
			continue
		}

		out, err := c.ocr.Recognize(ctx, *page.Image)
		if err != nil {
			log.Warn("ocr failed, skipping page", "page", page.Number, "error", err)
			continue
		}
		kept := 0
		for _, r := range out.Runs {
			if r.Confidence <= c.cfg.MinOCRConfidence || strings.TrimSpace(r.Text) == "" {
				continue
			}
			run := r.TextRun
			run.Text = strings.TrimSpace(run.Text)
			run.Page = page.Number
			stream = append(stream, streamRun{TextRun: run, ocrConf: r.Confidence})
			kept++
		}
		if out.Language != "" && kept > 0 {
			langs[page.Number] = out.Language
		}
		log.Debug("ocr page", "page", page.Number, "runs", len(out.Runs), "kept", kept, "language", out.Language)
	}

	sort.SliceStable(stream, func(i, j int) bool {
		a, b := stream[i], stream[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return stream
}

// merge turns above-cutoff runs into candidates, joining consecutive lines
// of one wrapped heading.
func (c *Classifier) merge(stream []streamRun, scores []float64, eligible []bool, cutoff float64, st DocumentStats) []candidate {
	var cands []candidate
	for i, r := range stream {
		if !eligible[i] || scores[i] <= cutoff {
			continue
		}
		if n := len(cands); n > 0 && continues(stream, cands[n-1].heading, i) {
			last := &cands[n-1]
			last.heading.Text += " " + r.Text
			last.heading.RunSpan++
			last.score = math.Max(last.score, scores[i])
			if r.ocrConf > 0 && (last.ocrConf == 0 || r.ocrConf < last.ocrConf) {
				last.ocrConf = r.ocrConf
			}
			continue
		}
		cands = append(cands, candidate{
			heading: doctree.Heading{
				Text:     r.Text,
				Level:    levelFor(r.FontSize, st),
				Page:     r.Page,
				RunIndex: i,
				RunSpan:  1,
			},
			score:   scores[i],
			ocrConf: r.ocrConf,
		})
	}
	return cands
}

// continues reports whether run i carries on the heading h directly above it.
func continues(stream []streamRun, h doctree.Heading, i int) bool {
	prevIdx := h.RunIndex + h.RunSpan - 1
	if prevIdx != i-1 {
		return false
	}
	prev, cur := stream[prevIdx], stream[i]
	if prev.Page != cur.Page ||
		roundSize(prev.FontSize) != roundSize(cur.FontSize) ||
		prev.Bold != cur.Bold {
		return false
	}
	if gap := cur.Y - prev.Y; gap < 0 || gap > 2*cur.FontSize {
		return false
	}
	if isNumbered(cur.Text) || strings.HasSuffix(prev.Text, ":") || strings.HasSuffix(prev.Text, ".") {
		return false
	}
	return true
}

// levelFor maps a size to H1..H3 by heading band, anything else to H4.
func levelFor(size float64, st DocumentStats) doctree.Level {
	if band := st.Band(roundSize(size)); band >= 0 {
		return doctree.LevelH1 + doctree.Level(band)
	}
	return doctree.LevelH4
}

// assemble picks the title, deduplicates and fixes confidences.
func (c *Classifier) assemble(cands []candidate, runs []doctree.TextRun) doctree.Outline {
	var out doctree.Outline

	titleIdx := -1
	if len(cands) > 0 {
		firstPage := cands[0].heading.Page
		for i, cand := range cands {
			if cand.heading.Page != firstPage {
				break
			}
			if titleIdx < 0 || cand.score > cands[titleIdx].score {
				titleIdx = i
			}
		}
		if lvl := cands[titleIdx].heading.Level; lvl != doctree.LevelH1 && lvl != doctree.LevelH2 {
			titleIdx = -1
		}
	}

	if titleIdx >= 0 {
		out.Title = cands[titleIdx].heading.Text
	} else {
		out.Title = fallbackTitle(cands, runs)
	}

	seen := map[string]bool{strings.ToLower(out.Title): true}
	out.Headings = []doctree.Heading{}
	for i, cand := range cands {
		if i == titleIdx {
			continue
		}
		key := strings.ToLower(cand.heading.Text)
		if seen[key] {
			continue
		}
		seen[key] = true

		h := cand.heading
		h.Confidence = math.Min(cand.score, 1)
		if cand.ocrConf > 0 {
			h.Confidence = math.Min(h.Confidence*cand.ocrConf, c.cfg.OCRConfidenceCap)
		}
		out.Headings = append(out.Headings, h)
	}
	return out
}

// fallbackTitle is the first H1, else the first text on page 1.
func fallbackTitle(cands []candidate, runs []doctree.TextRun) string {
	for _, cand := range cands {
		if cand.heading.Level == doctree.LevelH1 {
			return cand.heading.Text
		}
	}
	for _, r := range runs {
		if r.Page != 1 {
			break
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			return t
		}
	}
	return UntitledTitle
}
