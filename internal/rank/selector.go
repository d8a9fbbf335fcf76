// Package rank selects the sections most relevant to a persona and job,
// guaranteeing every input document contributes at least one section.
package rank

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/excerpt"
)

// NoTextPlaceholder stands in for a section with neither body nor title.
const NoTextPlaceholder = "[section has no extractable text]"

// Embedder is the part of an embedding provider the selector needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config tunes selection.
type Config struct {
	TopK             int // Used when Select is called with k <= 0
	BodyPrefixChars  int // Body characters embedded alongside the title
	RefinedTextChars int // Body characters kept in refined text
	EmbedBatchSize   int
	EmbedConcurrency int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		TopK:             10,
		BodyPrefixChars:  500,
		RefinedTextChars: 1000,
		EmbedBatchSize:   32,
		EmbedConcurrency: 4,
	}
}

// Selector ranks sections against a query.
type Selector struct {
	cfg Config
	emb Embedder
	log *slog.Logger
}

// New creates a Selector. Zero config fields take their defaults.
func New(cfg Config, emb Embedder, log *slog.Logger) *Selector {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.BodyPrefixChars <= 0 {
		cfg.BodyPrefixChars = def.BodyPrefixChars
	}
	if cfg.RefinedTextChars <= 0 {
		cfg.RefinedTextChars = def.RefinedTextChars
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = def.EmbedBatchSize
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = def.EmbedConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Selector{cfg: cfg, emb: emb, log: log}
}

// scored is a section with its similarity and input position.
type scored struct {
	section doctree.Section
	score   float64
	index   int
}

// Select returns up to k sections ordered by relevance, plus whatever extra
// sections are needed so every document appears once. The result has
// max(k, number of documents) entries, or fewer when there are fewer
// sections. Ranks are dense, starting at 1.
//
// Provider failures never fail selection: an unusable query ranks by
// document order, and a section that cannot be embedded scores -1. Only
// context cancellation is returned as an error.
func (s *Selector) Select(ctx context.Context, sections []doctree.Section, q doctree.Query, k int) ([]doctree.RankedSection, error) {
	if k <= 0 {
		k = s.cfg.TopK
	}
	if len(sections) == 0 {
		return []doctree.RankedSection{}, nil
	}

	items, err := s.score(ctx, sections, q)
	if err != nil {
		return nil, err
	}
	sortScored(items)

	reserved, rest := reserveOnePerDocument(items)
	filled := fillRemaining(rest, max(0, k-len(reserved)))

	chosen := append(reserved, filled...)
	sortScored(chosen)

	out := make([]doctree.RankedSection, len(chosen))
	for i, it := range chosen {
		out[i] = doctree.RankedSection{
			DocumentID:     it.section.DocumentID,
			SectionTitle:   it.section.Title,
			PageNumber:     it.section.Page,
			ImportanceRank: i + 1,
			RefinedText:    refinedText(it.section, s.cfg.RefinedTextChars),
			Score:          it.score,
		}
	}

	s.log.Info("sections selected",
		"sections", len(sections),
		"requested", k,
		"reserved", len(reserved),
		"selected", len(out),
	)
	return out, nil
}

// score computes each section's similarity to the query.
func (s *Selector) score(ctx context.Context, sections []doctree.Section, q doctree.Query) ([]scored, error) {
	items := make([]scored, len(sections))
	for i, sec := range sections {
		items[i] = scored{section: sec, index: i}
	}

	text := q.Text()
	if text == "" || s.emb == nil {
		s.log.Warn("query unusable, ranking by document order", "persona", q.Persona, "job", q.JobToBeDone)
		return items, ctx.Err()
	}

	qvec, err := s.emb.Embed(ctx, text)
	if err != nil || isZero(qvec) {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		s.log.Warn("query embedding failed, ranking by document order", "error", err)
		return items, nil
	}

	texts := make([]string, len(sections))
	for i, sec := range sections {
		texts[i] = representativeText(sec, s.cfg.BodyPrefixChars)
	}
	vecs := s.embedAll(ctx, texts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if vecs[i] == nil || isZero(vecs[i]) {
			items[i].score = -1
			continue
		}
		items[i].score = cosine(qvec, vecs[i])
	}
	return items, nil
}

// embedAll embeds texts in parallel batches. A failed batch leaves its
// slots nil.
func (s *Selector) embedAll(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	var g errgroup.Group
	g.SetLimit(s.cfg.EmbedConcurrency)

	for start := 0; start < len(texts); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(texts))
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			vecs, err := s.emb.EmbedBatch(ctx, texts[start:end])
			if err != nil || len(vecs) != end-start {
				s.log.Warn("section embedding failed", "from", start, "to", end, "error", err)
				return nil
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// representativeText is what gets embedded for a section.
func representativeText(sec doctree.Section, prefixChars int) string {
	body := excerpt.Prefix(sec.Body, prefixChars)
	switch {
	case sec.Title == "":
		return body
	case body == "":
		return sec.Title
	}
	return sec.Title + "\n" + body
}

// refinedText is the section's title followed by a sentence-bounded excerpt
// of its body.
func refinedText(sec doctree.Section, maxChars int) string {
	title := strings.TrimSpace(sec.Title)
	body := excerpt.Trim(sec.Body, maxChars)
	switch {
	case body != "" && title != "":
		return title + "\n" + body
	case body != "":
		return body
	case title != "":
		return title
	}
	return NoTextPlaceholder
}

// sortScored orders by score desc, page asc, document id asc, input order.
func sortScored(items []scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.section.Page != b.section.Page {
			return a.section.Page < b.section.Page
		}
		if a.section.DocumentID != b.section.DocumentID {
			return a.section.DocumentID < b.section.DocumentID
		}
		return a.index < b.index
	})
}

// reserveOnePerDocument takes the best section of each document from an
// already sorted list and returns it with the remainder, both still sorted.
func reserveOnePerDocument(sorted []scored) (reserved, rest []scored) {
	seen := make(map[string]bool)
	for _, it := range sorted {
		if !seen[it.section.DocumentID] {
			seen[it.section.DocumentID] = true
			reserved = append(reserved, it)
			continue
		}
		rest = append(rest, it)
	}
	return reserved, rest
}

// fillRemaining takes the first budget items of a sorted list.
func fillRemaining(sorted []scored, budget int) []scored {
	if budget <= 0 {
		return nil
	}
	if budget > len(sorted) {
		budget = len(sorted)
	}
	return sorted[:budget]
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
