package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/rank"
	"github.com/dgallion1/docsift/internal/segment"
)

// Input is one document of a collection.
type Input struct {
	Name string // Document id, normally the file name
	Data []byte
}

// DocumentResult is the outline and sections of one document.
type DocumentResult struct {
	ID          string
	ContentHash string
	Outline     doctree.Outline
	Sections    []doctree.Section
	Languages   map[int]string
	Pages       int
	Err         error // Parse failure; the document was treated as empty
}

// AnalyzerConfig tunes the collection pipeline.
type AnalyzerConfig struct {
	DocumentConcurrency int
	Parser              parser.Options
}

// Analyzer runs parse, classify and segment per document, then ranks the
// sections of the whole collection.
type Analyzer struct {
	cfg        AnalyzerConfig
	classifier *outline.Classifier
	selector   *rank.Selector
	log        *slog.Logger
	now        func() time.Time
}

func NewAnalyzer(cfg AnalyzerConfig, classifier *outline.Classifier, selector *rank.Selector, log *slog.Logger) *Analyzer {
	if cfg.DocumentConcurrency <= 0 {
		cfg.DocumentConcurrency = 4
	}
	return &Analyzer{
		cfg:        cfg,
		classifier: classifier,
		selector:   selector,
		log:        log,
		now:        time.Now,
	}
}

// OutlineOne parses and outlines a single document. A document that cannot
// be parsed is outlined as empty and the error is kept on the result.
func (a *Analyzer) OutlineOne(ctx context.Context, in Input) DocumentResult {
	log := a.log.With("doc_id", in.Name)
	res := DocumentResult{ID: in.Name, ContentHash: ContentHashHex(in.Data)}

	doc, err := a.parse(ctx, in)
	if err != nil {
		log.Warn("parse failed, treating document as empty", "error", err)
		res.Err = err
		doc = &doctree.Document{ID: in.Name}
	}

	cls := a.classifier.Classify(ctx, doc)
	res.Outline = cls.Outline
	res.Languages = cls.Languages
	res.Pages = doc.PageCount()
	res.Sections = segment.Segment(in.Name, cls.Runs, cls.Outline)

	log.Info("document outlined",
		"pages", res.Pages,
		"headings", len(res.Outline.Headings),
		"sections", len(res.Sections),
	)
	return res
}

func (a *Analyzer) parse(ctx context.Context, in Input) (*doctree.Document, error) {
	p, err := parser.ForFile(in.Name, a.cfg.Parser)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(ctx, bytes.NewReader(in.Data), in.Name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(in.Name), err)
	}
	doc.ID = in.Name
	return doc, nil
}

// OutlineAll outlines every input concurrently. Results keep input order.
// Only context cancellation is returned as an error.
func (a *Analyzer) OutlineAll(ctx context.Context, inputs []Input) ([]DocumentResult, error) {
	return a.OutlineEach(ctx, inputs, nil)
}

// OutlineEach is OutlineAll with a callback invoked as each document
// finishes. The callback may run concurrently.
func (a *Analyzer) OutlineEach(ctx context.Context, inputs []Input, done func(DocumentResult)) ([]DocumentResult, error) {
	results := make([]DocumentResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.DocumentConcurrency)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.OutlineOne(gctx, in)
			if done != nil {
				done(results[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Rank selects the top sections across all documents, keeping at least
// one per document.
func (a *Analyzer) Rank(ctx context.Context, docs []DocumentResult, q doctree.Query, k int) ([]doctree.RankedSection, error) {
	var sections []doctree.Section
	for _, d := range docs {
		sections = append(sections, d.Sections...)
	}
	return a.selector.Select(ctx, sections, q, k)
}

// Analyze outlines the collection and ranks it against q.
func (a *Analyzer) Analyze(ctx context.Context, inputs []Input, q doctree.Query, k int) (doctree.AnalysisOutput, []DocumentResult, error) {
	docs, err := a.OutlineAll(ctx, inputs)
	if err != nil {
		return doctree.AnalysisOutput{}, nil, err
	}
	ranked, err := a.Rank(ctx, docs, q, k)
	if err != nil {
		return doctree.AnalysisOutput{}, docs, err
	}
	return doctree.NewAnalysisOutput(DocumentNames(inputs), q, ranked, a.now()), docs, nil
}

// DocumentNames returns the input names in order.
func DocumentNames(inputs []Input) []string {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	return names
}
