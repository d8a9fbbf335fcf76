// Package app wires configuration into a ready analyzer for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/ocr"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/rank"
)

// Stack holds the long-lived components built from a Config.
type Stack struct {
	Analyzer  *pipeline.Analyzer
	Embedding *embed.Service

	tesseract *ocr.Tesseract
}

// Build creates the embedder, OCR engine, classifier, selector and analyzer.
// OCR that was requested but not compiled in is logged and skipped.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Stack, error) {
	emb, err := embed.New(ctx, EmbedConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	st := &Stack{Embedding: emb}
	var rec ocr.Recognizer
	if cfg.OCR.Enabled {
		t, err := ocr.NewTesseract(ocr.Config{Languages: cfg.OCR.Languages, DPI: cfg.OCR.DPI}, log)
		switch {
		case errors.Is(err, ocr.ErrOCRNotEnabled):
			log.Warn("ocr requested but not compiled in; textless pages will be skipped")
		case err != nil:
			emb.Close()
			return nil, fmt.Errorf("ocr: %w", err)
		default:
			st.tesseract = t
			rec = t
		}
	}

	classifier := outline.New(outline.Config{
		MinOCRConfidence: cfg.Outline.MinOCRConfidence,
		MinCutoff:        cfg.Outline.MinCutoff,
		MaxCutoff:        cfg.Outline.MaxCutoff,
		OCRConfidenceCap: cfg.Outline.OCRConfidenceCap,
	}, rec, log)

	selector := rank.New(rank.Config{
		TopK:             cfg.Rank.TopK,
		BodyPrefixChars:  cfg.Rank.BodyPrefixChars,
		RefinedTextChars: cfg.Rank.RefinedTextChars,
		EmbedBatchSize:   cfg.Rank.EmbedBatchSize,
		EmbedConcurrency: cfg.Rank.EmbedConcurrency,
	}, emb, log)

	st.Analyzer = pipeline.NewAnalyzer(pipeline.AnalyzerConfig{
		DocumentConcurrency: cfg.Pipeline.DocumentConcurrency,
		Parser: parser.Options{
			FallbackPdftotext: cfg.PDF.FallbackPdftotext,
			RenderImages:      cfg.PDF.RenderImages && rec != nil,
			PdftoppmPath:      cfg.PDF.PdftoppmPath,
			RenderDPI:         cfg.PDF.RenderDPI,
		},
	}, classifier, selector, log)
	return st, nil
}

// EmbedConfig maps the embedding section onto the provider factory.
func EmbedConfig(cfg config.Config) embed.Config {
	e := cfg.Embedding
	return embed.Config{
		Provider:     e.Provider,
		Model:        e.Model,
		Dimensions:   e.Dimensions,
		RatePerSec:   e.RatePerSec,
		Timeout:      e.Timeout.Std(),
		OllamaURL:    e.OllamaURL,
		GeminiAPIKey: e.GeminiAPIKey,
		Onnx: embed.OnnxConfig{
			RuntimeLib:    e.OnnxRuntimeLib,
			ModelPath:     e.OnnxModelPath,
			TokenizerPath: e.OnnxTokenizerPath,
			Dimensions:    e.Dimensions,
		},
		CachePath: e.CachePath,
		StatsAge:  e.StatsAge.Std(),
	}
}

// Close releases the embedder and OCR engine.
func (s *Stack) Close() error {
	var errs []error
	if s.tesseract != nil {
		errs = append(errs, s.tesseract.Close())
	}
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	return errors.Join(errs...)
}
