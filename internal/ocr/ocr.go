// Package ocr recognizes text on pages that have no extractable text layer.
//
// The Tesseract engine is only compiled in with the "ocr" build tag:
//
//	go build -tags ocr ./...
//
// which requires tesseract-ocr and its language data on the host. Without
// the tag NewTesseract returns ErrOCRNotEnabled and callers fall back to Noop.
package ocr

import (
	"context"
	"errors"

	"github.com/dgallion1/docsift/internal/doctree"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Run is a recognized text run with the engine's confidence (0..1).
type Run struct {
	doctree.TextRun
	Confidence float64
}

// Result is the outcome of recognizing one page image.
type Result struct {
	Runs     []Run
	Language string // BCP 47 tag, "" when nothing was recognized
}

// Recognizer turns a rendered page image into text runs. Implementations
// return an empty Result (not an error) for images with no readable text.
type Recognizer interface {
	Recognize(ctx context.Context, img doctree.ImageHandle) (Result, error)
}

// Noop never recognizes anything.
type Noop struct{}

func (Noop) Recognize(context.Context, doctree.ImageHandle) (Result, error) {
	return Result{}, nil
}

// Config controls the Tesseract recognizer.
type Config struct {
	Languages []string // Tesseract codes tried first, e.g. ["eng"]
	DPI       int      // Fallback resolution when the handle carries none
}

// pointsPerPixel converts image pixels at dpi back to PDF points.
func pointsPerPixel(dpi int) float64 {
	if dpi <= 0 {
		dpi = 150
	}
	return 72.0 / float64(dpi)
}
