//go:build !ocr

package ocr

import (
	"context"
	"log/slog"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Tesseract is a stub used when the "ocr" build tag is not set.
type Tesseract struct{}

var _ Recognizer = (*Tesseract)(nil)

// NewTesseract returns ErrOCRNotEnabled. Rebuild with -tags ocr.
func NewTesseract(Config, *slog.Logger) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil stub.
func (t *Tesseract) Close() error {
	return nil
}

// Recognize always returns ErrOCRNotEnabled.
func (t *Tesseract) Recognize(context.Context, doctree.ImageHandle) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}
