package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Parser converts raw document bytes into a layout-level Document: pages of
// text runs with font size, weight and position.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Document, error)
}

// Options tunes the PDF layout source. Other formats ignore it.
type Options struct {
	FallbackPdftotext bool   // Use pdftotext when the PDF library cannot open a file
	RenderImages      bool   // Render textless pages so they can be OCRed
	PdftoppmPath      string // pdftoppm binary; "" means look it up on PATH
	RenderDPI         int    // Resolution of rendered page images
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{
			FallbackPdftotext: opts.FallbackPdftotext,
			RenderImages:      opts.RenderImages,
			PdftoppmPath:      opts.PdftoppmPath,
			RenderDPI:         opts.RenderDPI,
		}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
