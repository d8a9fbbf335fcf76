//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes page images with gosseract. A gosseract client is
// not safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
	available map[string]bool
	dpi       int
	log       *slog.Logger
}

var _ Recognizer = (*Tesseract)(nil)

// NewTesseract creates a recognizer. Close it when done.
func NewTesseract(cfg Config, log *slog.Logger) (*Tesseract, error) {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}

	available := make(map[string]bool)
	if installed, err := gosseract.GetAvailableLanguages(); err == nil {
		for _, l := range installed {
			available[l] = true
		}
	} else {
		log.Warn("listing tesseract languages failed", "error", err)
	}

	client := gosseract.NewClient()
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &Tesseract{
		client:    client,
		languages: langs,
		available: available,
		dpi:       cfg.DPI,
		log:       log,
	}, nil
}

// Close releases the Tesseract engine.
func (t *Tesseract) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}

// Recognize runs OCR on the image. A second pass with a better-suited
// language is made when the first pass reveals a different script and
// that language is installed.
func (t *Tesseract) Recognize(ctx context.Context, img doctree.ImageHandle) (Result, error) {
	if len(img.Data) == 0 {
		return Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	primary := strings.Join(t.languages, "+")
	runs, err := t.recognize(img, primary)
	if err != nil || len(runs) == 0 {
		return Result{}, err
	}

	tag := DetectLanguage(joinRuns(runs))
	code := TesseractCode(tag)
	if !containsLang(t.languages, code) && t.available[code] {
		t.log.Debug("re-running ocr with detected language", "page", img.Page, "lang", code)
		if second, err := t.recognize(img, code); err == nil && len(second) > 0 {
			runs = second
		}
	}

	return Result{Runs: runs, Language: tag.String()}, nil
}

func (t *Tesseract) recognize(img doctree.ImageHandle, lang string) ([]Run, error) {
	if err := t.client.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}
	// Undecodable images are unrecognizable, not failures.
	if err := t.client.SetImageFromBytes(img.Data); err != nil {
		t.log.Warn("ocr image rejected", "page", img.Page, "error", err)
		return nil, nil
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("ocr page %d: %w", img.Page, err)
	}

	dpi := img.DPI
	if dpi <= 0 {
		dpi = t.dpi
	}
	scale := pointsPerPixel(dpi)

	runs := make([]Run, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		height := float64(b.Box.Dy()) * scale
		runs = append(runs, Run{
			TextRun: doctree.TextRun{
				Text:     text,
				FontSize: math.Round(height/1.2*2) / 2,
				X:        float64(b.Box.Min.X) * scale,
				Y:        float64(b.Box.Min.Y) * scale,
				Width:    float64(b.Box.Dx()) * scale,
				Page:     img.Page,
			},
			Confidence: b.Confidence / 100,
		})
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y < runs[j].Y
		}
		return runs[i].X < runs[j].X
	})
	return runs, nil
}

func joinRuns(runs []Run) string {
	parts := make([]string, len(runs))
	for i, r := range runs {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n")
}

func containsLang(langs []string, code string) bool {
	for _, l := range langs {
		if l == code {
			return true
		}
	}
	return false
}
