package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It reads positioned text with the Go
// library, falling back to pdftotext if enabled. Pages without a text
// layer can be rendered to PNG with pdftoppm for OCR.
type PDFParser struct {
	FallbackPdftotext bool
	RenderImages      bool
	PdftoppmPath      string
	RenderDPI         int
}

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsift-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFLayout(ctx, tmpPath, filename)
	if err != nil && p.FallbackPdftotext {
		doc, err = extractPdftotext(ctx, tmpPath, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	if p.RenderImages {
		for i := range doc.Pages {
			page := &doc.Pages[i]
			if page.HasText() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			img, err := p.renderPage(ctx, tmpPath, page.Number)
			if err != nil {
				// Leave the page textless; OCR simply has nothing to read.
				continue
			}
			page.Image = img
		}
	}

	return doc, nil
}

func extractPDFLayout(ctx context.Context, path, id string) (*doctree.Document, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := &doctree.Document{ID: id}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, readPage(reader, i))
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return doc, nil
}

// readPage converts one page's content stream into runs. The library
// panics on some malformed streams; such a page comes back empty.
func readPage(reader *pdflib.Reader, num int) (page doctree.Page) {
	page = doctree.Page{Number: num, Width: pageWidth, Height: pageHeight}
	defer func() {
		if recover() != nil {
			page.Runs = nil
		}
	}()

	p := reader.Page(num)
	if p.V.IsNull() {
		return page
	}
	if box := p.V.Key("MediaBox"); box.Len() == 4 {
		if w, h := box.Index(2).Float64()-box.Index(0).Float64(), box.Index(3).Float64()-box.Index(1).Float64(); w > 0 && h > 0 {
			page.Width, page.Height = w, h
		}
	}

	content := p.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{
			Text: t.S,
			Font: t.Font,
			Size: t.FontSize,
			X:    t.X,
			Y:    t.Y,
			W:    t.W,
		})
	}
	page.Runs = groupRuns(glyphs, num, page.Height)
	return page
}

// extractPdftotext loses typography: every line becomes a body-size run.
func extractPdftotext(ctx context.Context, path, id string) (*doctree.Document, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	pages := splitPages(string(out))
	// pdftotext terminates the last page with a form feed.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}

	doc := &doctree.Document{ID: id}
	for i, text := range pages {
		page := doctree.Page{Number: i + 1, Width: pageWidth, Height: pageHeight}
		y := pageMargin
		for _, line := range strings.Split(text, "\n") {
			line = strings.Join(strings.Fields(line), " ")
			if line == "" {
				continue
			}
			page.Runs = append(page.Runs, doctree.TextRun{
				Text:     line,
				FontSize: bodySize,
				X:        pageMargin,
				Y:        y,
				Width:    float64(len([]rune(line))) * bodySize * 0.5,
				Page:     page.Number,
			})
			y += bodySize * lineSpacing
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

// renderPage rasterises a single page with pdftoppm.
func (p *PDFParser) renderPage(ctx context.Context, path string, num int) (*doctree.ImageHandle, error) {
	bin := p.PdftoppmPath
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := p.RenderDPI
	if dpi <= 0 {
		dpi = 150
	}

	dir, err := os.MkdirTemp("", "docsift-render-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(num)
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", num, err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", num, err)
	}
	return &doctree.ImageHandle{Page: num, Data: data, Format: "png", DPI: dpi}, nil
}
