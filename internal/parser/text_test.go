package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/docsift/internal/doctree"
)

func runTexts(doc *doctree.Document) []string {
	var out []string
	for _, r := range doc.Runs() {
		out = append(out, r.Text)
	}
	return out
}

func TestTextParser_OneRunPerLine(t *testing.T) {
	input := "1. Introduction\nFirst paragraph line one.\n\nSecond paragraph."
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.ID != "notes.txt" {
		t.Errorf("expected id %q, got %q", "notes.txt", doc.ID)
	}
	want := []string{"1. Introduction", "First paragraph line one.", "Second paragraph."}
	got := runTexts(doc)
	if len(got) != len(want) {
		t.Fatalf("expected %d runs, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("run[%d]: expected %q, got %q", i, w, got[i])
		}
	}
	for _, r := range doc.Runs() {
		if r.FontSize != bodySize || r.Bold {
			t.Errorf("expected plain body typography, got size=%v bold=%v", r.FontSize, r.Bold)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].HasText() {
		t.Error("expected empty page")
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := runTexts(doc); len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d: %v", len(got), got)
	}
}

func TestTextParser_Paginates(t *testing.T) {
	input := strings.Repeat("A line of text.\n", 200)
	p := &TextParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "long.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) < 2 {
		t.Fatalf("expected several pages, got %d", len(doc.Pages))
	}
	last := doc.Pages[len(doc.Pages)-1]
	for _, r := range last.Runs {
		if r.Page != last.Number {
			t.Errorf("run page %d does not match page %d", r.Page, last.Number)
		}
	}
}
