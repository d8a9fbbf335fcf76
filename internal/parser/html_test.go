package parser

import (
	"context"
	"strings"
	"testing"
)

func TestHTMLParser_HeadingsAndBody(t *testing.T) {
	input := `<!DOCTYPE html>
<html>
<head><title>ignored</title><style>body { color: red }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Guide</h1>
<p>Intro   paragraph.</p>
<h2>Install</h2>
<ul><li>Download</li><li>Run</li></ul>
<p><strong>Warning label</strong></p>
<script>var x = 1;</script>
<footer>Copyright</footer>
</body>
</html>`

	p := &HTMLParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs := doc.Runs()
	want := []struct {
		text string
		size float64
		bold bool
	}{
		{"Guide", 24, true},
		{"Intro paragraph.", bodySize, false},
		{"Install", 18, true},
		{"Download", bodySize, false},
		{"Run", bodySize, false},
		{"Warning label", bodySize, true},
	}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d: %v", len(want), len(runs), runTexts(doc))
	}
	for i, w := range want {
		if runs[i].Text != w.text || runs[i].FontSize != w.size || runs[i].Bold != w.bold {
			t.Errorf("run[%d]: expected %q size=%v bold=%v, got %q size=%v bold=%v",
				i, w.text, w.size, w.bold, runs[i].Text, runs[i].FontSize, runs[i].Bold)
		}
	}
}

func TestHTMLParser_PartialBoldIsNotBold(t *testing.T) {
	input := `<p>Some <b>bold</b> words</p>`
	p := &HTMLParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "x.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs := doc.Runs()
	if len(runs) != 1 || runs[0].Bold {
		t.Fatalf("expected one non-bold run, got %+v", runs)
	}
	if runs[0].Text != "Some bold words" {
		t.Errorf("expected collapsed text, got %q", runs[0].Text)
	}
}

func TestHTMLParser_PreKeepsLines(t *testing.T) {
	input := "<pre>line one\nline two</pre>"
	p := &HTMLParser{}
	doc, err := p.Parse(context.Background(), strings.NewReader(input), "x.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := runTexts(doc)
	if len(got) != 2 || got[0] != "line one" || got[1] != "line two" {
		t.Errorf("expected two lines, got %v", got)
	}
}
