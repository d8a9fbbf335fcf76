package parser

import (
	"context"
	"io"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings get heading typography; every other block becomes body runs.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	w := newLayoutWriter()
	walkMarkdown(doc, src, w)
	return w.document(filename), ctx.Err()
}

func walkMarkdown(n ast.Node, src []byte, w *layoutWriter) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			w.heading(node.Level, string(node.Text(src)))
		case *ast.Paragraph, *ast.TextBlock:
			w.body(blockLines(c, src, " "))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			w.body(blockLines(c, src, "\n"))
		case *ast.ThematicBreak, *ast.HTMLBlock:
			// No text worth classifying.
		default:
			// Lists, list items and blockquotes hold further blocks.
			walkMarkdown(c, src, w)
		}
	}
}

// blockLines joins the raw source lines of a leaf block.
func blockLines(n ast.Node, src []byte, sep string) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if line := strings.TrimRight(string(seg.Value(src)), "\r\n"); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, sep)
}
