package parser

import (
	"bufio"
	"context"
	"io"

	"github.com/dgallion1/docsift/internal/doctree"
)

// TextParser handles plain text files. Every non-blank line becomes a body
// run; headings can only be recognized from text patterns.
type TextParser struct{}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	w := newLayoutWriter()
	for scanner.Scan() {
		w.body(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w.document(filename), ctx.Err()
}
