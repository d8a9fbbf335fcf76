package rank

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsift/internal/doctree"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEmbedder maps a section title (first line of the text) to a fixed
// similarity against the query vector [1, 0].
type fakeEmbedder struct {
	mu       sync.Mutex
	sims     map[string]float64
	queryErr error
	failAll  bool
	batches  int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("provider down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		title, _, _ := strings.Cut(t, "\n")
		sim, ok := f.sims[title]
		if !ok {
			out[i] = []float32{0, 0}
			continue
		}
		out[i] = []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
	}
	return out, nil
}

func section(doc, title string, page int, body string) doctree.Section {
	h := &doctree.Heading{Text: title, Level: doctree.LevelH1, Page: page}
	return doctree.Section{DocumentID: doc, Heading: h, Title: title, Page: page, Body: body}
}

var query = doctree.Query{Persona: "Travel planner", JobToBeDone: "Plan a 4-day trip"}

func TestSelect_CoverageOverridesK(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{
		"A strong": 0.9,
		"B weak":   0.2,
		"B weaker": 0.1,
	}}
	sections := []doctree.Section{
		section("a.pdf", "A strong", 1, "Highly relevant content."),
		section("b.pdf", "B weak", 2, "Barely relevant."),
		section("b.pdf", "B weaker", 1, "Not relevant."),
	}

	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a.pdf", got[0].DocumentID)
	assert.Equal(t, "A strong", got[0].SectionTitle)
	assert.Equal(t, 1, got[0].ImportanceRank)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)

	assert.Equal(t, "b.pdf", got[1].DocumentID)
	assert.Equal(t, "B weak", got[1].SectionTitle)
	assert.Equal(t, 2, got[1].ImportanceRank)
	assert.Equal(t, 2, got[1].PageNumber)
}

func TestSelect_FillsByScoreAndRanksDensely(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{
		"a1": 0.9, "a2": 0.8, "a3": 0.7,
		"b1": 0.3,
		"c1": 0.75,
	}}
	sections := []doctree.Section{
		section("a", "a1", 1, "x"),
		section("a", "a2", 2, "x"),
		section("a", "a3", 3, "x"),
		section("b", "b1", 1, "x"),
		section("c", "c1", 1, "x"),
	}

	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 4)
	require.NoError(t, err)

	var titles []string
	for i, r := range got {
		titles = append(titles, r.SectionTitle)
		assert.Equal(t, i+1, r.ImportanceRank)
	}
	assert.Equal(t, []string{"a1", "a2", "c1", "b1"}, titles)
}

func TestSelect_DefaultK(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{}}
	var sections []doctree.Section
	for i := 0; i < 15; i++ {
		sections = append(sections, section("doc", "s", i+1, "body"))
	}
	got, err := New(Config{}, emb, quietLogger()).Select(context.Background(), sections, query, 0)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestSelect_FewerSectionsThanK(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{"only": 0.5}}
	sections := []doctree.Section{section("d", "only", 1, "text")}
	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSelect_EmptyQueryUsesDocumentOrder(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{"late": 0.99}}
	sections := []doctree.Section{
		section("b.pdf", "late", 3, "x"),
		section("a.pdf", "early", 1, "x"),
		section("b.pdf", "first", 1, "x"),
	}

	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, doctree.Query{}, 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "early", got[0].SectionTitle)
	assert.Equal(t, "first", got[1].SectionTitle)
	assert.Equal(t, "late", got[2].SectionTitle)
	for _, r := range got {
		assert.Zero(t, r.Score)
	}
	assert.Zero(t, emb.batches, "no embedding without a query")
}

func TestSelect_QueryEmbedFailureUsesDocumentOrder(t *testing.T) {
	emb := &fakeEmbedder{queryErr: errors.New("timeout")}
	sections := []doctree.Section{
		section("a", "two", 2, "x"),
		section("a", "one", 1, "x"),
	}
	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 2)
	require.NoError(t, err)
	assert.Equal(t, "one", got[0].SectionTitle)
	assert.Equal(t, "two", got[1].SectionTitle)
}

func TestSelect_UnembeddableSectionsScoreMinusOne(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{"good": 0.1}}
	sections := []doctree.Section{
		section("a", "unknown", 1, "x"), // zero vector
		section("a", "good", 2, "x"),
	}
	got, err := New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 2)
	require.NoError(t, err)
	assert.Equal(t, "good", got[0].SectionTitle)
	assert.Equal(t, -1.0, got[1].Score)

	emb = &fakeEmbedder{failAll: true}
	got, err = New(DefaultConfig(), emb, quietLogger()).Select(context.Background(), sections, query, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, -1.0, r.Score)
	}
	assert.Equal(t, "unknown", got[0].SectionTitle, "ties fall back to page order")
}

func TestSelect_BatchesInParallel(t *testing.T) {
	emb := &fakeEmbedder{sims: map[string]float64{}}
	var sections []doctree.Section
	for i := 0; i < 10; i++ {
		sections = append(sections, section("d", "s", 1, "x"))
	}
	cfg := DefaultConfig()
	cfg.EmbedBatchSize = 3
	_, err := New(cfg, emb, quietLogger()).Select(context.Background(), sections, query, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, emb.batches)
}

func TestSelect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emb := &fakeEmbedder{sims: map[string]float64{}}
	_, err := New(DefaultConfig(), emb, quietLogger()).Select(ctx, []doctree.Section{section("d", "s", 1, "x")}, query, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelect_NoSections(t *testing.T) {
	got, err := New(DefaultConfig(), &fakeEmbedder{}, quietLogger()).Select(context.Background(), nil, query, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReserveAndFill(t *testing.T) {
	items := []scored{
		{section: doctree.Section{DocumentID: "a"}, score: 0.9},
		{section: doctree.Section{DocumentID: "a"}, score: 0.8},
		{section: doctree.Section{DocumentID: "b"}, score: 0.5},
		{section: doctree.Section{DocumentID: "a"}, score: 0.4},
	}
	reserved, rest := reserveOnePerDocument(items)
	require.Len(t, reserved, 2)
	assert.Equal(t, 0.9, reserved[0].score)
	assert.Equal(t, 0.5, reserved[1].score)
	require.Len(t, rest, 2)

	assert.Len(t, fillRemaining(rest, 1), 1)
	assert.Len(t, fillRemaining(rest, 5), 2)
	assert.Nil(t, fillRemaining(rest, 0))
	assert.Nil(t, fillRemaining(rest, -2))
}

func TestRefinedText(t *testing.T) {
	tests := []struct {
		name string
		sec  doctree.Section
		max  int
		want string
	}{
		{"title and body", doctree.Section{Title: "Intro", Body: "First line.\nSecond   line."}, 1000, "Intro\nFirst line. Second line."},
		{"sentence bound", doctree.Section{Title: "T", Body: "One sentence here. Another one follows."}, 20, "T\nOne sentence here."},
		{"body only", doctree.Section{Body: "text"}, 1000, "text"},
		{"title only", doctree.Section{Title: "Untitled"}, 1000, "Untitled"},
		{"nothing", doctree.Section{Body: "  \n "}, 1000, NoTextPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, refinedText(tt.sec, tt.max))
		})
	}
}

func TestRepresentativeText(t *testing.T) {
	sec := doctree.Section{Title: "Packing", Body: strings.Repeat("word ", 200)}
	got := representativeText(sec, 50)
	title, body, ok := strings.Cut(got, "\n")
	require.True(t, ok)
	assert.Equal(t, "Packing", title)
	assert.LessOrEqual(t, len(body), 50)
	assert.False(t, strings.HasSuffix(body, " "))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
