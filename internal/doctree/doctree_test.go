package doctree

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_TextRoundTrip(t *testing.T) {
	for _, l := range []Level{LevelTitle, LevelH1, LevelH2, LevelH3, LevelH4} {
		b, err := l.MarshalText()
		require.NoError(t, err)

		var got Level
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, l, got)
	}

	var bad Level
	assert.Error(t, bad.UnmarshalText([]byte("H9")))
	_, err := Level(42).MarshalText()
	assert.Error(t, err)
}

func TestDocument_RunsReadingOrder(t *testing.T) {
	doc := &Document{
		ID: "a.pdf",
		Pages: []Page{
			{Number: 2, Runs: []TextRun{{Text: "p2", Page: 2, Y: 10}}},
			{Number: 1, Runs: []TextRun{
				{Text: "right", Page: 1, Y: 50, X: 300},
				{Text: "left", Page: 1, Y: 50, X: 72},
				{Text: "top", Page: 1, Y: 20, X: 72},
			}},
		},
	}

	var got []string
	for _, r := range doc.Runs() {
		got = append(got, r.Text)
	}
	assert.Equal(t, []string{"top", "left", "right", "p2"}, got)
}

func TestHeading_Covers(t *testing.T) {
	h := Heading{RunIndex: 3, RunSpan: 2}
	assert.False(t, h.Covers(2))
	assert.True(t, h.Covers(3))
	assert.True(t, h.Covers(4))
	assert.False(t, h.Covers(5))

	single := Heading{RunIndex: 7}
	assert.True(t, single.Covers(7))
	assert.False(t, single.Covers(8))
}

func TestQuery_Text(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"both", Query{"Travel Planner", "Plan a trip"}, "User profile: Travel Planner. Task to be completed: Plan a trip"},
		{"persona only", Query{Persona: "Chef"}, "User profile: Chef."},
		{"job only", Query{JobToBeDone: "Cook dinner"}, "Task to be completed: Cook dinner"},
		{"blank", Query{"  ", "\t"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Text())
		})
	}
	assert.True(t, Query{}.IsEmpty())
}

func TestOutlineOutput_JSON(t *testing.T) {
	o := Outline{
		Title:    "Report",
		Headings: []Heading{{Text: "1. Scope", Level: LevelH1, Page: 2}},
	}
	b, err := json.Marshal(o.Output())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Report","outline":[{"level":"H1","text":"1. Scope","page":2}]}`, string(b))

	empty, err := json.Marshal(Outline{Title: "x"}.Output())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x","outline":[]}`, string(empty))
}

func TestNewAnalysisOutput(t *testing.T) {
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	out := NewAnalysisOutput(
		[]string{"a.pdf", "b.pdf"},
		Query{Persona: "P", JobToBeDone: "J"},
		[]RankedSection{{DocumentID: "a.pdf", SectionTitle: "Intro", PageNumber: 1, ImportanceRank: 1, RefinedText: "Intro\nbody"}},
		at,
	)

	assert.Equal(t, "2025-07-01T11:00:00Z", out.Metadata.ProcessingTimestamp)
	require.Len(t, out.ExtractedSections, 1)
	require.Len(t, out.SubsectionAnalysis, 1)
	assert.Equal(t, 1, out.ExtractedSections[0].ImportanceRank)
	assert.Equal(t, "Intro\nbody", out.SubsectionAnalysis[0].RefinedText)

	b, err := json.Marshal(NewAnalysisOutput(nil, Query{}, nil, at))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"input_documents":[]`)
	assert.Contains(t, string(b), `"extracted_sections":[]`)
}
