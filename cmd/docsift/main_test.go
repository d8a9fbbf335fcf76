package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsift/internal/doctree"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollectionInput_Forms(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		persona string
		job     string
		docs    []string
	}{
		{
			name:    "plain strings",
			json:    `{"persona":"Travel Planner","job_to_be_done":"Plan a trip","documents":["a.pdf","b.pdf"]}`,
			persona: "Travel Planner",
			job:     "Plan a trip",
			docs:    []string{"a.pdf", "b.pdf"},
		},
		{
			name: "objects",
			json: `{"challenge_info":{"challenge_id":"round_1b_002"},
				"documents":[{"filename":"South of France - Cities.pdf","title":"Cities"}],
				"persona":{"role":"Travel Planner"},
				"job_to_be_done":{"task":"Plan a trip of 4 days for a group of 10 college friends."}}`,
			persona: "Travel Planner",
			job:     "Plan a trip of 4 days for a group of 10 college friends.",
			docs:    []string{"South of France - Cities.pdf"},
		},
		{
			name:    "missing and null",
			json:    `{"persona":null,"documents":["", "x.md"]}`,
			persona: "",
			job:     "",
			docs:    []string{"x.md"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in collectionInput
			require.NoError(t, json.Unmarshal([]byte(tt.json), &in))
			assert.Equal(t, tt.persona, string(in.Persona))
			assert.Equal(t, tt.job, string(in.JobToBeDone))
			assert.Equal(t, tt.docs, in.documentNames())
		})
	}
}

func TestCollectionInput_Invalid(t *testing.T) {
	var in collectionInput
	assert.Error(t, json.Unmarshal([]byte(`{"persona":42}`), &in))
	assert.Error(t, json.Unmarshal([]byte(`{"documents":[true]}`), &in))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAnalyzeCommand(t *testing.T) {
	t.Setenv("DOCSIFT_CONFIG", "")
	dir := t.TempDir()
	writeFile(t, dir, "food.md", "# Food\n\n## Markets\n\nThe morning market sells cheese, olives and fresh bread every day of the week.\n")
	writeFile(t, dir, "beach.md", "# Beaches\n\n## Swimming\n\nThe water is warm from June until late September along the whole coast.\n")
	input := writeFile(t, dir, "challenge1b_input.json", `{
		"persona": {"role": "Food blogger"},
		"job_to_be_done": {"task": "Find local markets"},
		"documents": [{"filename": "food.md"}, {"filename": "beach.md"}, {"filename": "missing.md"}]
	}`)
	out := filepath.Join(dir, "out", "result.json")

	cmd := analyzeCmd(quietLogger)
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--input", input, "--out", out, "--top-k", "1"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "missing.md not found")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var result doctree.AnalysisOutput
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, []string{"food.md", "beach.md"}, result.Metadata.InputDocuments)
	assert.Equal(t, "Food blogger", result.Metadata.Persona)
	assert.Equal(t, "Find local markets", result.Metadata.JobToBeDone)
	require.Len(t, result.ExtractedSections, 2)
	docs := map[string]bool{}
	for _, s := range result.ExtractedSections {
		docs[s.Document] = true
	}
	assert.Len(t, docs, 2)
}

func TestOutlineCommand(t *testing.T) {
	t.Setenv("DOCSIFT_CONFIG", "")
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", "# Field Guide\n\n## Birds\n\nMost species nest in the reeds along the northern shore of the lake.\n")
	writeFile(t, dir, "ignored.png", "not a document")
	outDir := filepath.Join(dir, "outlines")

	cmd := outlineCmd(quietLogger)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{dir, "--out", outDir})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(outDir, "guide.json"))
	require.NoError(t, err)
	var outline doctree.OutlineOutput
	require.NoError(t, json.Unmarshal(data, &outline))
	assert.Equal(t, "Field Guide", outline.Title)
	require.Len(t, outline.Outline, 1)
	assert.Equal(t, "Birds", outline.Outline[0].Text)

	_, err = os.Stat(filepath.Join(outDir, "ignored.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestOutlineCommand_NoDocuments(t *testing.T) {
	cmd := outlineCmd(quietLogger)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{t.TempDir()})
	assert.Error(t, cmd.Execute())
}
