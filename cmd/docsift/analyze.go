package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/pipeline"
)

func analyzeCmd(logger func() *slog.Logger) *cobra.Command {
	var (
		inputPath string
		docsDir   string
		out       string
		topK      int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Rank the sections of a document collection for a persona and task",
		Long: `Read a collection description (persona, job_to_be_done, documents), outline
every document and write the ranked sections as JSON. Every document that
could be read contributes at least one section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			start := time.Now()

			coll, err := readCollectionInput(inputPath)
			if err != nil {
				return err
			}
			if docsDir == "" {
				docsDir = filepath.Dir(inputPath)
			}

			var inputs []pipeline.Input
			for _, name := range coll.documentNames() {
				data, err := os.ReadFile(filepath.Join(docsDir, name))
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: document %s not found, skipping\n", name)
					continue
				}
				inputs = append(inputs, pipeline.Input{Name: name, Data: data})
			}
			if len(inputs) == 0 {
				return fmt.Errorf("none of the listed documents were found in %s", docsDir)
			}

			st, cfg, err := loadStack(cmd, log)
			if err != nil {
				return err
			}
			defer st.Close()

			k := topK
			if k <= 0 {
				k = coll.TopK
			}
			if k <= 0 {
				k = cfg.Rank.TopK
			}

			q := doctree.Query{Persona: string(coll.Persona), JobToBeDone: string(coll.JobToBeDone)}
			result, _, err := st.Analyzer.Analyze(cmd.Context(), inputs, q, k)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			b = append(b, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[ok] %d documents, %d sections (%.2fs) -> %s\n",
				len(inputs), len(result.ExtractedSections), time.Since(start).Seconds(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "challenge1b_input.json", "collection description JSON")
	cmd.Flags().StringVarP(&docsDir, "docs", "d", "", "directory holding the documents (default: the input file's directory)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output JSON file (default: stdout)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "sections to select before the one-per-document guarantee (default: config rank.top_k)")
	return cmd
}
