package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/pipeline"
)

func outlineCmd(logger func() *slog.Logger) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "outline <file|dir>...",
		Short: "Write a title and heading outline for each document",
		Long: `Outline every supported document given on the command line. Directories
are scanned (non-recursively) for supported files. Each result is written to
<out>/<name>.json; without --out the outlines are printed to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			files, err := expandInputs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported documents in %s", strings.Join(args, ", "))
			}

			st, _, err := loadStack(cmd, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if out != "" {
				if err := os.MkdirAll(out, 0o755); err != nil {
					return err
				}
			}

			failed := 0
			for _, path := range files {
				start := time.Now()
				data, err := os.ReadFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "[x] %s: %v\n", filepath.Base(path), err)
					failed++
					continue
				}
				res := st.Analyzer.OutlineOne(cmd.Context(), pipeline.Input{Name: filepath.Base(path), Data: data})
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "[x] %s: %v\n", res.ID, res.Err)
					failed++
					continue
				}

				b, err := json.MarshalIndent(res.Outline.Output(), "", "  ")
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Fprintln(cmd.OutOrStdout(), string(b))
					continue
				}
				dest := filepath.Join(out, stem(path)+".json")
				if err := os.WriteFile(dest, append(b, '\n'), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "[ok] %s (%.2fs) -> %s\n", res.ID, time.Since(start).Seconds(), filepath.Base(dest))
			}
			if failed == len(files) {
				return fmt.Errorf("all %d documents failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory for <name>.json files (default: stdout)")
	return cmd
}

// expandInputs replaces directories with the supported files they contain.
func expandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && parser.IsSupportedExtension(e.Name()) {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
