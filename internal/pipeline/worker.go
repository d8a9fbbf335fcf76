package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Worker processes a single analysis job.
type Worker struct {
	analyzer *Analyzer
	log      *slog.Logger
}

func NewWorker(analyzer *Analyzer, log *slog.Logger) *Worker {
	return &Worker{analyzer: analyzer, log: log}
}

// Process outlines every document of the job, then ranks the collection.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	inputs := job.Inputs()

	// Phase 1: Outline
	job.SetStatus(StatusOutlining, "outlining")
	docs, err := w.analyzer.OutlineEach(ctx, inputs, func(d DocumentResult) {
		if d.Err != nil {
			job.AddError(fmt.Sprintf("%s: %s", d.ID, d.Err))
		}
		job.DocumentDone(len(d.Sections))
	})
	if err != nil {
		log.Error("outlining aborted", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "outlining")
		return
	}
	job.SetOutlines(docs)

	failed := 0
	for _, d := range docs {
		if d.Err != nil {
			failed++
		}
	}
	if len(docs) > 0 && failed == len(docs) {
		log.Warn("no document could be parsed", "documents", len(docs))
		job.SetStatus(StatusFailed, "outlining")
		return
	}

	// Phase 2: Rank
	job.SetStatus(StatusRanking, "ranking")
	ranked, err := w.analyzer.Rank(ctx, docs, job.Query, job.TopK)
	if err != nil {
		log.Error("ranking aborted", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "ranking")
		return
	}
	job.SetResult(doctree.NewAnalysisOutput(DocumentNames(inputs), job.Query, ranked, w.analyzer.now()))

	log.Info("analysis complete",
		"documents", len(docs),
		"failed_documents", failed,
		"selected", len(ranked),
	)
	if failed > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}
