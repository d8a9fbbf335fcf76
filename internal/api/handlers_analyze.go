package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleAnalyze queues a collection analysis. The form carries the
// documents as "files" plus persona, job_to_be_done and an optional top_k.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	maxFiles := int64(s.cfg.Server.MaxFiles)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes*maxFiles+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.Server.MaxFiles {
		jsonError(w, fmt.Sprintf("too many files (max %d)", s.cfg.Server.MaxFiles), http.StatusBadRequest)
		return
	}

	topK := s.cfg.Rank.TopK
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "top_k must be a positive integer", http.StatusBadRequest)
			return
		}
		topK = n
	}

	inputs := make([]pipeline.Input, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, fh := range files {
		in, code, err := s.readUpload(fh)
		if err != nil {
			jsonError(w, err.Error(), code)
			return
		}
		if seen[in.Name] {
			jsonError(w, "duplicate file name: "+in.Name, http.StatusBadRequest)
			return
		}
		seen[in.Name] = true
		inputs = append(inputs, in)
	}

	// A blank persona and job is allowed; ranking falls back to document order.
	q := doctree.Query{
		Persona:     r.FormValue("persona"),
		JobToBeDone: r.FormValue("job_to_be_done"),
	}

	job, err := s.orchestrator.Submit(inputs, q, topK)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    snap.ID,
		"status":    snap.Status,
		"documents": pipeline.DocumentNames(inputs),
		"poll_url":  fmt.Sprintf("/api/analyze/%s/status", snap.ID),
	})
}

func (s *Server) jobFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleAnalyzeResult returns the ranked output once the job is done.
func (s *Server) handleAnalyzeResult(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	if !snap.Status.IsTerminal() {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	res := job.Result()
	if res == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "analysis failed",
			"errors": snap.Progress.Errors,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// outlineSummary is one document's entry in the outlines response.
type outlineSummary struct {
	Document    string         `json:"document"`
	ContentHash string         `json:"content_hash"`
	Pages       int            `json:"pages"`
	Sections    int            `json:"sections"`
	Languages   map[int]string `json:"languages,omitempty"`
	Error       string         `json:"error,omitempty"`
	doctree.OutlineOutput
}

func (s *Server) handleAnalyzeOutlines(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	docs := job.Outlines()
	if docs == nil {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}

	out := make([]outlineSummary, 0, len(docs))
	for _, d := range docs {
		sum := outlineSummary{
			Document:      d.ID,
			ContentHash:   d.ContentHash,
			Pages:         d.Pages,
			Sections:      len(d.Sections),
			Languages:     d.Languages,
			OutlineOutput: d.Outline.Output(),
		}
		if d.Err != nil {
			sum.Error = d.Err.Error()
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}
