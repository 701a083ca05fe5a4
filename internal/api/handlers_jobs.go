package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/typstgest/internal/parser"
	"github.com/dgallion1/typstgest/internal/pipeline"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	job := pipeline.NewJob(up.filename, up.format, up.data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), submitStatus(err))
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) handleBatchJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	format, err := parser.ParseFormat(r.FormValue("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		up, err := s.readFileHeader(fh, format)
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(up.filename, up.format, up.data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": up.filename,
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, jobAccepted(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult serves the Typst produced by a job. Duplicates are served
// from the document they matched.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	out, ok := job.Result()
	snap := job.Snapshot()
	if !ok && snap.Status == pipeline.StatusDupSkipped {
		out, ok = s.storedTypst(r, snap.DocID)
	}
	switch {
	case ok:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(out))
	case snap.Status == pipeline.StatusFailed || snap.Status == pipeline.StatusDupSkipped:
		msg := "no result available"
		if len(snap.Progress.Errors) > 0 {
			msg = strings.Join(snap.Progress.Errors, "; ")
		}
		jsonError(w, msg, http.StatusUnprocessableEntity)
	default:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not finished",
			"status": snap.Status,
		})
	}
}

func (s *Server) storedTypst(r *http.Request, docID string) (string, bool) {
	docs := s.orchestrator.Documents()
	if docs == nil {
		return "", false
	}
	doc, err := docs.GetDocument(r.Context(), docID)
	if err != nil {
		s.log.Warn("load stored document failed", "doc_id", docID, "error", err)
		return "", false
	}
	if doc == nil {
		return "", false
	}
	return doc.Typst, true
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename":   snap.Filename,
		"job_id":     snap.ID,
		"doc_id":     snap.DocID,
		"status":     snap.Status,
		"poll_url":   fmt.Sprintf("/api/jobs/%s/status", snap.ID),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", snap.ID),
	}
}

func submitStatus(err error) int {
	if errors.Is(err, pipeline.ErrQueueFull) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
