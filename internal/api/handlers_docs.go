package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/typstgest/internal/pipeline"
)

const defaultListLimit = 200

// documentSummary is a stored document without its Typst body.
type documentSummary struct {
	ID            string `json:"id"`
	Filename      string `json:"filename,omitempty"`
	Format        string `json:"format"`
	Title         string `json:"title,omitempty"`
	Hash          string `json:"hash"`
	MathSpans     int    `json:"math_spans"`
	MathFallbacks int    `json:"math_fallbacks"`
	CreatedAt     string `json:"created_at"`
}

// handleListDocuments lists stored documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w)
	if !ok {
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	stored, err := docs.ListDocuments(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}

	out := make([]documentSummary, 0, len(stored))
	for _, d := range stored {
		out = append(out, documentSummary{
			ID:            d.ID,
			Filename:      d.Filename,
			Format:        d.Format,
			Title:         d.Title,
			Hash:          d.Hash,
			MathSpans:     d.MathSpans,
			MathFallbacks: d.MathFallbacks,
			CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// handleDeleteDocument deletes a stored document and its hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w)
	if !ok {
		return
	}
	docID := chi.URLParam(r, "docID")

	deleted, err := docs.DeleteDocument(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !deleted {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.log.Info("deleted document", "doc_id", docID)
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

func (s *Server) documents(w http.ResponseWriter) (pipeline.DocumentStore, bool) {
	docs := s.orchestrator.Documents()
	if docs == nil {
		jsonError(w, "document store is not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	return docs, true
}
