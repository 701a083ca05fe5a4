package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgallion1/typstgest/internal/stats"
)

// convertResponse is the JSON body of a synchronous conversion.
type convertResponse struct {
	Typst         string `json:"typst"`
	Format        string `json:"format"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	Blocks        int    `json:"blocks"`
	MathSpans     int    `json:"math_spans"`
	MathFallbacks int    `json:"math_fallbacks"`
}

// handleConvert converts one document inline. With ?output=typst the body
// is the Typst source itself.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	start := time.Now()
	res, err := s.orchestrator.Converter().ConvertReader(bytes.NewReader(up.data), up.filename, up.format)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		s.orchestrator.Stats().Record(stats.Sample{DurationMs: elapsed, Failed: true})
		s.log.Warn("conversion failed", "filename", up.filename, "format", up.format, "error", err)
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	s.orchestrator.Stats().Record(stats.Sample{
		DurationMs:    elapsed,
		MathSpans:     res.MathSpans,
		MathFallbacks: res.MathFallbacks,
	})

	if r.URL.Query().Get("output") == "typst" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(res.Typst))
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Typst:         res.Typst,
		Format:        string(res.Format),
		Title:         res.Metadata.Title,
		Author:        res.Metadata.Author,
		Blocks:        res.Blocks,
		MathSpans:     res.MathSpans,
		MathFallbacks: res.MathFallbacks,
	})
}

type mathRequest struct {
	Latex   string `json:"latex"`
	Display bool   `json:"display"`
}

// handleConvertMath converts a single math expression.
func (s *Server) handleConvertMath(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req mathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.orchestrator.Converter().ConvertMath(req.Latex, req.Display)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"typst":   out,
		"display": req.Display,
	})
}
