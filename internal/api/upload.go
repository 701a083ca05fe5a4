package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/typstgest/internal/latexmath"
	"github.com/dgallion1/typstgest/internal/parser"
)

// upload is one document received from a client.
type upload struct {
	filename string
	format   parser.Format
	data     []byte
}

// httpError carries the status code a request failure should produce.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// readUpload accepts either a multipart form with a "file" field or a raw
// body. The format comes from the "format" form field or query parameter;
// raw bodies may name themselves with ?filename=.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if isMultipart(r) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, badRequest("invalid multipart form: %s", err)
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, badRequest("file is required: %s", err)
		}
		defer file.Close()
		format, err := parser.ParseFormat(r.FormValue("format"))
		if err != nil {
			return nil, badRequest("%s", err)
		}
		return s.readFile(file, sanitizeFilename(header.Filename), format)
	}

	q := r.URL.Query()
	format, err := parser.ParseFormat(q.Get("format"))
	if err != nil {
		return nil, badRequest("%s", err)
	}
	filename := "input"
	if name := q.Get("filename"); name != "" {
		filename = sanitizeFilename(name)
	}
	return s.readFile(r.Body, filename, format)
}

// readFileHeader opens one part of a batch upload.
func (s *Server) readFileHeader(fh *multipart.FileHeader, format parser.Format) (*upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, badRequest("failed to open file")
	}
	defer f.Close()
	return s.readFile(f, sanitizeFilename(fh.Filename), format)
}

func (s *Server) readFile(r io.Reader, filename string, format parser.Format) (*upload, error) {
	if ext := filepath.Ext(filename); format == parser.FormatAuto && ext != "" && !parser.IsSupportedExtension(filename) {
		return nil, badRequest("unsupported file type: %s", ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(s.cfg.MaxUploadBytes)
		}
		return nil, &httpError{code: http.StatusInternalServerError, msg: "failed to read file"}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, tooLarge(s.cfg.MaxUploadBytes)
	}
	return &upload{filename: filename, format: format, data: data}, nil
}

func tooLarge(limit int64) error {
	return &httpError{code: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("file exceeds max size (%d bytes)", limit)}
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// errorStatus maps a failure to a status code. Math that cannot be parsed or
// rendered is a 422; other conversion failures are the client's input.
func errorStatus(err error) int {
	var he *httpError
	var invalid *latexmath.InvalidMathError
	var conv *latexmath.ConversionError
	switch {
	case errors.As(err, &he):
		return he.code
	case errors.As(err, &invalid), errors.As(err, &conv):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" || name == "_" {
		name = "unnamed"
	}
	return name
}
