package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/typstgest/internal/convert"
	"github.com/dgallion1/typstgest/internal/stats"
	"github.com/dgallion1/typstgest/internal/store"
)

// DocumentStore persists converted documents. *store.Client implements it.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *store.Document) error
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	DocumentIDByHash(ctx context.Context, hash string) (string, error)
	ListDocuments(ctx context.Context, limit int) ([]store.Document, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

// Worker processes a single conversion job.
type Worker struct {
	conv    *convert.Converter
	docs    DocumentStore
	stats   *stats.Recorder
	log     *slog.Logger
	backoff func(int) time.Duration
}

// NewWorker returns a worker. docs and rec may be nil.
func NewWorker(conv *convert.Converter, docs DocumentStore, rec *stats.Recorder, log *slog.Logger) *Worker {
	return &Worker{
		conv:    conv,
		docs:    docs,
		stats:   rec,
		log:     log,
		backoff: Backoff,
	}
}

// Process runs the full conversion pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	start := time.Now()
	data := job.FileData()

	// Phase 1: Dedup check
	if w.docs != nil {
		existing, err := w.docs.DocumentIDByHash(ctx, job.ContentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != "" {
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.SetDocID(existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	format := convert.ResolveFormat(job.Format, job.Filename, data)
	job.SetFormat(format)

	doc, err := w.conv.Parse(bytes.NewReader(data), job.Filename, format)
	if err != nil {
		log.Error("parse failed", "format", format, "error", err)
		w.fail(job, "parsing", fmt.Sprintf("parse: %s", err), start)
		return
	}

	// Phase 3: Render
	job.SetStatus(StatusRendering, "rendering")
	res, err := convert.Render(doc)
	if err != nil {
		log.Error("render failed", "error", err)
		w.fail(job, "rendering", fmt.Sprintf("render: %s", err), start)
		return
	}
	job.SetResult(res.Typst, res.Metadata.Title, res.Blocks, res.MathSpans, res.MathFallbacks)
	w.record(stats.Sample{
		DurationMs:    time.Since(start).Milliseconds(),
		MathSpans:     res.MathSpans,
		MathFallbacks: res.MathFallbacks,
	})
	log.Info("rendered document",
		"format", format,
		"blocks", res.Blocks,
		"math_spans", res.MathSpans,
		"math_fallbacks", res.MathFallbacks,
	)

	if w.docs == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	stored := &store.Document{
		ID:            job.DocID,
		Filename:      job.Filename,
		Format:        string(format),
		Title:         res.Metadata.Title,
		Author:        res.Metadata.Author,
		Hash:          job.ContentHash,
		Typst:         res.Typst,
		MathSpans:     res.MathSpans,
		MathFallbacks: res.MathFallbacks,
		CreatedAt:     job.CreatedAt,
	}
	err = retry(ctx, log, "save document", w.backoff, func() error {
		return w.docs.SaveDocument(ctx, stored)
	})
	if err != nil {
		// The rendered result stays available from the job itself.
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	log.Info("stored document", "duration_ms", time.Since(start).Milliseconds())
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(job *Job, phase, msg string, start time.Time) {
	job.AddError(msg)
	job.SetStatus(StatusFailed, phase)
	w.record(stats.Sample{DurationMs: time.Since(start).Milliseconds(), Failed: true})
}

func (w *Worker) record(s stats.Sample) {
	if w.stats != nil {
		w.stats.Record(s)
	}
}
