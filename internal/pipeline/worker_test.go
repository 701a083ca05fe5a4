package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/typstgest/internal/config"
	"github.com/dgallion1/typstgest/internal/convert"
	"github.com/dgallion1/typstgest/internal/parser"
	"github.com/dgallion1/typstgest/internal/stats"
	"github.com/dgallion1/typstgest/internal/store"
)

// memStore is an in-memory DocumentStore. The first failSaves calls to
// SaveDocument return saveErr.
type memStore struct {
	mu        sync.Mutex
	docs      map[string]*store.Document
	hashes    map[string]string
	failSaves int
	saveErr   error
	saves     int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]*store.Document{}, hashes: map[string]string{}}
}

func (m *memStore) SaveDocument(_ context.Context, doc *store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saves <= m.failSaves {
		return m.saveErr
	}
	m.docs[doc.ID] = doc
	m.hashes[doc.Hash] = doc.ID
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id string) (*store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id], nil
}

func (m *memStore) DocumentIDByHash(_ context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[hash], nil
}

func (m *memStore) ListDocuments(_ context.Context, limit int) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Document
	for _, d := range m.docs {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) DeleteDocument(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return false, nil
	}
	delete(m.docs, id)
	delete(m.hashes, d.Hash)
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestWorker(docs DocumentStore, opts parser.Options) (*Worker, *stats.Recorder) {
	rec := stats.NewRecorder(time.Hour)
	w := NewWorker(convert.New(opts), docs, rec, discardLogger())
	w.backoff = func(int) time.Duration { return 0 }
	return w, rec
}

func TestWorker_ProcessMarkdown(t *testing.T) {
	docs := newMemStore()
	w, rec := newTestWorker(docs, parser.Options{})

	job := NewJob("notes.md", parser.FormatAuto, []byte("# Notes\n\nEnergy $E = mc^2$ and $\\frac{a}{$."))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Format != parser.FormatMarkdown {
		t.Errorf("expected markdown format, got %q", snap.Format)
	}
	if snap.Progress.MathSpans != 2 || snap.Progress.MathFallbacks != 1 {
		t.Errorf("unexpected math counts %+v", snap.Progress)
	}

	out, ok := job.Result()
	if !ok || !strings.Contains(out, "= Notes\n") || !strings.Contains(out, "$E = m c^2$") {
		t.Errorf("unexpected result %q", out)
	}

	stored, _ := docs.GetDocument(context.Background(), job.DocID)
	if stored == nil || stored.Typst != out || stored.Hash != job.ContentHash || stored.Title != "notes" {
		t.Errorf("unexpected stored document %+v", stored)
	}

	if s := rec.Snapshot(); s.Conversions != 1 || s.MathFallbacks != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	docs := newMemStore()
	w, _ := newTestWorker(docs, parser.Options{})

	data := []byte("\\section{A}\nText.")
	first := NewJob("a.tex", parser.FormatAuto, data)
	w.Process(context.Background(), first)

	second := NewJob("copy.tex", parser.FormatAuto, data)
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %s", snap.Status)
	}
	if snap.DocID != first.DocID {
		t.Errorf("expected duplicate to point at %q, got %q", first.DocID, snap.DocID)
	}
}

func TestWorker_WithoutStore(t *testing.T) {
	w, _ := newTestWorker(nil, parser.Options{})
	job := NewJob("data.csv", parser.FormatAuto, []byte("a,b\n1,2\n"))
	w.Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed, got %s", s)
	}
	if out, _ := job.Result(); !strings.HasPrefix(out, "#set document(title: \"data\")") {
		t.Errorf("unexpected result %q", out)
	}
}

func TestWorker_StrictMathFails(t *testing.T) {
	w, rec := newTestWorker(nil, parser.Options{Strict: true})
	job := NewJob("bad.md", parser.FormatAuto, []byte("Broken $\\frac{a}{$ here"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Fatalf("expected failure while parsing, got %s/%s", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || !strings.HasPrefix(snap.Progress.Errors[0], "parse: ") {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if s := rec.Snapshot(); s.Failures != 1 {
		t.Errorf("expected 1 recorded failure, got %d", s.Failures)
	}
}

func TestWorker_UnsupportedEnvironmentFailsRendering(t *testing.T) {
	w, _ := newTestWorker(nil, parser.Options{})
	job := NewJob("env.md", parser.FormatAuto, []byte("$$\\begin{foo}a\\end{foo}$$"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "rendering" {
		t.Fatalf("expected failure while rendering, got %s/%s", snap.Status, snap.Phase)
	}
	if _, ok := job.Result(); ok {
		t.Error("expected no result after a render failure")
	}
}

func TestWorker_RetriesStore(t *testing.T) {
	docs := newMemStore()
	docs.failSaves = 2
	docs.saveErr = &store.RetryableError{StatusCode: 503, Message: "busy"}
	w, _ := newTestWorker(docs, parser.Options{})

	job := NewJob("r.md", parser.FormatAuto, []byte("retry me"))
	w.Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed after retries, got %s", s)
	}
	if docs.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", docs.saves)
	}
}

func TestWorker_StoreFailureKeepsResult(t *testing.T) {
	docs := newMemStore()
	docs.failSaves = 1
	docs.saveErr = errors.New("forbidden")
	w, _ := newTestWorker(docs, parser.Options{})

	job := NewJob("f.md", parser.FormatAuto, []byte("kept"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "storing" {
		t.Fatalf("expected failure while storing, got %s/%s", snap.Status, snap.Phase)
	}
	if docs.saves != 1 {
		t.Errorf("expected no retry for a permanent error, got %d attempts", docs.saves)
	}
	if out, ok := job.Result(); !ok || out != "#set document(title: \"f\")\n\nkept\n" {
		t.Errorf("expected rendered result to survive, got %q", out)
	}
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 10, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, convert.New(parser.Options{}), nil, stats.NewRecorder(time.Hour), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		job := NewJob(name, parser.FormatAuto, []byte("# "+name))
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
		jobs = append(jobs, job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, job := range jobs {
		for !job.Snapshot().Status.Done() {
			if time.Now().After(deadline) {
				t.Fatalf("job %s did not finish", job.ID)
			}
			time.Sleep(5 * time.Millisecond)
		}
		if s := job.Snapshot().Status; s != StatusCompleted {
			t.Errorf("job %s: expected completed, got %s", job.Filename, s)
		}
		if o.GetJob(job.ID) != job {
			t.Errorf("expected job %s to be tracked", job.ID)
		}
	}
	if n := o.Stats().Snapshot().Conversions; n != 3 {
		t.Errorf("expected 3 recorded conversions, got %d", n)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, convert.New(parser.Options{}), nil, nil, discardLogger())

	if err := o.Submit(NewJob("a.md", "", []byte("a"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overflow := NewJob("b.md", "", []byte("b"))
	err := o.Submit(overflow)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if s := overflow.Snapshot().Status; s != StatusFailed {
		t.Errorf("expected overflow job to fail, got %s", s)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
