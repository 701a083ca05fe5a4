// Package stats keeps rolling-window conversion statistics.
package stats

import (
	"slices"
	"sync"
	"time"
)

// Sample describes one finished conversion.
type Sample struct {
	DurationMs    int64
	MathSpans     int
	MathFallbacks int
	Failed        bool
}

type entry struct {
	at time.Time
	Sample
}

// Latency aggregates conversion durations.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Snapshot is a point-in-time view of the window.
type Snapshot struct {
	Window        string  `json:"window"`
	Conversions   int     `json:"conversions"`
	Failures      int     `json:"failures"`
	MathSpans     int     `json:"math_spans"`
	MathFallbacks int     `json:"math_fallbacks"`
	Latency       Latency `json:"latency"`
}

// Recorder tracks conversions finished within a rolling window.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []entry
	window  time.Duration
	now     func() time.Time
}

// NewRecorder returns a Recorder keeping samples for window. A non-positive
// window means one hour.
func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = time.Hour
	}
	return &Recorder{
		entries: make([]entry, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds a sample. Negative durations count as zero.
func (r *Recorder) Record(s Sample) {
	s.DurationMs = max(s.DurationMs, 0)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.entries = append(r.entries, entry{at: now, Sample: s})
}

// Snapshot aggregates the samples still inside the window. Latency covers
// successful conversions only.
func (r *Recorder) Snapshot() Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	snap := Snapshot{Window: r.window.String()}

	durations := make([]int64, 0, len(r.entries))
	for _, e := range r.entries {
		snap.Conversions++
		snap.MathSpans += e.MathSpans
		snap.MathFallbacks += e.MathFallbacks
		if e.Failed {
			snap.Failures++
			continue
		}
		durations = append(durations, e.DurationMs)
	}
	snap.Latency = latency(durations)
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	keep := r.entries[:0]
	for _, e := range r.entries {
		if !e.at.Before(cutoff) {
			keep = append(keep, e)
		}
	}
	r.entries = keep
}

func latency(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	slices.Sort(values)

	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
