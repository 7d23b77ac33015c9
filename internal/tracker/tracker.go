// Package tracker implements the incremental fuzzy script-tracking engine:
// given an immutable script and a live stream of spoken-word batches from a
// speech-to-text source, it continuously determines where in the script the
// speaker currently is.
//
// The cursor advances forward only. Transcription noise — misheard,
// substituted, or dropped words — shows up as batches that fail the
// similarity gates and simply do not move the cursor, which is always safe.
// Searches run inside a debounced, single-flight drain loop with a
// cooperative time-slice budget so a burst of queued batches never starves
// the host.
//
// A [Tracker] is safe for concurrent use: Submit, Reset, LoadScript and
// SetPrecision may be called from any goroutine at any time.
package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/cuefollow/internal/observe"
	"github.com/MrWong99/cuefollow/internal/tracker/similarity"
)

const (
	// MinPrecision and MaxPrecision bound the precision knob. Values outside
	// the range are clamped, never rejected.
	MinPrecision = 50
	MaxPrecision = 95

	defaultPrecision   = 65
	defaultDebounce    = 100 * time.Millisecond
	defaultSliceBudget = 5 * time.Millisecond
)

// Option configures a [Tracker] during construction.
type Option func(*Tracker)

// WithScorer sets the similarity scorer used by the segment search.
// The default is [similarity.Levenshtein].
func WithScorer(s similarity.Scorer) Option {
	return func(t *Tracker) {
		t.searcher = NewSearcher(s)
	}
}

// WithListener sets the [Listener] that receives accepted-match events.
// When nil (the default), accepted matches still advance the cursor but are
// not delivered anywhere.
func WithListener(l Listener) Option {
	return func(t *Tracker) {
		t.listener = l
	}
}

// WithMetrics attaches OTel instruments for search latency, queue depth and
// outcome counters. When nil, no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithStats attaches an in-process stats collector. When nil, no stats are
// recorded.
func WithStats(s *observe.TrackerStats) Option {
	return func(t *Tracker) {
		t.stats = s
	}
}

// WithPrecision sets the initial precision (clamped to [MinPrecision,
// MaxPrecision]). The default is 65.
func WithPrecision(p int) Option {
	return func(t *Tracker) {
		t.precision = clampPrecision(p)
	}
}

// WithDebounce sets the delay between the last Submit and the start of a
// drain session. The default is 100ms.
func WithDebounce(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.debounce = d
		}
	}
}

// WithSliceBudget sets the cumulative processing time after which the drain
// loop yields to the host scheduler before continuing. The default is 5ms.
func WithSliceBudget(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.sliceBudget = d
		}
	}
}

// WithScheduler replaces the timing primitives. Tests use this to drive the
// debounce and time-slice logic with a simulated clock.
func WithScheduler(s Scheduler) Option {
	return func(t *Tracker) {
		t.sched = s
	}
}

// Tracker owns the request queue, the cursor, and the search pipeline for
// one reading session.
type Tracker struct {
	searcher    *Searcher
	listener    Listener
	metrics     *observe.Metrics
	stats       *observe.TrackerStats
	sched       Scheduler
	debounce    time.Duration
	sliceBudget time.Duration

	mu        sync.Mutex
	script    *Script
	cursor    Cursor
	precision int
	queue     []Batch
	epoch     uint64
	draining  bool
	timer     Timer
}

// New creates a Tracker with the supplied options. No script is loaded yet;
// batches submitted before [Tracker.LoadScript] are queued and then rejected
// by the search as having no qualifying candidate.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		searcher:    NewSearcher(nil),
		sched:       realScheduler{},
		debounce:    defaultDebounce,
		sliceBudget: defaultSliceBudget,
		precision:   defaultPrecision,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// LoadScript starts a new session with the given script. The cursor returns
// to zero, the queue is cleared, and any in-flight work is discarded exactly
// as in [Tracker.Reset].
func (t *Tracker) LoadScript(script *Script) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.script = script
}

// Reset discards all queued and in-flight work and returns the cursor to
// {0, 0}. After Reset returns, no batch submitted before the call can mutate
// the cursor: in-flight drain work observes the epoch change and aborts.
// The loaded script is retained.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// resetLocked bumps the session epoch and clears queue, timer, drain guard
// and cursor. Must be called with t.mu held.
func (t *Tracker) resetLocked() {
	t.epoch++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if n := len(t.queue); n > 0 && t.metrics != nil {
		t.metrics.QueueDepth.Add(context.Background(), -int64(n))
	}
	t.queue = nil
	t.draining = false
	t.cursor = Cursor{}
}

// SetPrecision updates the precision knob. Values outside [MinPrecision,
// MaxPrecision] are clamped. The new value takes effect on the next search.
func (t *Tracker) SetPrecision(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.precision = clampPrecision(p)
}

// Precision returns the current precision.
func (t *Tracker) Precision() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.precision
}

// CursorState returns a snapshot of the cursor.
func (t *Tracker) CursorState() Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// Position returns the current read position.
func (t *Tracker) Position() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor.Position
}

// QueueLen returns the number of batches waiting to be processed.
func (t *Tracker) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Submit appends a spoken-word batch to the queue and (re)starts the
// debounce timer; the queue begins draining only once submissions pause for
// the debounce interval. Word tokens are trimmed of surrounding whitespace;
// a batch that is empty after trimming is a no-op and is not queued.
//
// Submit never blocks on search work and never returns an error: worst case
// the batch fails to place and the cursor does not advance this cycle.
func (t *Tracker) Submit(batch Batch) {
	words := make(Batch, 0, len(batch))
	for _, w := range batch {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return
	}

	t.mu.Lock()
	t.queue = append(t.queue, words)
	if t.timer != nil {
		t.timer.Stop()
	}
	ep := t.epoch
	t.timer = t.sched.AfterFunc(t.debounce, func() {
		t.startDrain(ep)
	})
	t.mu.Unlock()

	if t.metrics != nil {
		ctx := context.Background()
		t.metrics.BatchesSubmitted.Add(ctx, 1)
		t.metrics.QueueDepth.Add(ctx, 1)
	}
	if t.stats != nil {
		t.stats.IncrBatches()
	}
}

// startDrain begins a drain session for the given epoch unless the epoch is
// stale, a drain is already running, or there is nothing to do.
func (t *Tracker) startDrain(ep uint64) {
	t.mu.Lock()
	if ep != t.epoch || t.draining || len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	t.draining = true
	t.mu.Unlock()

	t.drain(ep)
}

// drain processes queued batches strictly in arrival order until the queue
// is empty or the epoch changes. Each batch is searched from the cursor
// position current at dequeue time, not at submit time. Once cumulative
// processing time exceeds the slice budget, the loop yields to the host
// scheduler and continues.
func (t *Tracker) drain(ep uint64) {
	ctx := context.Background()
	sliceStart := t.sched.Now()

	for {
		t.mu.Lock()
		if ep != t.epoch {
			t.mu.Unlock()
			return
		}
		if len(t.queue) == 0 {
			t.draining = false
			t.mu.Unlock()
			return
		}
		batch := t.queue[0]
		t.queue = t.queue[1:]
		script := t.script
		origin := t.cursor.Position
		precision := t.precision
		t.mu.Unlock()

		if t.metrics != nil {
			t.metrics.QueueDepth.Add(ctx, -1)
		}

		_, span := observe.StartSpan(ctx, "tracker.search")
		searchStart := t.sched.Now()
		candidate := t.searcher.FindBestMatch(batch, script, origin, precision)
		elapsed := t.sched.Now().Sub(searchStart)
		span.End()

		if t.metrics != nil {
			t.metrics.RecordSearch(ctx, elapsed)
		}
		if t.stats != nil {
			t.stats.RecordSearch(elapsed)
		}

		t.mu.Lock()
		if ep != t.epoch {
			t.mu.Unlock()
			return
		}
		ev, accepted := AcceptMatch(candidate, &t.cursor, precision)
		t.mu.Unlock()

		if accepted {
			if t.metrics != nil {
				t.metrics.MatchesAccepted.Add(ctx, 1)
			}
			if t.stats != nil {
				t.stats.IncrAccepted()
			}
			if t.listener != nil {
				t.emit(ev)
			}
		} else {
			reason := "policy"
			if !candidate.Found() {
				reason = "no_candidate"
			}
			slog.Debug("tracker: batch did not advance cursor",
				"reason", reason,
				"origin", origin,
				"words", len(batch),
			)
			if t.metrics != nil {
				t.metrics.RecordRejection(ctx, reason)
			}
			if t.stats != nil {
				t.stats.IncrRejected()
			}
		}

		if t.sched.Now().Sub(sliceStart) > t.sliceBudget {
			t.sched.Yield()
			sliceStart = t.sched.Now()
		}
	}
}

// emit delivers ev to the listener, isolating panics so a faulting display
// collaborator cannot abort the drain loop or corrupt the cursor.
func (t *Tracker) emit(ev MatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tracker: match listener panicked",
				"panic", r,
				"position", ev.Position,
			)
			if t.metrics != nil {
				t.metrics.ListenerFaults.Add(context.Background(), 1)
			}
		}
	}()
	t.listener.OnMatch(ev)
}

// clampPrecision clamps p to [MinPrecision, MaxPrecision].
func clampPrecision(p int) int {
	if p < MinPrecision {
		return MinPrecision
	}
	if p > MaxPrecision {
		return MaxPrecision
	}
	return p
}
