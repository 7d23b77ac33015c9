package tracker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/cuefollow/internal/tracker"
)

// fakeScheduler is a deterministic [tracker.Scheduler]: time only moves when
// the test calls advance, and due timers fire synchronously on the calling
// goroutine. When step is nonzero, every Now call also moves the clock, which
// lets tests make search work appear to take time.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	timers []*fakeTimer
	yields int
}

type fakeTimer struct {
	sched    *fakeScheduler
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Unix(0, 0)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(s.step)
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) tracker.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := &fakeTimer{sched: s, deadline: s.now.Add(d), f: f}
	s.timers = append(s.timers, ft)
	return ft
}

func (s *fakeScheduler) Yield() {
	s.mu.Lock()
	s.yields++
	s.mu.Unlock()
}

func (s *fakeScheduler) yieldCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yields
}

// advance moves the clock by d and fires every due, unstopped timer.
func (s *fakeScheduler) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []*fakeTimer
	remaining := s.timers[:0]
	for _, ft := range s.timers {
		switch {
		case ft.stopped:
		case !ft.deadline.After(s.now):
			ft.fired = true
			due = append(due, ft)
		default:
			remaining = append(remaining, ft)
		}
	}
	s.timers = remaining
	s.mu.Unlock()

	for _, ft := range due {
		ft.f()
	}
}

func (ft *fakeTimer) Stop() bool {
	ft.sched.mu.Lock()
	defer ft.sched.mu.Unlock()
	if ft.stopped || ft.fired {
		return false
	}
	ft.stopped = true
	return true
}

// collector records delivered match events in order.
type collector struct {
	mu     sync.Mutex
	events []tracker.MatchEvent
}

func (c *collector) OnMatch(ev tracker.MatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) all() []tracker.MatchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tracker.MatchEvent(nil), c.events...)
}

func newTestTracker(sched *fakeScheduler, opts ...tracker.Option) *tracker.Tracker {
	opts = append([]tracker.Option{tracker.WithScheduler(sched)}, opts...)
	tr := tracker.New(opts...)
	tr.LoadScript(tracker.NewScript([]string{"the", "quick", "brown", "fox", "jumps"}))
	return tr
}

func TestTracker_DebounceDelaysDrain(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := newTestTracker(sched)

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(99 * time.Millisecond)
	if got := tr.Position(); got != 0 {
		t.Fatalf("position before debounce expiry = %d, want 0", got)
	}
	if got := tr.QueueLen(); got != 1 {
		t.Fatalf("QueueLen before debounce expiry = %d, want 1", got)
	}

	sched.advance(1 * time.Millisecond)
	if got := tr.Position(); got != 3 {
		t.Errorf("position after drain = %d, want 3", got)
	}
	if got := tr.QueueLen(); got != 0 {
		t.Errorf("QueueLen after drain = %d, want 0", got)
	}
}

func TestTracker_SubmitRestartsDebounce(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := newTestTracker(sched)

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(60 * time.Millisecond)
	tr.Submit(tracker.Batch{"fox", "jumps"})

	// 120ms since the first Submit, but only 60ms since the last: the
	// restarted timer must not have fired yet.
	sched.advance(60 * time.Millisecond)
	if got := tr.Position(); got != 0 {
		t.Fatalf("position = %d, want 0 while submissions keep arriving", got)
	}

	sched.advance(40 * time.Millisecond)
	if got := tr.Position(); got != 5 {
		t.Errorf("position after drain = %d, want 5", got)
	}
}

func TestTracker_DrainsInOrderFromCurrentCursor(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	events := &collector{}
	tr := newTestTracker(sched, tracker.WithListener(events))

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	tr.Submit(tracker.Batch{"fox", "jumps"})
	sched.advance(100 * time.Millisecond)

	got := events.all()
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Position != 3 || got[1].Position != 5 {
		t.Errorf("positions = %d, %d, want 3, 5", got[0].Position, got[1].Position)
	}
	// The second batch was queued while the cursor was still at 0; its
	// indices prove the search ran from the cursor at dequeue time.
	if len(got[1].MatchedIndices) != 2 || got[1].MatchedIndices[0] != 3 {
		t.Errorf("second event indices = %v, want [3 4]", got[1].MatchedIndices)
	}
}

func TestTracker_EmptyBatchIgnored(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	events := &collector{}
	tr := newTestTracker(sched, tracker.WithListener(events))

	tr.Submit(tracker.Batch{"  ", "", "\t"})
	if got := tr.QueueLen(); got != 0 {
		t.Errorf("QueueLen = %d, want 0 for an all-whitespace batch", got)
	}
	sched.advance(200 * time.Millisecond)
	if got := events.all(); len(got) != 0 {
		t.Errorf("got %d events, want 0", len(got))
	}
}

func TestTracker_ResetDiscardsQueuedWork(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	events := &collector{}
	tr := newTestTracker(sched, tracker.WithListener(events))

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	tr.Reset()

	sched.advance(200 * time.Millisecond)
	if got := events.all(); len(got) != 0 {
		t.Errorf("got %d events after Reset, want 0", len(got))
	}
	if got := tr.CursorState(); got != (tracker.Cursor{}) {
		t.Errorf("cursor = %+v, want zero", got)
	}
	if got := tr.QueueLen(); got != 0 {
		t.Errorf("QueueLen = %d, want 0", got)
	}
}

func TestTracker_ResetClearsMonotonicityFloor(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := newTestTracker(sched)

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(100 * time.Millisecond)
	if got := tr.Position(); got != 3 {
		t.Fatalf("position = %d, want 3", got)
	}

	tr.Reset()
	if got := tr.CursorState(); got != (tracker.Cursor{}) {
		t.Fatalf("cursor after Reset = %+v, want zero", got)
	}

	// The same phrase must place again from the top of the script.
	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(100 * time.Millisecond)
	if got := tr.Position(); got != 3 {
		t.Errorf("position after re-tracking = %d, want 3", got)
	}
}

func TestTracker_LoadScriptStartsFreshSession(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := newTestTracker(sched)

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(100 * time.Millisecond)
	if got := tr.Position(); got != 3 {
		t.Fatalf("position = %d, want 3", got)
	}

	tr.LoadScript(tracker.NewScriptFromText("to be or not to be"))
	if got := tr.CursorState(); got != (tracker.Cursor{}) {
		t.Fatalf("cursor after LoadScript = %+v, want zero", got)
	}

	tr.Submit(tracker.Batch{"to", "be", "or"})
	sched.advance(100 * time.Millisecond)
	if got := tr.Position(); got != 3 {
		t.Errorf("position in new script = %d, want 3", got)
	}
}

func TestTracker_StaleBatchDoesNotRegress(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	events := &collector{}
	tr := newTestTracker(sched, tracker.WithListener(events))

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	sched.advance(100 * time.Millisecond)

	// A repeat of already-read text now lies behind the cursor and must not
	// move it backward.
	tr.Submit(tracker.Batch{"the", "quick"})
	sched.advance(100 * time.Millisecond)

	if got := tr.Position(); got != 3 {
		t.Errorf("position = %d, want 3 after stale batch", got)
	}
	if got := events.all(); len(got) != 1 {
		t.Errorf("got %d events, want 1", len(got))
	}
}

func TestTracker_ListenerPanicDoesNotStopDrain(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := newTestTracker(sched, tracker.WithListener(tracker.ListenerFunc(func(tracker.MatchEvent) {
		panic("display gone")
	})))

	tr.Submit(tracker.Batch{"the", "quick", "brown"})
	tr.Submit(tracker.Batch{"fox", "jumps"})
	sched.advance(100 * time.Millisecond)

	if got := tr.Position(); got != 5 {
		t.Errorf("position = %d, want 5: a panicking listener must not abort the drain", got)
	}
}

func TestTracker_NoMatchLeavesCursorAlone(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	events := &collector{}
	tr := newTestTracker(sched, tracker.WithListener(events))

	tr.Submit(tracker.Batch{"zzz", "qqq"})
	sched.advance(100 * time.Millisecond)

	if got := tr.Position(); got != 0 {
		t.Errorf("position = %d, want 0", got)
	}
	if got := events.all(); len(got) != 0 {
		t.Errorf("got %d events, want 0", len(got))
	}
}

func TestTracker_SubmitBeforeScriptIsSafe(t *testing.T) {
	t.Parallel()

	sched := newFakeScheduler()
	tr := tracker.New(tracker.WithScheduler(sched))

	tr.Submit(tracker.Batch{"the", "quick"})
	sched.advance(100 * time.Millisecond)
	if got := tr.Position(); got != 0 {
		t.Errorf("position = %d, want 0 with no script loaded", got)
	}
}

func TestTracker_PrecisionClamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{10, 50},
		{50, 50},
		{65, 65},
		{95, 95},
		{120, 95},
	}
	for _, tt := range tests {
		tr := tracker.New(tracker.WithPrecision(tt.in))
		if got := tr.Precision(); got != tt.want {
			t.Errorf("WithPrecision(%d): Precision() = %d, want %d", tt.in, got, tt.want)
		}
		tr.SetPrecision(tt.in)
		if got := tr.Precision(); got != tt.want {
			t.Errorf("SetPrecision(%d): Precision() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTracker_SliceBudgetYields(t *testing.T) {
	t.Parallel()

	// Every Now call moves the clock 3ms, so each drained batch appears to
	// cost several milliseconds of work against a 5ms budget.
	sched := newFakeScheduler()
	sched.step = 3 * time.Millisecond
	tr := newTestTracker(sched, tracker.WithSliceBudget(5*time.Millisecond))

	tr.Submit(tracker.Batch{"the", "quick"})
	tr.Submit(tracker.Batch{"brown", "fox"})
	sched.advance(100 * time.Millisecond)

	if got := sched.yieldCount(); got == 0 {
		t.Error("drain never yielded despite exceeding the slice budget")
	}
	if got := tr.Position(); got != 4 {
		t.Errorf("position = %d, want 4", got)
	}
}
