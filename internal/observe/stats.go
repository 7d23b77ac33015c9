package observe

import (
	"math"
	"sort"
	"sync"
	"time"
)

// TrackerStats collects search latency samples and counter values for the
// /statsz endpoint. It maintains a bounded ring buffer of recent latency
// observations from which percentiles are computed on demand. Unlike the
// OTel instruments in [Metrics], this snapshot is served directly by the
// process without a scrape round-trip, so operators can eyeball a session
// with curl.
//
// Thread-safe for concurrent use.
type TrackerStats struct {
	mu sync.Mutex

	search latencyBuffer

	batches  int64
	accepted int64
	rejected int64
}

// NewTrackerStats creates a TrackerStats with the given window size
// (maximum number of latency samples retained).
func NewTrackerStats(windowSize int) *TrackerStats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &TrackerStats{
		search: newLatencyBuffer(windowSize),
	}
}

// RecordSearch records one segment-search latency sample.
func (ts *TrackerStats) RecordSearch(d time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.search.add(d)
}

// IncrBatches increments the submitted-batch counter.
func (ts *TrackerStats) IncrBatches() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.batches++
}

// IncrAccepted increments the accepted-match counter.
func (ts *TrackerStats) IncrAccepted() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.accepted++
}

// IncrRejected increments the rejected-batch counter.
func (ts *TrackerStats) IncrRejected() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.rejected++
}

// LatencyPercentiles holds p50 and p95 values for the search latency.
type LatencyPercentiles struct {
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
}

// Snapshot captures a point-in-time view of all tracker statistics.
type Snapshot struct {
	Search   LatencyPercentiles `json:"search"`
	Batches  int64              `json:"batches"`
	Accepted int64              `json:"accepted"`
	Rejected int64              `json:"rejected"`
}

// Snapshot returns a point-in-time view of all tracker statistics.
func (ts *TrackerStats) Snapshot() Snapshot {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return Snapshot{
		Search:   ts.search.percentiles(),
		Batches:  ts.batches,
		Accepted: ts.accepted,
		Rejected: ts.rejected,
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	// Copy and sort the valid samples.
	sorted := make([]time.Duration, n)
	if lb.full {
		copy(sorted, lb.data)
	} else {
		copy(sorted, lb.data[:n])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
