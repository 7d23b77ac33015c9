package tracker

// Batch is one finalized chunk of transcribed speech, already split into
// whitespace-delimited word tokens by the speech source. Batches arrive
// asynchronously and are processed strictly in arrival order.
type Batch []string

// Candidate is a proposed correspondence between a spoken batch and a
// contiguous script segment. At most one candidate survives a search: the
// best-scoring one. A candidate with StartIndex < 0 means the search found
// nothing that cleared the threshold gate.
type Candidate struct {
	// StartIndex is the script index of the first matched word, or -1 when
	// no candidate qualified.
	StartIndex int

	// Length is the number of script words covered by the match.
	Length int

	// RawSimilarity is the unadjusted similarity score in [0, 1] between the
	// spoken segment and the script segment.
	RawSimilarity float64

	// Score is RawSimilarity adjusted by the distance penalty and length
	// bonuses. Candidates are ranked by Score.
	Score float64

	// DistanceFromOrigin is how many words past the search origin the match
	// starts. The search window is forward-only, so this is never negative.
	DistanceFromOrigin int
}

// Found reports whether the candidate refers to an actual script segment.
func (c Candidate) Found() bool {
	return c.StartIndex >= 0
}

// noCandidate is the sentinel returned when a search finds nothing.
func noCandidate() Candidate {
	return Candidate{StartIndex: -1}
}

// Cursor tracks the read position within a script.
//
// LastValid is monotonically non-decreasing for the lifetime of a session:
// once the reader has demonstrably passed a word, no later (possibly noisy)
// batch may move the cursor back before it. Position is only ever advanced
// to values >= LastValid. Reset returns both to zero.
type Cursor struct {
	// Position is the current read position as a script word index.
	Position int

	// LastValid is the highest position ever committed this session.
	LastValid int
}

// MatchEvent is delivered to the display collaborator for every accepted
// match.
type MatchEvent struct {
	// Position is the new cursor position (index one past the last matched
	// word).
	Position int

	// MatchedIndices are the absolute script indices covered by the match,
	// in ascending order.
	MatchedIndices []int

	// Candidate is the raw match that produced this event.
	Candidate Candidate
}

// Listener receives position updates from a [Tracker]. Implementations are
// called from the tracker's drain loop, one event at a time; a slow listener
// delays subsequent batches, and a panicking listener is isolated and logged
// without disturbing the cursor.
type Listener interface {
	OnMatch(ev MatchEvent)
}

// ListenerFunc adapts a plain function to the [Listener] interface.
type ListenerFunc func(ev MatchEvent)

// OnMatch calls f(ev).
func (f ListenerFunc) OnMatch(ev MatchEvent) {
	f(ev)
}
