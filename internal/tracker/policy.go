package tracker

// Acceptance thresholds. The distance cap is tiered by match quality: the
// stronger the raw similarity, the farther ahead of the cursor a match may
// commit. Single-word matches get both a tighter similarity floor and a much
// tighter distance cap, since they carry the least evidence.
const (
	singleWordSimilarityFloor = 0.2

	singleWordMaxDistance = 3
	highQualityMaxDist    = 25
	goodQualityMaxDist    = 20
	defaultMaxDist        = 15

	highQualitySimilarity = 0.9
	goodQualitySimilarity = 0.8
)

// AcceptMatch decides whether candidate is strong enough and positionally
// valid to commit as the new cursor position, and commits it when so.
//
// Rejections are silent and leave cur untouched: a batch that cannot be
// placed confidently simply does not advance the cursor, which is the
// expected steady state while the speaker is mid-phrase. In particular a
// committed position may never fall below cur.LastValid, even when a stale
// batch is processed after the cursor has moved on.
//
// On acceptance, cur is advanced and the returned event carries the new
// position and the absolute script indices covered by the match.
func AcceptMatch(candidate Candidate, cur *Cursor, precision int) (MatchEvent, bool) {
	if !candidate.Found() {
		return MatchEvent{}, false
	}

	minSimilarity := float64(precision) / 100.0
	if candidate.Length == 1 {
		minSimilarity += singleWordSimilarityFloor
	}

	maxDistance := defaultMaxDist
	switch {
	case candidate.Length == 1:
		maxDistance = singleWordMaxDistance
	case candidate.RawSimilarity >= highQualitySimilarity:
		maxDistance = highQualityMaxDist
	case candidate.RawSimilarity >= goodQualitySimilarity:
		maxDistance = goodQualityMaxDist
	}

	if candidate.RawSimilarity < minSimilarity || candidate.DistanceFromOrigin > maxDistance {
		return MatchEvent{}, false
	}

	newPosition := candidate.StartIndex + candidate.Length

	// Monotonicity guard. The search window is forward-only from the origin
	// the batch was dequeued at, but a stale batch dequeued before a bigger
	// jump committed could still compute a position behind LastValid.
	if newPosition < cur.LastValid {
		return MatchEvent{}, false
	}

	if newPosition > cur.LastValid {
		cur.LastValid = newPosition
	}
	cur.Position = newPosition

	indices := make([]int, candidate.Length)
	for i := range indices {
		indices[i] = candidate.StartIndex + i
	}

	return MatchEvent{
		Position:       newPosition,
		MatchedIndices: indices,
		Candidate:      candidate,
	}, true
}
