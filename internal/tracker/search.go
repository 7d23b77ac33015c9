package tracker

import (
	"strings"

	"github.com/MrWong99/cuefollow/internal/tracker/similarity"
)

// Scoring constants. These are load-bearing: the acceptance policy's
// thresholds and the search's tie-break behavior are calibrated against
// them, so changing one in isolation shifts where the cursor lands on real
// transcripts.
const (
	// singleWordGate is added to the base threshold when testing one-word
	// segments. Single spoken words are the dominant source of false jumps,
	// so they must clear a tighter gate before being scored at all.
	singleWordGate = 0.15

	// distancePenaltyPerWord is subtracted from the raw similarity for each
	// word of distance between the search origin and the candidate start.
	distancePenaltyPerWord = 0.05

	// multiWordBonus rewards any candidate longer than one word.
	multiWordBonus = 0.1

	// longSegmentBonus rewards candidates of six or more words, and again at
	// ten or more.
	longSegmentBonus  = 0.05
	longSegmentLength = 6
	veryLongLength    = 10

	// perfectStopLength is the minimum length at which a raw similarity of
	// 1.0 ends the current phase early: a perfect match that long cannot be
	// beaten by anything found later in the phase.
	perfectStopLength = 8

	// fastSkipScore and fastSkipLength control skipping the thorough phase
	// entirely: a fast-phase candidate scoring above fastSkipScore with at
	// least fastSkipLength words is good enough that widening the window
	// would only spend budget.
	fastSkipScore  = 0.8
	fastSkipLength = 8
)

// searchPhase bounds one pass of the segment search. Phases are tried in
// order: a cheap narrow pass first, then a wider pass for noisy transcripts.
type searchPhase struct {
	name             string
	maxDistance      int
	maxSegmentLength int
}

// searchPhases is the fixed phase sequence. The fast phase handles the
// steady state (the speaker is near the cursor); the thorough phase recovers
// after skipped sentences or transcription dropouts.
var searchPhases = []searchPhase{
	{name: "fast", maxDistance: 10, maxSegmentLength: 6},
	{name: "thorough", maxDistance: 25, maxSegmentLength: 12},
}

// Searcher finds the best-scoring contiguous script segment for a spoken
// batch. It is stateless apart from its scorer and safe for concurrent use
// when the scorer is.
type Searcher struct {
	scorer similarity.Scorer
}

// NewSearcher creates a Searcher using the given scorer. A nil scorer
// defaults to [similarity.Levenshtein].
func NewSearcher(scorer similarity.Scorer) *Searcher {
	if scorer == nil {
		scorer = similarity.Levenshtein{}
	}
	return &Searcher{scorer: scorer}
}

// FindBestMatch searches script for the segment that best corresponds to
// spoken, starting at origin and looking forward only. precision (50–95)
// sets the base similarity threshold: candidates below precision/100 (plus
// [singleWordGate] for one-word segments) are never scored.
//
// Candidate segment lengths are tried longest-first and ties on Score keep
// the first candidate found, which biases the result toward longer matches.
// The returned candidate has StartIndex -1 when nothing qualified.
func (s *Searcher) FindBestMatch(spoken []string, script *Script, origin, precision int) Candidate {
	best := noCandidate()
	if script == nil || len(spoken) == 0 || origin >= script.Len() {
		return best
	}

	base := float64(precision) / 100.0

	lowered := make([]string, len(spoken))
	for i, w := range spoken {
		lowered[i] = strings.ToLower(w)
	}

	for pi, phase := range searchPhases {
		window := script.Len() - origin
		if phase.maxDistance < window {
			window = phase.maxDistance
		}
		maxLen := len(lowered)
		if phase.maxSegmentLength < maxLen {
			maxLen = phase.maxSegmentLength
		}

	phase:
		for segLen := maxLen; segLen >= 1; segLen-- {
			spokenSeg := strings.Join(lowered[:segLen], " ")

			required := base
			if segLen == 1 {
				required += singleWordGate
			}

			for off := 0; off < window; off++ {
				start := origin + off
				if start+segLen > script.Len() {
					continue
				}

				raw := s.scorer.Similarity(spokenSeg, script.segment(start, segLen))
				if raw < required {
					continue
				}

				score := raw - float64(off)*distancePenaltyPerWord + lengthBonus(segLen)
				if !best.Found() || score > best.Score {
					best = Candidate{
						StartIndex:         start,
						Length:             segLen,
						RawSimilarity:      raw,
						Score:              score,
						DistanceFromOrigin: off,
					}
				}

				// A perfect long match ends the phase: no shorter segment or
				// farther position can outscore it.
				if raw >= 1.0 && segLen >= perfectStopLength {
					break phase
				}
			}
		}

		if pi == 0 && best.Found() && best.Score > fastSkipScore && best.Length >= fastSkipLength {
			break
		}
	}

	return best
}

// lengthBonus returns the score bonus for a candidate of the given segment
// length. Longer segments are rewarded to counteract the distance penalty
// and to keep single-word false positives from winning ties.
func lengthBonus(segLen int) float64 {
	bonus := 0.0
	if segLen > 1 {
		bonus += multiWordBonus
	}
	if segLen >= longSegmentLength {
		bonus += longSegmentBonus
	}
	if segLen >= veryLongLength {
		bonus += longSegmentBonus
	}
	return bonus
}
