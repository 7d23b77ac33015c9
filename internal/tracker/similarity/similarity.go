// Package similarity provides normalized string-similarity scoring for the
// segment search engine.
//
// The default scorer ([Levenshtein]) computes classic single-character
// insert/delete/substitute edit distance and normalizes it into [0, 1]:
//
//	similarity = (maxLen - editDistance(a, b)) / maxLen
//
// A cheap rejection short-circuits the distance computation entirely when the
// longer input is more than three times the length of the shorter one — such
// pairs can never correspond to the same spoken phrase, and skipping them
// keeps the per-batch search budget tight.
//
// An alternative [JaroWinkler] scorer backed by matchr is available for
// callers who prefer prefix-weighted similarity. It is NOT the default: the
// tracker's acceptance thresholds are calibrated against the normalized
// edit-distance scale.
//
// All scorers are pure and safe for concurrent use.
package similarity

// Scorer computes a normalized similarity score between two phrases.
//
// Implementations must be deterministic and side-effect free: Similarity
// returns a value in [0.0, 1.0] where 1.0 means the phrases are identical.
// Callers pass already-lowercased input; scorers do not case-fold.
type Scorer interface {
	Similarity(a, b string) float64
}

// lengthRatioLimit is the maximum longer/shorter length ratio for which a
// similarity score is computed. Beyond it the score is 0 without running the
// distance algorithm.
const lengthRatioLimit = 3

// Levenshtein scores phrases by normalized edit distance. It is the default
// scorer and the one the acceptance-policy thresholds are tuned for.
//
// Distances are measured over runes, not bytes, so multi-byte words edit at
// the character level; both inputs are converted to rune slices up front. The
// distance itself runs on two rolling rows swapped each outer iteration, so
// working memory beyond those conversions stays O(min(len(a), len(b)))
// regardless of input size.
type Levenshtein struct{}

var _ Scorer = Levenshtein{}

// Similarity returns the normalized edit-distance similarity of a and b.
//
// Identical strings score 1.0. When the longer string is more than three
// times the length of the shorter (including the empty-vs-non-empty case),
// the result is 0.0 and no distance is computed.
func (Levenshtein) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	long, short := []rune(a), []rune(b)
	if len(long) < len(short) {
		long, short = short, long
	}
	if len(long) > lengthRatioLimit*len(short) {
		return 0.0
	}

	// Two rolling rows sized to the shorter string. prev holds row i-1,
	// curr is filled for row i, then the two are swapped.
	prev := make([]int, len(short)+1)
	curr := make([]int, len(short)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(long); i++ {
		curr[0] = i
		for j := 1; j <= len(short); j++ {
			cost := 1
			if long[i-1] == short[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	dist := prev[len(short)]
	return float64(len(long)-dist) / float64(len(long))
}
