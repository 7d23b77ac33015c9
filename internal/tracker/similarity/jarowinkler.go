package similarity

import "github.com/antzucaro/matchr"

// JaroWinkler scores phrases with Jaro-Winkler similarity, which weights
// agreement in the leading characters more heavily than edit distance does.
// Useful when the speech source tends to get word onsets right and trail off
// at word endings.
//
// Scores from this scorer and from [Levenshtein] are not interchangeable:
// Jaro-Winkler is systematically more generous on short strings, so sessions
// using it typically want a higher precision setting.
type JaroWinkler struct{}

var _ Scorer = JaroWinkler{}

// Similarity returns the Jaro-Winkler similarity of a and b. Identical
// strings score 1.0; pairs exceeding the 3× length ratio score 0.0 so both
// scorers share the same cheap-rejection contract.
func (JaroWinkler) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	long, short := len(a), len(b)
	if long < short {
		long, short = short, long
	}
	if long > lengthRatioLimit*short {
		return 0.0
	}

	return matchr.JaroWinkler(a, b, false)
}
