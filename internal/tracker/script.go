package tracker

import "strings"

// Script is the immutable ordered word sequence being read during a session.
// Word comparison throughout the tracker is case-insensitive, so the script
// keeps a lowercased view alongside the original words; the lowercased view
// is what the search engine joins into candidate segments.
//
// A Script is never mutated after construction. Loading a new script into a
// [Tracker] starts a new session and resets the cursor.
type Script struct {
	words []string
	lower []string
}

// NewScript builds a Script from the given words. Each word is trimmed of
// surrounding whitespace; words that become empty after trimming are dropped
// so that script indices always address a real word.
func NewScript(words []string) *Script {
	s := &Script{
		words: make([]string, 0, len(words)),
		lower: make([]string, 0, len(words)),
	}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		s.words = append(s.words, w)
		s.lower = append(s.lower, strings.ToLower(w))
	}
	return s
}

// NewScriptFromText builds a Script by splitting text on whitespace.
func NewScriptFromText(text string) *Script {
	return NewScript(strings.Fields(text))
}

// Len returns the number of words in the script.
func (s *Script) Len() int {
	return len(s.words)
}

// Word returns the original (case-preserved) word at index i.
func (s *Script) Word(i int) string {
	return s.words[i]
}

// Words returns a copy of the script's words in order.
func (s *Script) Words() []string {
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// segment joins the lowercased words in [start, start+length) with single
// spaces. Callers must ensure the range is within bounds.
func (s *Script) segment(start, length int) string {
	return strings.Join(s.lower[start:start+length], " ")
}
