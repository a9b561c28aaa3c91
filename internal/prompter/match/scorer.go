// Package match aligns spoken word tokens against a bounded window of
// upcoming script text.
package match

import (
	"strings"

	"github.com/antzucaro/matchr"

	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/script"
)

const defaultPhoneticThreshold = 0.85

// ScorerOption is a functional option for configuring a [Scorer].
type ScorerOption func(*Scorer)

// WithPhonetic makes aligned pairs that share a Double Metaphone code and
// reach the Jaro-Winkler threshold count as a match. Disabled by default.
func WithPhonetic(enabled bool) ScorerOption {
	return func(s *Scorer) {
		s.phonetic = enabled
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler similarity for the
// phonetic rule. Default: 0.85.
func WithPhoneticThreshold(threshold float64) ScorerOption {
	return func(s *Scorer) {
		s.phoneticThreshold = threshold
	}
}

// Scorer counts aligned positions where a script token and a spoken token
// match. It is read-only after construction.
type Scorer struct {
	table             *equivalence.Table
	phonetic          bool
	phoneticThreshold float64
}

// NewScorer returns a Scorer using table for equivalence lookups. A nil
// table falls back to equivalence.Default().
func NewScorer(table *equivalence.Table, opts ...ScorerOption) *Scorer {
	if table == nil {
		table = equivalence.Default()
	}
	s := &Scorer{
		table:             table,
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score returns the number of aligned positions j, up to the shorter of the
// two windows, where the tokens match. A pair matches when the script form
// equals, contains, or is contained in the spoken form, or when the spoken
// form is in the script token's equivalence set.
//
// Substring matching lets short words such as "a" match inside longer ones.
// That loss of precision is accepted in exchange for tolerating truncated
// recognition.
func (s *Scorer) Score(scriptWindow, spoken []script.Token) int {
	n := min(len(scriptWindow), len(spoken))
	count := 0
	for j := 0; j < n; j++ {
		if s.Matches(scriptWindow[j].Norm, spoken[j].Norm) {
			count++
		}
	}
	return count
}

// Matches reports whether a single normalized script word and spoken word match.
func (s *Scorer) Matches(written, heard string) bool {
	if written == "" || heard == "" {
		return false
	}
	if strings.Contains(written, heard) || strings.Contains(heard, written) {
		return true
	}
	if s.table.Equivalent(written, heard) {
		return true
	}
	return s.phonetic && s.soundsAlike(written, heard)
}

func (s *Scorer) soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	if !codesOverlap(ap, as, bp, bs) {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= s.phoneticThreshold
}

func codesOverlap(ap, as, bp, bs string) bool {
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}
