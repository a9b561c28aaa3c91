package strategy

import (
	"math"

	"ai-teleprompter-service/internal/prompter/script"
)

// Incremental advances by the number of words newly heard in the current
// utterance, scaled by sensitivity. Interim events are cumulative, so the
// word count already seen for the utterance is subtracted.
type Incremental struct {
	sensitivity float64
	utterance   int
	seen        int
}

var _ Strategy = (*Incremental)(nil)

// NewIncremental returns an Incremental strategy with the given multiplier.
func NewIncremental(sensitivity float64) *Incremental {
	return &Incremental{sensitivity: sensitivity, utterance: -1}
}

// Name implements Strategy.
func (s *Incremental) Name() string { return NameIncremental }

// Propose implements Strategy. Final events end the utterance and never
// move the cursor.
func (s *Incremental) Propose(in Input, cursor int) (Proposal, bool) {
	if in.Utterance != s.utterance {
		s.utterance = in.Utterance
		s.seen = 0
	}
	if in.Final {
		s.seen = 0
		return Proposal{}, false
	}

	count := script.CountWords(in.Text)
	delta := count - s.seen
	if delta <= 0 {
		return Proposal{}, false
	}
	s.seen = count

	advance := int(math.Round(float64(delta) * s.sensitivity))
	if advance <= 0 {
		return Proposal{}, false
	}
	if cursor < 0 {
		cursor = 0
	}
	return Proposal{Position: cursor + advance}, true
}

// Reset implements Strategy.
func (s *Incremental) Reset() {
	s.utterance = -1
	s.seen = 0
}
