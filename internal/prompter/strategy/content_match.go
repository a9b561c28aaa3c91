package strategy

import (
	"ai-teleprompter-service/internal/prompter/match"
	"ai-teleprompter-service/internal/prompter/script"
)

// ContentMatch re-tokenizes the full utterance on every event and proposes
// the script position where it best aligns ahead of the cursor.
type ContentMatch struct {
	searcher    *match.Searcher
	script      *script.Script
	matchFinals bool
}

var _ Strategy = (*ContentMatch)(nil)

// NewContentMatch returns a ContentMatch strategy. When matchFinals is
// false, final events are status-only.
func NewContentMatch(searcher *match.Searcher, sc *script.Script, matchFinals bool) *ContentMatch {
	return &ContentMatch{searcher: searcher, script: sc, matchFinals: matchFinals}
}

// Name implements Strategy.
func (s *ContentMatch) Name() string { return NameContentMatch }

// Propose implements Strategy.
func (s *ContentMatch) Propose(in Input, cursor int) (Proposal, bool) {
	if in.Final && !s.matchFinals {
		return Proposal{}, false
	}
	spoken := script.Tokenize(in.Text)
	if len(spoken) == 0 {
		return Proposal{}, false
	}
	res, ok := s.searcher.FindBestMatch(spoken, cursor, s.script)
	if !ok {
		return Proposal{}, false
	}
	return Proposal{Position: res.Position, Score: res.Score}, true
}

// Reset implements Strategy. ContentMatch keeps no history.
func (s *ContentMatch) Reset() {}
