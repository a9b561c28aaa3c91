// Package strategy turns transcript snippets into proposed cursor positions.
//
// Two interchangeable strategies are provided behind [Strategy]:
//
//   - [Incremental] treats every new interim word as one more word read and
//     proposes advancing by a sensitivity-scaled count.
//   - [ContentMatch] aligns the whole utterance so far against a bounded
//     window of upcoming script text.
//
// Strategies only propose; the cursor controller decides what is applied.
// They are not safe for concurrent use and are owned by a session loop.
package strategy

import (
	"fmt"

	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/match"
	"ai-teleprompter-service/internal/prompter/script"
)

// Input is one transcript event as seen by a strategy.
type Input struct {
	Utterance int    // Recognition-assigned utterance index
	Text      string // Cumulative text of the utterance so far
	Final     bool
}

// Proposal is a strategy's suggested cursor position.
type Proposal struct {
	Position int
	Score    int // Match score, content-match only
}

// Strategy is the capability consumed by the session loop.
type Strategy interface {
	// Name returns the configured strategy name.
	Name() string

	// Propose returns a candidate cursor position for in, or ok=false for
	// "no change". cursor is the current position.
	Propose(in Input, cursor int) (p Proposal, ok bool)

	// Reset forgets per-utterance history.
	Reset()
}

// New validates cfg and builds the selected strategy over sc.
func New(cfg Config, sc *script.Script, table *equivalence.Table) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, script.ErrScriptEmpty
	}

	switch cfg.Strategy {
	case NameIncremental:
		return NewIncremental(cfg.Sensitivity), nil
	case NameContentMatch:
		scorer := match.NewScorer(table, match.WithPhonetic(cfg.Phonetic))
		searcher := match.NewSearcher(scorer, cfg.MinMatchCount, cfg.SearchWindowSize)
		return NewContentMatch(searcher, sc, cfg.MatchFinals), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}
