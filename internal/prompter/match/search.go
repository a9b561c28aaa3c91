package match

import "ai-teleprompter-service/internal/prompter/script"

// Result describes the best alignment found by [Searcher.FindBestMatch].
type Result struct {
	Position int // Script index where the spoken window starts
	Score    int // Number of matching aligned positions
}

// Searcher scans a bounded lookahead window of the script for the start
// position that best aligns with the spoken tokens.
type Searcher struct {
	scorer        *Scorer
	minMatchCount int
	windowSize    int
}

// NewSearcher returns a Searcher. windowSize <= 0 searches to the end of the
// script; minMatchCount < 1 is treated as 1.
func NewSearcher(scorer *Scorer, minMatchCount, windowSize int) *Searcher {
	if minMatchCount < 1 {
		minMatchCount = 1
	}
	return &Searcher{
		scorer:        scorer,
		minMatchCount: minMatchCount,
		windowSize:    windowSize,
	}
}

// Required returns the score a candidate needs for an utterance of n words.
func (s *Searcher) Required(n int) int {
	return min(s.minMatchCount, n)
}

// FindBestMatch scores every candidate start from cursor up to the window
// cap and returns the highest scoring one. Ties keep the earliest position.
// ok is false when no candidate reaches Required(len(spoken)).
func (s *Searcher) FindBestMatch(spoken []script.Token, cursor int, sc *script.Script) (Result, bool) {
	if len(spoken) == 0 || sc == nil {
		return Result{}, false
	}
	if cursor < 0 {
		cursor = 0
	}

	end := sc.Len()
	if s.windowSize > 0 && cursor+s.windowSize < end {
		end = cursor + s.windowSize
	}

	best := Result{Position: -1, Score: -1}
	for i := cursor; i < end; i++ {
		score := s.scorer.Score(sc.Window(i, len(spoken)), spoken)
		if score > best.Score {
			best = Result{Position: i, Score: score}
		}
	}

	if best.Position < 0 || best.Score < s.Required(len(spoken)) {
		return Result{}, false
	}
	return best, true
}
