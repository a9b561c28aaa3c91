package session

import (
	"errors"
	"fmt"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/prompter/strategy"
	"ai-teleprompter-service/internal/service/segment"
)

type transcriptKind int

const (
	kindPartial transcriptKind = iota
	kindFinal
	kindError
)

type transcript struct {
	kind       transcriptKind
	utterance  int
	text       string
	confidence float64
	err        error
}

// Proposal outcomes recorded in metrics.
const (
	resultApplied = "applied"
	resultNoMatch = "no_match"
	resultStale   = "stale"
)

// OnPartial implements recognition.Callback.
func (s *Session) OnPartial(utterance int, text string) {
	s.enqueue(transcript{kind: kindPartial, utterance: utterance, text: text})
}

// OnFinal implements recognition.Callback.
func (s *Session) OnFinal(utterance int, text string, confidence float64) {
	s.enqueue(transcript{kind: kindFinal, utterance: utterance, text: text, confidence: confidence})
}

// OnError implements recognition.Callback.
func (s *Session) OnError(err error) {
	s.enqueue(transcript{kind: kindError, err: err})
}

// enqueue blocks until the loop accepts the event or the session ends, so
// events from one source keep their order.
func (s *Session) enqueue(tr transcript) {
	select {
	case s.transcripts <- tr:
	case <-s.done:
	}
}

func (s *Session) handleTranscript(tr transcript) {
	if tr.kind == kindError {
		s.handleRecognitionError(tr.err)
		return
	}

	if tr.kind == kindFinal {
		s.metrics.RecordFinalTranscript()
	} else {
		s.metrics.RecordPartialTranscript()
	}

	lc, superseded, err := s.tracker.Observe(tr.utterance)
	if superseded != nil && superseded.State() == segment.StateDropped && superseded.ID() != s.errDropped {
		s.metrics.RecordUtteranceDropped("superseded")
		s.logger.Debug().Str("utteranceId", superseded.ID()).Msg("Utterance superseded before final")
	}
	if err != nil {
		s.metrics.RecordTranscriptIgnored(resultStale)
		return
	}
	if s.paused {
		s.current = lc.ID()
		s.metrics.RecordTranscriptIgnored("paused")
		return
	}
	if lc.ID() != s.current {
		s.current = lc.ID()
		s.metrics.RecordUtterance()
	}

	if err := s.advanceLifecycle(lc, tr.kind); err != nil {
		s.metrics.RecordTranscriptIgnored(ignoreReason(err))
		s.logger.Debug().Err(err).Str("utteranceId", lc.ID()).Msg("Transcript ignored")
		return
	}

	final := tr.kind == kindFinal
	if final {
		s.status = fmt.Sprintf("Heard: %q", tr.text)
	} else {
		s.status = StatusListening
	}

	prop, ok := s.strategy.Propose(strategy.Input{
		Utterance: tr.utterance,
		Text:      tr.text,
		Final:     final,
	}, s.cursor.Index())

	name := s.strategy.Name()
	moved := false
	switch {
	case !ok:
		s.metrics.RecordProposal(name, resultNoMatch)
	case s.cursor.ProposeAdvance(prop.Position):
		moved = true
		s.metrics.RecordProposal(name, resultApplied)
	default:
		s.metrics.RecordProposal(name, resultStale)
	}
	if ok && name == strategy.NameContentMatch {
		s.metrics.RecordMatchScore(prop.Score)
	}

	if final {
		ul := logging.WithUtterance(s.id, lc.ID())
		ul.Info().
			Float64("confidence", tr.confidence).
			Int("cursor", s.cursor.Index()).
			Msg("Final transcript")
		if !moved {
			s.render(models.CauseStatus)
		}
	}
}

func (s *Session) advanceLifecycle(lc *segment.Lifecycle, kind transcriptKind) error {
	if kind == kindFinal {
		return lc.Final()
	}
	return lc.Partial()
}

func ignoreReason(err error) string {
	switch {
	case errors.Is(err, segment.ErrFinalAlreadyEmitted):
		return "duplicate_final"
	case errors.Is(err, segment.ErrCannotEmitPartialAfterFinal):
		return "partial_after_final"
	case errors.Is(err, segment.ErrSegmentClosed):
		return "closed"
	default:
		return "invalid"
	}
}

// handleRecognitionError drops the open utterance. The cursor stays where
// it is and the session keeps running.
func (s *Session) handleRecognitionError(err error) {
	if lc := s.tracker.DropCurrent(); lc != nil {
		s.errDropped = lc.ID()
		s.metrics.RecordUtteranceDropped("recognition_error")
		s.logger.Warn().Err(err).Str("utteranceId", lc.ID()).Msg("Recognition error, utterance dropped")
	} else {
		s.logger.Warn().Err(err).Msg("Recognition error")
	}
	s.status = fmt.Sprintf("Recognition error: %v", err)
	s.render(models.CauseStatus)
}
