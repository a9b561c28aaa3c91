package session

import (
	"context"
	"errors"
	"fmt"

	"ai-teleprompter-service/internal/models"
)

// ErrInvalidSkip is returned for a zero-word skip.
var ErrInvalidSkip = errors.New("skip must move at least one word")

type commandKind int

const (
	cmdSkip commandKind = iota
	cmdReset
	cmdPause
	cmdResume
	cmdTogglePause
)

type command struct {
	kind  commandKind
	delta int
	reply chan error
}

// Navigation operations recorded in metrics.
const (
	opSkip   = "skip"
	opReset  = "reset"
	opPause  = "pause"
	opResume = "resume"
)

// Skip moves the cursor by delta words. Skipped words never count toward
// the speaking rate.
func (s *Session) Skip(ctx context.Context, delta int) (Snapshot, error) {
	if delta == 0 {
		return s.Snapshot(), ErrInvalidSkip
	}
	return s.do(ctx, command{kind: cmdSkip, delta: delta})
}

// Forward skips ahead by the configured skip size.
func (s *Session) Forward(ctx context.Context) (Snapshot, error) {
	return s.Skip(ctx, s.cfg.SkipWords)
}

// Rewind skips back by the configured skip size.
func (s *Session) Rewind(ctx context.Context) (Snapshot, error) {
	return s.Skip(ctx, -s.cfg.SkipWords)
}

// Reset returns to the first word and discards utterances in progress.
func (s *Session) Reset(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdReset})
}

// Pause stops transcripts from moving the cursor.
func (s *Session) Pause(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdPause})
}

// Resume re-enables voice advance. Utterances heard before resuming are
// ignored for the rest of the session.
func (s *Session) Resume(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdResume})
}

// TogglePause flips between paused and listening.
func (s *Session) TogglePause(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdTogglePause})
}

func (s *Session) do(ctx context.Context, cmd command) (Snapshot, error) {
	if !s.running.Load() {
		return s.Snapshot(), ErrSessionClosed
	}
	cmd.reply = make(chan error, 1)
	select {
	case s.commands <- cmd:
	case <-s.done:
		return s.Snapshot(), ErrSessionClosed
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
	// The loop publishes a fresh snapshot before it replies.
	select {
	case err := <-cmd.reply:
		return s.Snapshot(), err
	case <-s.done:
		return s.Snapshot(), ErrSessionClosed
	}
}

func (s *Session) handleCommand(cmd command) error {
	switch cmd.kind {
	case cmdSkip:
		s.metrics.RecordNavigation(opSkip)
		s.cursor.Skip(cmd.delta)
	case cmdReset:
		s.metrics.RecordNavigation(opReset)
		s.tracker.RetireAll()
		s.strategy.Reset()
		s.current = ""
		s.wpm = 0
		s.cursor.Reset()
		s.logger.Info().Msg("Session reset")
	case cmdPause:
		s.setPaused(true)
	case cmdResume:
		s.setPaused(false)
	case cmdTogglePause:
		s.setPaused(!s.paused)
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
	s.publishSnapshot()
	return nil
}

func (s *Session) setPaused(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	s.metrics.RecordPaused(paused)
	if paused {
		s.metrics.RecordNavigation(opPause)
		s.status = StatusPaused
		s.render(models.CausePause)
	} else {
		s.metrics.RecordNavigation(opResume)
		s.tracker.RetireAll()
		s.strategy.Reset()
		s.current = ""
		s.status = StatusListening
		s.render(models.CauseResume)
	}
	s.logger.Info().Bool("paused", paused).Msg("Pause toggled")
}
