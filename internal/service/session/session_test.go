package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/prompter/strategy"
	"ai-teleprompter-service/internal/renderer"
	"ai-teleprompter-service/internal/service/recognition/mock"
)

const alphabet = "alpha bravo charlie delta echo foxtrot golf hotel india juliet"

type recorder struct {
	mu  sync.Mutex
	evs []models.CursorEvent
}

func (r *recorder) Render(ev models.CursorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recorder) causes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Cause)
	}
	return out
}

func (r *recorder) last() models.CursorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evs[len(r.evs)-1]
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func incrementalConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy.Strategy = strategy.NameIncremental
	return cfg
}

// newStarted builds a session and starts its cursor without running the
// loop, so handlers can be driven directly.
func newStarted(t *testing.T, text string, cfg Config) (*Session, *recorder, *fakeClock) {
	t.Helper()
	rec := &recorder{}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s, err := NewFromText(text, cfg, equivalence.Default(),
		WithID("sess-1"),
		WithRenderer(rec),
		WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewFromText: %v", err)
	}
	s.status = StatusListening
	s.cursor.Start()
	return s, rec, clock
}

func partial(u int, text string) transcript {
	return transcript{kind: kindPartial, utterance: u, text: text}
}

func final(u int, text string) transcript {
	return transcript{kind: kindFinal, utterance: u, text: text, confidence: 0.9}
}

func TestNew_RejectsEmptyScript(t *testing.T) {
	if _, err := New(nil, DefaultConfig(), nil); !errors.Is(err, script.ErrScriptEmpty) {
		t.Errorf("expected ErrScriptEmpty for nil script, got %v", err)
	}
	if _, err := NewFromText("  \n\t ", DefaultConfig(), nil); !errors.Is(err, script.ErrScriptEmpty) {
		t.Errorf("expected ErrScriptEmpty for blank text, got %v", err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy.Strategy = "guess"
	cfg.Strategy.Sensitivity = 0

	_, err := NewFromText(alphabet, cfg, nil)
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if !errors.Is(err, strategy.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := NewFromText(alphabet, Config{Strategy: strategy.DefaultConfig()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID() == "" {
		t.Error("expected a generated session id")
	}
	if s.cfg.SkipWords != 10 {
		t.Errorf("expected skip size 10, got %d", s.cfg.SkipWords)
	}

	snap := s.Snapshot()
	if snap.Cursor != -1 || snap.Running || snap.Status != StatusReady {
		t.Errorf("unexpected initial snapshot %+v", snap)
	}
	if snap.ScriptLength != 10 || snap.Strategy != strategy.NameContentMatch {
		t.Errorf("unexpected script info in snapshot %+v", snap)
	}
}

func TestIncremental_PartialsAdvance(t *testing.T) {
	s, rec, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(0, "alpha"))
	s.handleTranscript(partial(0, "alpha bravo"))
	s.handleTranscript(partial(0, "alpha bravo charlie"))
	s.handleTranscript(final(0, "alpha bravo charlie"))

	if got := s.cursor.Index(); got != 3 {
		t.Errorf("expected cursor 3, got %d", got)
	}
	if got := s.cursor.SpokenWords(); got != 3 {
		t.Errorf("expected 3 spoken words, got %d", got)
	}
	want := []string{"start", "voice", "voice", "voice", models.CauseStatus}
	if diff := cmp.Diff(want, rec.causes()); diff != "" {
		t.Errorf("causes mismatch (-want +got):\n%s", diff)
	}
	if got := rec.last().Status; got != `Heard: "alpha bravo charlie"` {
		t.Errorf("expected heard status, got %q", got)
	}
}

func TestContentMatch_JumpsToAlignedWords(t *testing.T) {
	s, _, _ := newStarted(t, alphabet, DefaultConfig())

	s.handleTranscript(partial(0, "charlie delta"))
	if got := s.cursor.Index(); got != 2 {
		t.Fatalf("expected cursor 2, got %d", got)
	}

	// Nothing similar ahead of the cursor.
	s.handleTranscript(partial(0, "zulu yankee"))
	if got := s.cursor.Index(); got != 2 {
		t.Errorf("expected cursor to stay at 2, got %d", got)
	}

	s.handleTranscript(final(0, "golf hotel"))
	if got := s.cursor.Index(); got != 6 {
		t.Errorf("expected final to align at 6, got %d", got)
	}
}

func TestContentMatch_NeverMovesBackward(t *testing.T) {
	s, _, _ := newStarted(t, alphabet, DefaultConfig())

	s.handleTranscript(partial(0, "echo foxtrot"))
	s.handleTranscript(partial(1, "alpha bravo"))

	if got := s.cursor.Index(); got != 4 {
		t.Errorf("expected cursor to stay at 4, got %d", got)
	}
}

func TestTranscript_StaleUtteranceIgnored(t *testing.T) {
	s, _, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(1, "alpha bravo"))
	s.handleTranscript(partial(0, "alpha bravo charlie delta"))

	if got := s.cursor.Index(); got != 2 {
		t.Errorf("expected stale utterance to be ignored, cursor 2, got %d", got)
	}
}

func TestTranscript_PartialAfterFinalIgnored(t *testing.T) {
	s, _, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(0, "alpha"))
	s.handleTranscript(final(0, "alpha"))
	s.handleTranscript(partial(0, "alpha bravo charlie"))
	s.handleTranscript(final(0, "alpha bravo charlie"))

	if got := s.cursor.Index(); got != 1 {
		t.Errorf("expected cursor 1, got %d", got)
	}
}

func TestTranscript_RecognitionErrorKeepsCursor(t *testing.T) {
	s, rec, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(0, "alpha bravo"))
	s.handleTranscript(transcript{kind: kindError, err: errors.New("network")})

	if got := s.cursor.Index(); got != 2 {
		t.Errorf("expected cursor 2, got %d", got)
	}
	if got := rec.last().Status; got != "Recognition error: network" {
		t.Errorf("unexpected status %q", got)
	}

	// The dropped utterance stays dropped; the next one advances.
	s.handleTranscript(partial(0, "alpha bravo charlie"))
	s.handleTranscript(partial(1, "charlie"))
	if got := s.cursor.Index(); got != 3 {
		t.Errorf("expected cursor 3, got %d", got)
	}
}

func TestControls_SkipForwardRewind(t *testing.T) {
	cfg := incrementalConfig()
	cfg.SkipWords = 3
	s, _, _ := newStarted(t, alphabet, cfg)

	s.handleCommand(command{kind: cmdSkip, delta: cfg.SkipWords})
	if got := s.cursor.Index(); got != 3 {
		t.Fatalf("expected cursor 3, got %d", got)
	}
	s.handleCommand(command{kind: cmdSkip, delta: 100})
	if got := s.cursor.Index(); got != 9 {
		t.Errorf("expected cursor clamped to 9, got %d", got)
	}
	s.handleCommand(command{kind: cmdSkip, delta: -100})
	if got := s.cursor.Index(); got != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", got)
	}
	if got := s.cursor.SpokenWords(); got != 0 {
		t.Errorf("expected skips not to count as spoken, got %d", got)
	}
}

func TestControls_ResetRetiresUtterance(t *testing.T) {
	s, rec, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(0, "alpha bravo charlie"))
	s.handleCommand(command{kind: cmdReset})

	if got := s.cursor.Index(); got != 0 {
		t.Fatalf("expected cursor 0 after reset, got %d", got)
	}
	if rec.last().Cause != "reset" {
		t.Errorf("expected reset event, got %q", rec.last().Cause)
	}

	// Late words from before the reset must not move the cursor.
	s.handleTranscript(partial(0, "alpha bravo charlie delta"))
	if got := s.cursor.Index(); got != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", got)
	}

	s.handleTranscript(partial(1, "alpha"))
	if got := s.cursor.Index(); got != 1 {
		t.Errorf("expected cursor 1, got %d", got)
	}
}

func TestControls_PauseResume(t *testing.T) {
	s, rec, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleTranscript(partial(0, "alpha"))
	s.handleCommand(command{kind: cmdPause})
	if !s.paused || s.Snapshot().Status != StatusPaused {
		t.Fatalf("expected paused snapshot, got %+v", s.Snapshot())
	}

	s.handleTranscript(partial(0, "alpha bravo"))
	s.handleTranscript(partial(1, "charlie delta"))
	if got := s.cursor.Index(); got != 1 {
		t.Errorf("expected paused cursor to stay at 1, got %d", got)
	}

	s.handleCommand(command{kind: cmdTogglePause})
	if s.paused {
		t.Fatal("expected toggle to resume")
	}
	if got := rec.last().Cause; got != models.CauseResume {
		t.Errorf("expected resume event, got %q", got)
	}

	// Utterance 1 was heard while paused.
	s.handleTranscript(partial(1, "charlie delta echo"))
	if got := s.cursor.Index(); got != 1 {
		t.Errorf("expected utterance heard while paused to be ignored, got %d", got)
	}
	s.handleTranscript(partial(2, "bravo"))
	if got := s.cursor.Index(); got != 2 {
		t.Errorf("expected cursor 2, got %d", got)
	}
}

func TestControls_PauseIsIdempotent(t *testing.T) {
	s, rec, _ := newStarted(t, alphabet, incrementalConfig())

	s.handleCommand(command{kind: cmdPause})
	n := len(rec.causes())
	s.handleCommand(command{kind: cmdPause})
	if len(rec.causes()) != n {
		t.Error("expected a second pause to render nothing")
	}
	s.handleCommand(command{kind: cmdResume})
	s.handleCommand(command{kind: cmdResume})
	if s.paused {
		t.Error("expected resumed session")
	}
}

func TestTick_WordsPerMinute(t *testing.T) {
	s, rec, clock := newStarted(t, alphabet, incrementalConfig())

	s.handleTick()
	if len(rec.causes()) != 1 {
		t.Fatal("expected no tick before time elapses")
	}

	s.handleTranscript(partial(0, "alpha bravo charlie"))
	clock.Advance(30 * time.Second)
	s.handleTick()

	last := rec.last()
	if last.Cause != models.CauseTick || last.WordsPerMinute != 6 {
		t.Errorf("expected tick with 6 wpm, got %+v", last)
	}

	s.handleCommand(command{kind: cmdPause})
	n := len(rec.causes())
	clock.Advance(30 * time.Second)
	s.handleTick()
	if len(rec.causes()) != n {
		t.Error("expected ticks to be skipped while paused")
	}
}

func TestControls_RequireRunningLoop(t *testing.T) {
	s, err := NewFromText(alphabet, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Forward(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.Skip(context.Background(), 0); !errors.Is(err, ErrInvalidSkip) {
		t.Errorf("expected ErrInvalidSkip, got %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_MockSourceReadsWholeScript(t *testing.T) {
	sc, err := script.New(alphabet)
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	src := mock.FromScript(sc, 3, mock.WithInterval(time.Millisecond))
	rec := &recorder{}
	ticks := make(chan time.Time)

	s, err := New(sc, incrementalConfig(), equivalence.Default(),
		WithSource(src),
		WithRenderer(renderer.Multi{rec}),
		WithTicks(ticks),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	waitFor(t, "script end", func() bool { return s.Snapshot().Cursor == 9 })
	<-src.Done()

	snap := s.Snapshot()
	if !snap.Running || snap.Progress != 100 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if _, err := s.Rewind(ctx); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if got := s.Snapshot().Cursor; got != 0 {
		t.Errorf("expected rewind to clamp to 0, got %d", got)
	}
	if _, err := s.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !s.Snapshot().Paused {
		t.Error("expected paused snapshot")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Running() {
		t.Error("expected session to stop")
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if _, err := s.Reset(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}
