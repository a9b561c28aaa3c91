// Package session runs one teleprompter session.
//
// A single goroutine (Run) owns the script, the advance strategy, the
// cursor and the utterance tracker. Transcript callbacks and manual
// controls are delivered to it over channels, so no core state is shared.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/observability/metrics"
	"ai-teleprompter-service/internal/prompter/cursor"
	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/prompter/strategy"
	"ai-teleprompter-service/internal/renderer"
	"ai-teleprompter-service/internal/service/recognition"
	"ai-teleprompter-service/internal/service/segment"
)

var (
	// ErrSessionClosed is returned by controls when the loop is not running.
	ErrSessionClosed = errors.New("session is not running")
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("session already started")
)

// Status lines shown to the speaker.
const (
	StatusReady     = "Ready"
	StatusListening = "Listening..."
	StatusPaused    = "Paused"
)

const eventBuffer = 64

// Config tunes a session.
type Config struct {
	Strategy    strategy.Config
	SkipWords   int
	WPMInterval time.Duration
}

// DefaultConfig returns the defaults used by the service.
func DefaultConfig() Config {
	return Config{
		Strategy:    strategy.DefaultConfig(),
		SkipWords:   10,
		WPMInterval: time.Second,
	}
}

// Snapshot is a point-in-time view of the session, safe to read from any
// goroutine.
type Snapshot struct {
	SessionID      string  `json:"sessionId"`
	Cursor         int     `json:"cursor"`
	Progress       float64 `json:"progress"`
	WordsPerMinute int     `json:"wordsPerMinute"`
	SpokenWords    int     `json:"spokenWords"`
	Paused         bool    `json:"paused"`
	Running        bool    `json:"running"`
	Strategy       string  `json:"strategy"`
	ScriptLength   int     `json:"scriptLength"`
	Status         string  `json:"status"`
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id. The default is a new xid.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRenderer sets where cursor events go.
func WithRenderer(r renderer.Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// WithSource attaches a recognition source that Run starts and closes.
func WithSource(src recognition.Source) Option {
	return func(s *Session) { s.source = src }
}

// WithClock replaces time.Now for the cursor and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTicks replaces the words-per-minute ticker.
func WithTicks(ticks <-chan time.Time) Option {
	return func(s *Session) { s.ticks = ticks }
}

// Session is one teleprompter run over a fixed script.
type Session struct {
	id       string
	cfg      Config
	script   *script.Script
	strategy strategy.Strategy
	cursor   *cursor.Controller
	tracker  *segment.Tracker
	renderer renderer.Renderer
	source   recognition.Source
	now      func() time.Time
	ticks    <-chan time.Time

	transcripts chan transcript
	commands    chan command
	done        chan struct{}
	started     atomic.Bool
	running     atomic.Bool
	snapshot    atomic.Pointer[Snapshot]

	// Owned by the Run goroutine.
	paused     bool
	status     string
	wpm        int
	current    string // id of the utterance last processed
	errDropped string // id of the utterance dropped by the last recognition error

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

var _ recognition.Callback = (*Session)(nil)

// New validates cfg and builds a session over sc. An empty script and an
// invalid configuration are both rejected here.
func New(sc *script.Script, cfg Config, table *equivalence.Table, opts ...Option) (*Session, error) {
	if sc == nil || sc.Len() == 0 {
		return nil, script.ErrScriptEmpty
	}
	st, err := strategy.New(cfg.Strategy, sc, table)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	if cfg.SkipWords < 1 {
		cfg.SkipWords = DefaultConfig().SkipWords
	}

	s := &Session{
		cfg:         cfg,
		script:      sc,
		strategy:    st,
		now:         time.Now,
		transcripts: make(chan transcript, eventBuffer),
		commands:    make(chan command),
		done:        make(chan struct{}),
		status:      StatusReady,
		metrics:     metrics.DefaultMetrics,
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = xid.New().String()
	}
	if s.renderer == nil {
		s.renderer = renderer.Multi(nil)
	}

	s.logger = logging.WithSession(s.id)
	s.tracker = segment.NewTracker(s.id)
	s.cursor = cursor.New(sc.Len(), cursor.NotifierFunc(s.onCursor), cursor.WithClock(s.now))
	s.publishSnapshot()
	return s, nil
}

// NewFromText tokenizes text and builds a session over it.
func NewFromText(text string, cfg Config, table *equivalence.Table, opts ...Option) (*Session, error) {
	sc, err := script.New(text)
	if err != nil {
		return nil, err
	}
	return New(sc, cfg, table, opts...)
}

func (s *Session) ID() string { return s.id }

// Script returns the session's script.
func (s *Session) Script() *script.Script { return s.script }

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Running reports whether the event loop is active.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run starts the cursor and processes events until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(s.done)

	s.metrics.RecordSessionStart()
	defer s.metrics.RecordSessionEnd()

	s.status = StatusListening
	s.cursor.Start()
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		s.publishSnapshot()
	}()

	s.logger.Info().
		Str("strategy", s.strategy.Name()).
		Int("scriptLength", s.script.Len()).
		Msg("Session started")

	if s.source != nil {
		if err := s.source.Start(ctx, s); err != nil {
			s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("Recognition source failed to start")
			return fmt.Errorf("start recognition source %s: %w", s.source.Name(), err)
		}
		defer func() {
			if err := s.source.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("Error closing recognition source")
			}
		}()
	}

	ticks := s.ticks
	if ticks == nil && s.cfg.WPMInterval > 0 {
		ticker := time.NewTicker(s.cfg.WPMInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().
				Int("cursor", s.cursor.Index()).
				Int("spokenWords", s.cursor.SpokenWords()).
				Msg("Session stopped")
			return nil
		case tr := <-s.transcripts:
			s.handleTranscript(tr)
		case cmd := <-s.commands:
			cmd.reply <- s.handleCommand(cmd)
		case <-ticks:
			s.handleTick()
		}
		s.publishSnapshot()
	}
}

func (s *Session) publishSnapshot() {
	snap := Snapshot{
		SessionID:      s.id,
		Cursor:         s.cursor.Index(),
		Progress:       s.cursor.Progress(),
		WordsPerMinute: s.wpm,
		SpokenWords:    s.cursor.SpokenWords(),
		Paused:         s.paused,
		Running:        s.running.Load(),
		Strategy:       s.strategy.Name(),
		ScriptLength:   s.script.Len(),
		Status:         s.status,
	}
	s.snapshot.Store(&snap)
}

// onCursor turns every applied cursor change into a renderer event.
func (s *Session) onCursor(p cursor.Position) {
	s.metrics.RecordCursor(p.Index, p.Progress)
	s.render(string(p.Cause))
}

func (s *Session) render(cause string) {
	s.renderer.Render(models.CursorEvent{
		EventType:      models.EventCursor,
		SessionID:      s.id,
		Timestamp:      s.now().UnixMilli(),
		Index:          s.cursor.Index(),
		Progress:       s.cursor.Progress(),
		Cause:          cause,
		WordsPerMinute: s.wpm,
		SpokenWords:    s.cursor.SpokenWords(),
		Paused:         s.paused,
		Status:         s.status,
	})
}

// handleTick refreshes the speaking rate. Ticks are skipped while paused.
func (s *Session) handleTick() {
	if s.paused {
		return
	}
	wpm, ok := s.cursor.WordsPerMinute()
	if !ok {
		return
	}
	s.wpm = wpm
	s.metrics.RecordWordsPerMinute(wpm)
	s.render(models.CauseTick)
}
