// Package mock provides a recognition source that reads a script aloud.
// It simulates a real recognizer: each utterance produces one cumulative
// interim transcript per word at a fixed cadence, followed by exactly one
// final transcript.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/service/recognition"
)

const sourceName = "mock"

// Utterance is one simulated span of speech.
type Utterance struct {
	Words      []string
	Confidence float64
}

// Option configures a Source.
type Option func(*Source)

// WithInterval sets the delay before each interim transcript.
func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		s.interval = d
	}
}

// WithSubstitution replaces every nth spoken word with an equivalent form
// from table, so that recognizer-style homophones ("to" for "two") reach
// the matcher.
func WithSubstitution(table *equivalence.Table, every int) Option {
	return func(s *Source) {
		s.table = table
		s.every = every
	}
}

// Source implements recognition.Source from a fixed list of utterances.
type Source struct {
	utterances []Utterance
	interval   time.Duration
	table      *equivalence.Table
	every      int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var _ recognition.Source = (*Source)(nil)

// New returns a Source that speaks the given utterances in order.
func New(utterances []Utterance, opts ...Option) *Source {
	s := &Source{
		utterances: utterances,
		interval:   300 * time.Millisecond,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FromScript splits the script into utterances of wordsPerUtterance words.
func FromScript(sc *script.Script, wordsPerUtterance int, opts ...Option) *Source {
	if wordsPerUtterance < 1 {
		wordsPerUtterance = 1
	}
	words := sc.Words()
	var utterances []Utterance
	for start := 0; start < len(words); start += wordsPerUtterance {
		end := min(start+wordsPerUtterance, len(words))
		utterances = append(utterances, Utterance{
			Words:      append([]string(nil), words[start:end]...),
			Confidence: 0.92,
		})
	}
	return New(utterances, opts...)
}

// Utterances returns the utterances after substitution.
func (s *Source) Utterances() []Utterance {
	out := make([]Utterance, len(s.utterances))
	n := 0
	for i, u := range s.utterances {
		words := make([]string, len(u.Words))
		for j, w := range u.Words {
			n++
			words[j] = s.substitute(w, n)
		}
		out[i] = Utterance{Words: words, Confidence: u.Confidence}
	}
	return out
}

// Name implements recognition.Source.
func (s *Source) Name() string { return sourceName }

// Start implements recognition.Source.
func (s *Source) Start(ctx context.Context, cb recognition.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.speak(ctx, cb, s.Utterances())
	return nil
}

// Done is closed once every utterance has been spoken or the source stops.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Close implements recognition.Source. It is idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	} else {
		close(s.done)
	}
	return nil
}

func (s *Source) speak(ctx context.Context, cb recognition.Callback, utterances []Utterance) {
	defer close(s.done)
	logger := logging.WithSource(sourceName)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for i, u := range utterances {
		for k := range u.Words {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				timer.Reset(s.interval)
			}
			cb.OnPartial(i, strings.Join(u.Words[:k+1], " "))
		}
		cb.OnFinal(i, strings.Join(u.Words, " "), u.Confidence)
		logger.Debug().Int("utterance", i).Int("words", len(u.Words)).Msg("Utterance spoken")
	}
	logger.Info().Int("utterances", len(utterances)).Msg("Script fully spoken")
}

func (s *Source) substitute(word string, n int) string {
	if s.table == nil || s.every < 1 || n%s.every != 0 {
		return word
	}
	norm := script.Normalize(word)
	for _, f := range s.table.EquivalentForms(norm) {
		if f != norm {
			return f
		}
	}
	return word
}
