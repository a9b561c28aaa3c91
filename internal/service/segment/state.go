package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of one utterance.
type State int

const (
	// StateOpen accepts interim transcripts.
	StateOpen State = iota
	// StateFinalEmitted has seen its one final transcript.
	StateFinalEmitted
	// StateClosed was superseded after its final.
	StateClosed
	// StateDropped was abandoned without a final, or after a recognition error.
	// Its remaining events are ignored.
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalEmitted:
		return "FINAL_EMITTED"
	case StateClosed:
		return "CLOSED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal reports whether the state is CLOSED or DROPPED.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateDropped
}

var (
	ErrSegmentClosed               = errors.New("utterance is closed")
	ErrFinalAlreadyEmitted         = errors.New("final already received for this utterance")
	ErrCannotEmitPartialAfterFinal = errors.New("partial received after final")
	ErrStaleUtterance              = errors.New("utterance is older than the current one")
)

// Lifecycle is the state machine of a single utterance:
//
//	OPEN --final--> FINAL_EMITTED --superseded--> CLOSED
//	  |
//	  +--error / superseded without final--> DROPPED
type Lifecycle struct {
	mu        sync.RWMutex
	id        string
	utterance int
	state     State
}

// NewLifecycle returns an OPEN lifecycle for the given recognition index.
func NewLifecycle(id string, utterance int) *Lifecycle {
	return &Lifecycle{id: id, utterance: utterance, state: StateOpen}
}

func (l *Lifecycle) ID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.id
}

// Utterance returns the recognition-reported utterance index.
func (l *Lifecycle) Utterance() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utterance
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Partial records an interim transcript.
func (l *Lifecycle) Partial() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		return nil
	case StateFinalEmitted:
		return ErrCannotEmitPartialAfterFinal
	default:
		return ErrSegmentClosed
	}
}

// Final records the final transcript. Only the first one is accepted.
func (l *Lifecycle) Final() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalEmitted
		return nil
	case StateFinalEmitted:
		return ErrFinalAlreadyEmitted
	default:
		return ErrSegmentClosed
	}
}

// Drop abandons the utterance. It returns false when already terminal.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}

// retire ends the lifecycle: CLOSED after a final, DROPPED otherwise.
func (l *Lifecycle) retire() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateOpen:
		l.state = StateDropped
	case StateFinalEmitted:
		l.state = StateClosed
	}
	return l.state
}

// Tracker follows the current utterance of a recognition stream.
// A higher index supersedes the current utterance; a lower one is stale.
type Tracker struct {
	mu       sync.Mutex
	ids      *Generator
	prefix   string
	current  *Lifecycle
	retiring int // indexes <= retiring are stale
}

// NewTracker returns a Tracker whose lifecycle ids are "<prefix>-seg-<n>".
func NewTracker(prefix string) *Tracker {
	return &Tracker{ids: New(), prefix: prefix, retiring: -1}
}

// Observe returns the lifecycle for utterance, opening a new one when the
// index is ahead of the current one. When that happens the previous
// lifecycle is retired and returned as superseded.
func (t *Tracker) Observe(utterance int) (lc *Lifecycle, superseded *Lifecycle, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if utterance <= t.retiring {
		return nil, nil, ErrStaleUtterance
	}
	if t.current != nil {
		switch cur := t.current.Utterance(); {
		case utterance == cur:
			return t.current, nil, nil
		case utterance < cur:
			return nil, nil, ErrStaleUtterance
		}
		superseded = t.current
		superseded.retire()
	}
	t.current = NewLifecycle(t.ids.Next(t.prefix), utterance)
	return t.current, superseded, nil
}

// Current returns the current lifecycle, or nil.
func (t *Tracker) Current() *Lifecycle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// DropCurrent drops the current utterance. It returns the dropped
// lifecycle, or nil when there was nothing open to drop.
func (t *Tracker) DropCurrent() *Lifecycle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || !t.current.Drop() {
		return nil
	}
	return t.current
}

// RetireAll marks every utterance observed so far as stale.
func (t *Tracker) RetireAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return
	}
	t.current.retire()
	t.retiring = t.current.Utterance()
	t.current = nil
}
