// Package cursor owns the reading position within a script.
//
// Voice-driven advancement is strictly forward-only: a proposal at or behind
// the current word is dropped, which also discards late or stale transcript
// events. Manual navigation (Skip, Reset) may move in either direction.
// All positions are clamped to [0, length-1].
//
// A Controller is not safe for concurrent use; it belongs to one session loop.
package cursor

import (
	"math"
	"time"
)

// Unset is the cursor value before Start.
const Unset = -1

// Cause describes why the position changed.
type Cause string

const (
	CauseStart Cause = "start"
	CauseVoice Cause = "voice"
	CauseSkip  Cause = "skip"
	CauseReset Cause = "reset"
)

// Position is emitted to the Notifier after every applied change.
type Position struct {
	Index    int
	Progress float64 // Percent in [0, 100]
	Cause    Cause
}

// Notifier receives position changes. Implementations must not block.
type Notifier interface {
	Notify(Position)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Position)

// Notify implements Notifier.
func (f NotifierFunc) Notify(p Position) { f(p) }

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller tracks the current word, progress and words-per-minute.
type Controller struct {
	length   int
	index    int
	spoken   int
	started  time.Time
	notifier Notifier
	now      func() time.Time
}

// New returns a Controller for a script of length words. The cursor is
// Unset until Start is called. notifier may be nil.
func New(length int, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		length:   length,
		index:    Unset,
		notifier: notifier,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start places the cursor on the first word and starts WPM accounting.
func (c *Controller) Start() {
	c.index = 0
	c.spoken = 0
	c.started = c.now()
	c.notify(CauseStart)
}

// Started reports whether Start has been called.
func (c *Controller) Started() bool {
	return c.index != Unset
}

// Index returns the current word index, or Unset.
func (c *Controller) Index() int {
	return c.index
}

// Length returns the script length the controller was built for.
func (c *Controller) Length() int {
	return c.length
}

// SpokenWords returns the cumulative voice-driven advance since the last
// Start or Reset.
func (c *Controller) SpokenWords() int {
	return c.spoken
}

// ProposeAdvance applies a voice-driven candidate when it lies strictly
// ahead of the current word. The candidate is clamped to the last word.
// It reports whether the cursor moved.
func (c *Controller) ProposeAdvance(candidate int) bool {
	if !c.Started() || candidate <= c.index {
		return false
	}
	next := c.clamp(candidate)
	if next <= c.index {
		return false
	}
	c.spoken += next - c.index
	c.index = next
	c.notify(CauseVoice)
	return true
}

// Skip moves the cursor by delta words in either direction, clamped to the
// script. It reports whether the cursor moved.
func (c *Controller) Skip(delta int) bool {
	if !c.Started() {
		return false
	}
	next := c.clamp(c.index + delta)
	if next == c.index {
		return false
	}
	c.index = next
	c.notify(CauseSkip)
	return true
}

// Reset returns to the first word and restarts WPM accounting.
func (c *Controller) Reset() {
	c.index = 0
	c.spoken = 0
	c.started = c.now()
	c.notify(CauseReset)
}

// Progress returns the percentage read. It is 0 before Start and 100 for a
// one-word script once started.
func (c *Controller) Progress() float64 {
	if !c.Started() {
		return 0
	}
	if c.length <= 1 {
		return 100
	}
	return float64(c.index) / float64(c.length-1) * 100
}

// WordsPerMinute returns the rounded speaking rate since Start or Reset.
// ok is false until some time has elapsed.
func (c *Controller) WordsPerMinute() (wpm int, ok bool) {
	if !c.Started() {
		return 0, false
	}
	elapsed := c.now().Sub(c.started).Minutes()
	if elapsed <= 0 {
		return 0, false
	}
	return int(math.Round(float64(c.spoken) / elapsed)), true
}

// Position returns the current position without notifying.
func (c *Controller) Position() Position {
	return Position{Index: c.index, Progress: c.Progress()}
}

func (c *Controller) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if last := c.length - 1; i > last {
		return max(last, 0)
	}
	return i
}

func (c *Controller) notify(cause Cause) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Position{Index: c.index, Progress: c.Progress(), Cause: cause})
}
