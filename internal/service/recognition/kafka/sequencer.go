package kafka

import (
	"strings"
	"time"

	"ai-teleprompter-service/internal/service/recognition"
)

// DefaultFinalGrace bounds how long a final waits for the partials of its
// segment, and how long a later segment waits for a missing final.
const DefaultFinalGrace = 500 * time.Millisecond

type pendingFinal struct {
	text       string
	confidence float64
	at         time.Time
}

type slot struct {
	partials []string
	final    *pendingFinal
	at       time.Time
}

// sequencer merges the partial and final topics into one stream that
// honors the recognition.Callback order. The topics are consumed
// independently, so a final can be fetched before the partials of its
// segment and a partial of the next segment before the previous final.
// Events are buffered per utterance and released partials first, final
// last, in index order.
//
// A held final is released when the last delivered partial equals its
// text, when the partial topic has moved on to a later utterance, or
// after the grace period. A later utterance stops waiting for a missing
// final after the grace period as well.
//
// Not safe for concurrent use; the dispatcher goroutine owns it.
type sequencer struct {
	cb    recognition.Callback
	grace time.Duration

	next        int // lowest utterance not yet completed
	lastPartial string
	maxPartial  int
	slots       map[int]*slot

	onLate func(utterance int, final bool)
}

func newSequencer(cb recognition.Callback, grace time.Duration) *sequencer {
	if grace <= 0 {
		grace = DefaultFinalGrace
	}
	return &sequencer{
		cb:         cb,
		grace:      grace,
		maxPartial: -1,
		slots:      make(map[int]*slot),
	}
}

func (q *sequencer) slotFor(utterance int, now time.Time) *slot {
	sl, ok := q.slots[utterance]
	if !ok {
		sl = &slot{at: now}
		q.slots[utterance] = sl
	}
	return sl
}

func (q *sequencer) late(utterance int, final bool) bool {
	if utterance >= q.next {
		return false
	}
	if q.onLate != nil {
		q.onLate(utterance, final)
	}
	return true
}

func (q *sequencer) partial(utterance int, text string, now time.Time) {
	if q.late(utterance, false) {
		return
	}
	sl := q.slotFor(utterance, now)
	sl.partials = append(sl.partials, text)
	q.maxPartial = max(q.maxPartial, utterance)
	q.drain(now)
}

func (q *sequencer) final(utterance int, text string, confidence float64, now time.Time) {
	if q.late(utterance, true) {
		return
	}
	sl := q.slotFor(utterance, now)
	if sl.final != nil {
		if q.onLate != nil {
			q.onLate(utterance, true)
		}
		return
	}
	sl.final = &pendingFinal{text: text, confidence: confidence, at: now}
	q.drain(now)
}

// fail releases everything held, then reports err.
func (q *sequencer) fail(err error) {
	q.flush()
	q.cb.OnError(err)
}

// tick releases whatever has waited out the grace period.
func (q *sequencer) tick(now time.Time) { q.drain(now) }

// flush releases every held event in order, ignoring the grace period.
func (q *sequencer) flush() {
	for len(q.slots) > 0 {
		q.advanceTo(q.lowest())
		sl := q.slots[q.next]
		for _, p := range sl.partials {
			q.cb.OnPartial(q.next, p)
		}
		if sl.final != nil {
			q.cb.OnFinal(q.next, sl.final.text, sl.final.confidence)
		}
		delete(q.slots, q.next)
		q.next++
		q.lastPartial = ""
	}
}

func (q *sequencer) drain(now time.Time) {
	for {
		sl, ok := q.slots[q.next]
		if ok {
			for _, p := range sl.partials {
				q.cb.OnPartial(q.next, p)
				q.lastPartial = p
			}
			sl.partials = nil

			if f := sl.final; f != nil {
				if !q.finalReady(f, now) {
					return
				}
				q.cb.OnFinal(q.next, f.text, f.confidence)
				delete(q.slots, q.next)
				q.next++
				q.lastPartial = ""
				continue
			}
		}

		// The current utterance has no final yet; give up on it once a
		// later utterance has waited long enough.
		later, found := q.earliestLater()
		if !found || now.Sub(later) < q.grace {
			return
		}
		delete(q.slots, q.next)
		q.advanceTo(q.lowest())
	}
}

func (q *sequencer) finalReady(f *pendingFinal, now time.Time) bool {
	switch {
	case sameText(f.text, q.lastPartial):
		return true
	case q.maxPartial > q.next:
		return true
	default:
		return now.Sub(f.at) >= q.grace
	}
}

// deadline reports when tick next has work to do.
func (q *sequencer) deadline() (time.Time, bool) {
	var (
		at    time.Time
		found bool
	)
	if sl, ok := q.slots[q.next]; ok && sl.final != nil {
		at, found = sl.final.at.Add(q.grace), true
	}
	if later, ok := q.earliestLater(); ok {
		if d := later.Add(q.grace); !found || d.Before(at) {
			at, found = d, true
		}
	}
	return at, found
}

func (q *sequencer) earliestLater() (time.Time, bool) {
	var (
		at    time.Time
		found bool
	)
	for u, sl := range q.slots {
		if u > q.next && (!found || sl.at.Before(at)) {
			at, found = sl.at, true
		}
	}
	return at, found
}

func (q *sequencer) lowest() int {
	low := -1
	for u := range q.slots {
		if low < 0 || u < low {
			low = u
		}
	}
	return low
}

func (q *sequencer) advanceTo(u int) {
	if u > q.next {
		q.next = u
		q.lastPartial = ""
	}
}

func (q *sequencer) pending() int { return len(q.slots) }

func sameText(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
