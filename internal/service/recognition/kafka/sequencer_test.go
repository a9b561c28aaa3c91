package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	events []received
	errs   []error
}

func (r *recorder) OnPartial(utterance int, text string) {
	r.events = append(r.events, received{utterance, text, false})
}

func (r *recorder) OnFinal(utterance int, text string, _ float64) {
	r.events = append(r.events, received{utterance, text, true})
}

func (r *recorder) OnError(err error) { r.errs = append(r.errs, err) }

func TestSequencer_HoldsFinalUntilPartialsCatchUp(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Second)
	t0 := time.Unix(0, 0)

	q.final(0, "alpha bravo charlie", 0.9, t0)
	if len(rec.events) != 0 {
		t.Fatalf("expected final held, got %+v", rec.events)
	}
	q.partial(0, "alpha", t0.Add(10*time.Millisecond))
	q.partial(0, "alpha bravo", t0.Add(20*time.Millisecond))
	q.partial(0, "Alpha bravo  charlie", t0.Add(30*time.Millisecond))

	want := []received{
		{0, "alpha", false},
		{0, "alpha bravo", false},
		{0, "Alpha bravo  charlie", false},
		{0, "alpha bravo charlie", true},
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
	if q.pending() != 0 {
		t.Errorf("expected nothing held, got %d", q.pending())
	}
}

func TestSequencer_ReleasesFinalAfterGrace(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Second)
	t0 := time.Unix(0, 0)

	q.partial(0, "hello world", t0)
	q.final(0, "Hello, world.", 0.8, t0)
	if len(rec.events) != 1 {
		t.Fatalf("expected only the partial, got %+v", rec.events)
	}

	at, ok := q.deadline()
	if !ok || !at.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected deadline at grace, got %v %v", at, ok)
	}
	q.tick(t0.Add(999 * time.Millisecond))
	if len(rec.events) != 1 {
		t.Fatalf("expected final still held, got %+v", rec.events)
	}
	q.tick(at)
	if len(rec.events) != 2 || !rec.events[1].Final {
		t.Errorf("expected final after grace, got %+v", rec.events)
	}
	if _, ok := q.deadline(); ok {
		t.Error("expected no deadline once drained")
	}
}

func TestSequencer_LaterPartialReleasesFinal(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Hour)
	t0 := time.Unix(0, 0)

	q.partial(0, "one", t0)
	q.final(0, "one.", 0.8, t0)
	q.partial(1, "two", t0)

	want := []received{{0, "one", false}, {0, "one.", true}, {1, "two", false}}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestSequencer_HoldsNextUtteranceForMissingFinal(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Second)
	t0 := time.Unix(0, 0)

	q.partial(0, "one", t0)
	q.partial(1, "two", t0.Add(100*time.Millisecond))
	if len(rec.events) != 1 {
		t.Fatalf("expected utterance 1 held, got %+v", rec.events)
	}

	at, ok := q.deadline()
	if !ok || !at.Equal(t0.Add(1100*time.Millisecond)) {
		t.Fatalf("unexpected deadline %v %v", at, ok)
	}
	q.tick(at)

	want := []received{{0, "one", false}, {1, "two", false}}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestSequencer_DropsLateEvents(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Hour)
	var late []received
	q.onLate = func(u int, final bool) { late = append(late, received{Utterance: u, Final: final}) }
	t0 := time.Unix(0, 0)

	q.partial(0, "one", t0)
	q.final(0, "one", 0.9, t0)
	q.partial(0, "one more", t0)
	q.final(0, "one more", 0.9, t0)

	if len(rec.events) != 2 {
		t.Errorf("expected partial and final only, got %+v", rec.events)
	}
	want := []received{{0, "", false}, {0, "", true}}
	if diff := cmp.Diff(want, late); diff != "" {
		t.Errorf("unexpected late events (-want +got):\n%s", diff)
	}
}

func TestSequencer_FailFlushesInOrderBeforeError(t *testing.T) {
	rec := &recorder{}
	q := newSequencer(rec, time.Hour)
	t0 := time.Unix(0, 0)

	q.final(0, "zero", 0.9, t0)
	q.final(1, "one", 0.9, t0)
	q.fail(errors.New("broker gone"))

	want := []received{{0, "zero", true}, {1, "one", true}}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
	if len(rec.errs) != 1 {
		t.Errorf("expected one error, got %v", rec.errs)
	}
}
