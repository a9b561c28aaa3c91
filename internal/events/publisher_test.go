package events

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/segmentio/kafka-go"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/metrics"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func enabledPublisher(partial, final, cursor *fakeWriter) *Publisher {
	return &Publisher{
		writerPartial: partial,
		writerFinal:   final,
		writerCursor:  cursor,
		principal:     "test-svc",
		topicPartial:  "test.partial",
		topicFinal:    "test.final",
		topicCursor:   "test.cursor",
		enabled:       true,
		metrics:       metrics.DefaultMetrics,
	}
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerPartial != nil || p.writerFinal != nil || p.writerCursor != nil {
				t.Error("expected no writers when disabled")
			}
		})
	}
}

func TestNew_EnabledSkipsEmptyTopics(t *testing.T) {
	p := New(&Config{
		Enabled:     true,
		Brokers:     []string{"localhost:9092"},
		TopicCursor: "prompter.cursor",
	})
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerCursor == nil {
		t.Error("expected cursor writer")
	}
	if p.writerPartial != nil || p.writerFinal != nil {
		t.Error("expected no writers for empty topics")
	}
}

func TestPublisher_Disabled_LogsOnly(t *testing.T) {
	p := New(&Config{Enabled: false, TopicCursor: "test.cursor", Principal: "test-svc"})

	if err := p.PublishCursor(context.Background(), &models.CursorEvent{SessionID: "s1", Index: 3}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishPartial(context.Background(), &models.TranscriptPartial{InteractionID: "int-1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishFinal(context.Background(), &models.TranscriptFinal{InteractionID: "int-1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishCursor(t *testing.T) {
	cursor := &fakeWriter{}
	p := enabledPublisher(&fakeWriter{}, &fakeWriter{}, cursor)

	ev := &models.CursorEvent{EventType: models.EventCursor, SessionID: "sess-1", Index: 7, Progress: 50}
	if err := p.PublishCursor(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cursor.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(cursor.msgs))
	}
	msg := cursor.msgs[0]
	if string(msg.Key) != "sess-1" {
		t.Errorf("expected key sess-1, got %s", msg.Key)
	}
	var got models.CursorEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Index != 7 || got.Progress != 50 {
		t.Errorf("unexpected payload %+v", got)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventType"] != models.EventCursor || headers["principal"] != "test-svc" {
		t.Errorf("unexpected headers %v", headers)
	}
}

func TestPublisher_TranscriptsGoToTheirTopics(t *testing.T) {
	partial, final := &fakeWriter{}, &fakeWriter{}
	p := enabledPublisher(partial, final, &fakeWriter{})

	_ = p.PublishPartial(context.Background(), &models.TranscriptPartial{InteractionID: "int-1", Text: "a"})
	_ = p.PublishFinal(context.Background(), &models.TranscriptFinal{InteractionID: "int-1", Text: "a b"})

	if len(partial.msgs) != 1 || len(final.msgs) != 1 {
		t.Errorf("expected one message per topic, got %d/%d", len(partial.msgs), len(final.msgs))
	}
	if string(final.msgs[0].Key) != "int-1" {
		t.Errorf("expected interaction key, got %s", final.msgs[0].Key)
	}
}

func TestPublisher_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := enabledPublisher(&fakeWriter{}, &fakeWriter{}, &fakeWriter{err: boom})

	err := p.PublishCursor(context.Background(), &models.CursorEvent{SessionID: "s"})
	if !errors.Is(err, boom) {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestPublisher_MarshalError(t *testing.T) {
	p := New(&Config{Enabled: false})

	// NaN cannot be encoded as JSON.
	err := p.PublishCursor(context.Background(), &models.CursorEvent{Progress: math.NaN()})
	if err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close(t *testing.T) {
	partial, final, cursor := &fakeWriter{}, &fakeWriter{}, &fakeWriter{}
	p := enabledPublisher(partial, final, cursor)

	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !partial.closed || !final.closed || !cursor.closed {
		t.Error("expected all writers closed")
	}

	if err := New(&Config{Enabled: false}).Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}
