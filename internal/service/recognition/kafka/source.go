// Package kafka consumes the speech ingress transcript topics as a
// recognition source.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/observability/metrics"
	"ai-teleprompter-service/internal/schema"
	"ai-teleprompter-service/internal/service/recognition"
)

const sourceName = "kafka"

// Reader is the subset of *kafkago.Reader the source uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds the consumer configuration.
type Config struct {
	Brokers       []string
	TopicPartial  string
	TopicFinal    string
	GroupID       string
	InteractionID string // when set, other interactions are skipped
	Policy        recognition.RestartPolicy

	// FinalGrace bounds how long events are held back to restore the
	// partials-then-final order across the two topics. Zero means
	// DefaultFinalGrace.
	FinalGrace time.Duration
}

type eventKind int

const (
	eventPartial eventKind = iota
	eventFinal
	eventError
)

// event is a decoded message handed from a topic consumer to the
// dispatcher.
type event struct {
	kind       eventKind
	segmentID  string
	text       string
	confidence float64
	err        error
}

// Source implements recognition.Source over two Kafka readers.
type Source struct {
	cfg       Config
	partial   Reader
	final     Reader
	validator *schema.Validator
	indexer   *Indexer
	metrics   *metrics.Metrics
	events    chan event

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

var _ recognition.Source = (*Source)(nil)

// New creates consumer-group readers for the partial and final topics.
func New(cfg Config) *Source {
	dialer := &kafkago.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	newReader := func(topic string) *kafkago.Reader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       topic,
			Dialer:      dialer,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     250 * time.Millisecond,
			StartOffset: kafkago.LastOffset,
		})
	}
	return NewWithReaders(cfg, newReader(cfg.TopicPartial), newReader(cfg.TopicFinal))
}

// NewWithReaders builds a Source over existing readers.
func NewWithReaders(cfg Config, partial, final Reader) *Source {
	return &Source{
		cfg:       cfg,
		partial:   partial,
		final:     final,
		validator: schema.New(),
		indexer:   NewIndexer(defaultIndexerCapacity),
		metrics:   metrics.DefaultMetrics,
		events:    make(chan event, 64),
	}
}

// Name implements recognition.Source.
func (s *Source) Name() string { return sourceName }

// Start implements recognition.Source.
func (s *Source) Start(ctx context.Context, cb recognition.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("kafka source is closed")
	}
	if s.started {
		return nil
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	logger := logging.WithSource(sourceName)
	logger.Info().
		Strs("brokers", s.cfg.Brokers).
		Str("topicPartial", s.cfg.TopicPartial).
		Str("topicFinal", s.cfg.TopicFinal).
		Str("groupId", s.cfg.GroupID).
		Str("interactionId", s.cfg.InteractionID).
		Msg("Consuming transcripts")

	s.wg.Add(3)
	go s.dispatch(ctx, cb)
	go s.consume(ctx, s.partial, s.cfg.TopicPartial, s.decodePartial)
	go s.consume(ctx, s.final, s.cfg.TopicFinal, s.decodeFinal)
	return nil
}

// Close implements recognition.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return errors.Join(s.partial.Close(), s.final.Close())
}

// dispatch owns the indexer and every callback, so the two topics reach
// cb as a single ordered stream.
func (s *Source) dispatch(ctx context.Context, cb recognition.Callback) {
	defer s.wg.Done()
	logger := logging.WithSource(sourceName)

	seq := newSequencer(cb, s.cfg.FinalGrace)
	seq.onLate = func(utterance int, final bool) {
		s.metrics.RecordTranscriptIgnored("out_of_order")
		logger.Debug().Int("utterance", utterance).Bool("final", final).Msg("Dropping late transcript")
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := seq.pending(); n > 0 {
				logger.Debug().Int("utterances", n).Msg("Discarding held transcripts")
			}
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventPartial:
				seq.partial(s.indexer.Index(ev.segmentID), ev.text, time.Now())
			case eventFinal:
				seq.final(s.indexer.Index(ev.segmentID), ev.text, ev.confidence, time.Now())
			case eventError:
				seq.fail(ev.err)
			}
		case now := <-timer.C:
			seq.tick(now)
		}

		timer.Stop()
		if at, ok := seq.deadline(); ok {
			timer.Reset(time.Until(at))
		}
	}
}

func (s *Source) send(ctx context.Context, ev event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

type decoder func(msg kafkago.Message) (event, bool, error)

func (s *Source) consume(ctx context.Context, r Reader, topic string, decode decoder) {
	defer s.wg.Done()
	logger := logging.WithSource(sourceName).With().Str("topic", topic).Logger()

	policy := s.cfg.Policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.metrics.RecordRecognitionRestart(sourceName)
		logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("Kafka read failed, retrying")
	}

	for {
		var msg kafkago.Message
		err := policy.Do(ctx, func(ctx context.Context) error {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				s.metrics.RecordKafkaConsumeError(topic, "read")
				return err
			}
			msg = m
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("Kafka consumer stopped")
			s.metrics.RecordRecognitionError(sourceName)
			s.send(ctx, event{kind: eventError, err: fmt.Errorf("consume %s: %w", topic, err)})
			return
		}

		s.metrics.RecordKafkaConsume(topic)
		ev, ok, err := decode(msg)
		switch {
		case err != nil:
			s.metrics.RecordKafkaConsumeError(topic, "decode")
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping transcript message")
		case ok:
			s.send(ctx, ev)
		}
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			s.metrics.RecordKafkaConsumeError(topic, "commit")
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit offset")
		}
	}
}

func (s *Source) decodePartial(msg kafkago.Message) (event, bool, error) {
	ev, err := DecodePartial(msg.Value, s.validator)
	if err != nil {
		return event{}, false, err
	}
	if !s.wanted(ev.InteractionID) {
		return event{}, false, nil
	}
	return event{kind: eventPartial, segmentID: ev.SegmentID, text: ev.Text}, true, nil
}

func (s *Source) decodeFinal(msg kafkago.Message) (event, bool, error) {
	ev, err := DecodeFinal(msg.Value, s.validator)
	if err != nil {
		return event{}, false, err
	}
	if !s.wanted(ev.InteractionID) {
		return event{}, false, nil
	}
	return event{kind: eventFinal, segmentID: ev.SegmentID, text: ev.Text, confidence: ev.Confidence}, true, nil
}

func (s *Source) wanted(interactionID string) bool {
	if s.cfg.InteractionID == "" || s.cfg.InteractionID == interactionID {
		return true
	}
	s.metrics.RecordTranscriptIgnored("other_interaction")
	return false
}

// DecodePartial unmarshals and validates a partial transcript payload.
func DecodePartial(payload []byte, v *schema.Validator) (*models.TranscriptPartial, error) {
	var ev models.TranscriptPartial
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode partial: %w", err)
	}
	if err := v.Validate(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeFinal unmarshals and validates a final transcript payload.
func DecodeFinal(payload []byte, v *schema.Validator) (*models.TranscriptFinal, error) {
	var ev models.TranscriptFinal
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode final: %w", err)
	}
	if err := v.Validate(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
