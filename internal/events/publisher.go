// Package events publishes transcript and cursor events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/metrics"
)

// Message writer used per topic.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes each event kind to its own topic. With Kafka disabled it
// only logs.
type Publisher struct {
	writerPartial writer
	writerFinal   writer
	writerCursor  writer
	principal     string
	topicPartial  string
	topicFinal    string
	topicCursor   string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	TopicCursor  string
	Principal    string
	Enabled      bool
}

// New creates a publisher. Topics left empty get no writer.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	p := &Publisher{
		principal:    cfg.Principal,
		topicPartial: cfg.TopicPartial,
		topicFinal:   cfg.TopicFinal,
		topicCursor:  cfg.TopicCursor,
		metrics:      m,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}
	newWriter := func(topic string) writer {
		if topic == "" {
			return nil
		}
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	p.writerPartial = newWriter(cfg.TopicPartial)
	p.writerFinal = newWriter(cfg.TopicFinal)
	p.writerCursor = newWriter(cfg.TopicCursor)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Str("topicCursor", cfg.TopicCursor).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

// Enabled reports whether messages reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishPartial publishes an interim transcript keyed by interaction.
func (p *Publisher) PublishPartial(ctx context.Context, ev *models.TranscriptPartial) error {
	return p.publish(ctx, p.writerPartial, p.topicPartial, models.EventTranscriptPartial, ev.InteractionID, ev)
}

// PublishFinal publishes a final transcript keyed by interaction.
func (p *Publisher) PublishFinal(ctx context.Context, ev *models.TranscriptFinal) error {
	return p.publish(ctx, p.writerFinal, p.topicFinal, models.EventTranscriptFinal, ev.InteractionID, ev)
}

// PublishCursor publishes a cursor update keyed by session.
func (p *Publisher) PublishCursor(ctx context.Context, ev *models.CursorEvent) error {
	return p.publish(ctx, p.writerCursor, p.topicCursor, models.EventCursor, ev.SessionID, ev)
}

func (p *Publisher) publish(ctx context.Context, w writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || w == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes every writer.
func (p *Publisher) Close() error {
	var errs []error
	for _, w := range []writer{p.writerPartial, p.writerFinal, p.writerCursor} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Kafka writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
