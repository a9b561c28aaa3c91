// Command testclient publishes simulated transcript events for a script to
// the speech-ingress Kafka topics, so the teleprompter can be driven with
// RECOGNITION_SOURCE=kafka and no microphone.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"ai-teleprompter-service/internal/config"
	"ai-teleprompter-service/internal/events"
	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/schema"
	"ai-teleprompter-service/internal/service/segment"
)

func main() {
	var (
		scriptFile    = flag.String("script", "", "script file to read aloud (defaults to PROMPTER_SCRIPT_FILE / PROMPTER_SCRIPT_TEXT)")
		interactionID = flag.String("interaction", "", "interaction id (defaults to KAFKA_INTERACTION_ID or a new id)")
		tenantID      = flag.String("tenant", "tenant-local", "tenant id")
		perUtterance  = flag.Int("words", 6, "words per utterance")
		interval      = flag.Duration("interval", 300*time.Millisecond, "delay between words")
	)
	flag.Parse()

	cfg := config.Load()
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logCfg.Format = "console"
	logging.Init(logCfg)

	text := cfg.Prompter.ScriptText
	path := *scriptFile
	if path == "" {
		path = cfg.Prompter.ScriptFile
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read script")
		}
		text = string(b)
	}
	sc, err := script.New(text)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load script")
	}

	id := *interactionID
	if id == "" {
		id = cfg.Kafka.InteractionID
	}
	if id == "" {
		id = "int-" + xid.New().String()
	}

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("interactionId", id).
		Int("words", sc.Len()).
		Bool("kafkaEnabled", publisher.Enabled()).
		Msg("Publishing simulated transcripts")

	segments := segment.New()
	validator := schema.New()
	words := sc.Words()
	n := max(*perUtterance, 1)
	var offset int64

	for start := 0; start < len(words); start += n {
		chunk := words[start:min(start+n, len(words))]
		segmentID := segments.Next(id)

		for k := range chunk {
			select {
			case <-ctx.Done():
				log.Info().Msg("Interrupted")
				return
			case <-time.After(*interval):
			}
			ev := &models.TranscriptPartial{
				EventType:     models.EventTranscriptPartial,
				InteractionID: id,
				TenantID:      *tenantID,
				SegmentID:     segmentID,
				Text:          strings.Join(chunk[:k+1], " "),
				Timestamp:     time.Now().UnixMilli(),
			}
			if err := validator.Validate(ev); err != nil {
				log.Fatal().Err(err).Msg("Invalid partial transcript")
			}
			if err := publisher.PublishPartial(ctx, ev); err != nil {
				log.Error().Err(err).Str("segmentId", segmentID).Msg("Failed to publish partial")
			}
		}

		offset += int64(len(chunk)) * interval.Milliseconds()
		final := &models.TranscriptFinal{
			EventType:     models.EventTranscriptFinal,
			InteractionID: id,
			TenantID:      *tenantID,
			SegmentID:     segmentID,
			Text:          strings.Join(chunk, " "),
			Confidence:    0.92,
			AudioOffsetMs: offset,
			Timestamp:     time.Now().UnixMilli(),
		}
		if err := validator.Validate(final); err != nil {
			log.Fatal().Err(err).Msg("Invalid final transcript")
		}
		if err := publisher.PublishFinal(ctx, final); err != nil {
			log.Error().Err(err).Str("segmentId", segmentID).Msg("Failed to publish final")
		}
		log.Info().Str("segmentId", segmentID).Int("words", len(chunk)).Msg("Segment published")
	}

	log.Info().Msg("Script fully published")
}
