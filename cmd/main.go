package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcapi "ai-teleprompter-service/internal/api/grpc"
	"ai-teleprompter-service/internal/app"
	"ai-teleprompter-service/internal/config"
	"ai-teleprompter-service/internal/events"
	apihttp "ai-teleprompter-service/internal/http"
	"ai-teleprompter-service/internal/observability"
	"ai-teleprompter-service/internal/observability/metrics"
	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/renderer"
	"ai-teleprompter-service/internal/service/recognition"
	"ai-teleprompter-service/internal/service/recognition/kafka"
	"ai-teleprompter-service/internal/service/recognition/mock"
	"ai-teleprompter-service/internal/service/session"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid prompter configuration")
	}

	sc, err := loadScript(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load script")
	}
	table, err := loadEquivalences(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load equivalence table")
	}

	// Create Kafka publisher; cursor events go to their own topic
	publisher := events.New(&events.Config{
		Enabled:     cfg.Kafka.Enabled,
		Brokers:     cfg.Kafka.Brokers,
		TopicCursor: cfg.Kafka.TopicCursor,
		Principal:   cfg.Kafka.Principal,
	})
	defer publisher.Close()

	hub := renderer.NewHub()
	sink := renderer.NewKafkaSink(publisher, 0)

	source, err := newSource(cfg, sc, table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create recognition source")
	}

	sessionID := xid.New().String()
	sess, err := session.New(sc, session.Config{
		Strategy:    cfg.StrategyConfig(),
		SkipWords:   cfg.Prompter.SkipWords,
		WPMInterval: cfg.Prompter.WPMInterval,
	}, table,
		session.WithID(sessionID),
		session.WithSource(source),
		session.WithRenderer(renderer.Multi{hub, sink}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid prompter configuration")
	}

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grpcServer := grpcapi.New(":"+cfg.Service.GRPCPort, metrics.DefaultMetrics)
	obsServer := observability.NewServer(cfg.Observability.Addr, sess.Running)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application, sess, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return sink.Run(ctx) })
	g.Go(func() error {
		grpcServer.SetSessionServing(true)
		defer grpcServer.SetSessionServing(false)
		return sess.Run(ctx)
	})
	g.Go(func() error { return obsServer.Run(ctx) })
	g.Go(func() error { return grpcServer.Run(ctx) })
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("Control HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.Info().
		Str("sessionId", sessionID).
		Int("words", sc.Len()).
		Str("source", source.Name()).
		Msg("Teleprompter running")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Teleprompter stopped with error")
		application.Shutdown()
		os.Exit(1)
	}
}

func loadScript(cfg *config.Config) (*script.Script, error) {
	if path := cfg.Prompter.ScriptFile; path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return script.New(string(b))
	}
	return script.New(cfg.Prompter.ScriptText)
}

func loadEquivalences(cfg *config.Config) (*equivalence.Table, error) {
	if path := cfg.Prompter.EquivalenceFile; path != "" {
		return equivalence.Load(path)
	}
	return equivalence.Default(), nil
}

func newSource(cfg *config.Config, sc *script.Script, table *equivalence.Table) (recognition.Source, error) {
	policy := recognition.RestartPolicy{
		MaxRetries: cfg.Recognition.MaxRetries,
		Backoff:    cfg.Recognition.Backoff,
		MaxBackoff: cfg.Recognition.MaxBackoff,
	}

	switch cfg.Recognition.Source {
	case "mock":
		return mock.FromScript(sc, cfg.Recognition.MockUtterance,
			mock.WithInterval(cfg.Recognition.MockInterval),
			mock.WithSubstitution(table, 5),
		), nil
	case "kafka":
		if !cfg.Kafka.Enabled {
			return nil, errors.New("kafka recognition source requires KAFKA_ENABLED=true")
		}
		return kafka.New(kafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			TopicPartial:  cfg.Kafka.TopicPartial,
			TopicFinal:    cfg.Kafka.TopicFinal,
			GroupID:       cfg.Kafka.GroupID,
			InteractionID: cfg.Kafka.InteractionID,
			FinalGrace:    cfg.Kafka.FinalGrace,
			Policy:        policy,
		}), nil
	default:
		return nil, errors.New("unknown recognition source " + cfg.Recognition.Source)
	}
}
