package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-emotion-inference-service/internal/app"
	"ai-emotion-inference-service/internal/config"
	"ai-emotion-inference-service/internal/events"
	httpapi "ai-emotion-inference-service/internal/http"
	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/observability"
	"ai-emotion-inference-service/internal/service/classify"
	"ai-emotion-inference-service/internal/service/classify/mock"
	"ai-emotion-inference-service/internal/service/classify/serving"
	"ai-emotion-inference-service/internal/service/decode"
	"ai-emotion-inference-service/internal/service/feature"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("application start failed")
	}

	// The classifier and vocabulary are built once here and shared read-only
	// by every session. A failure at this point is process-fatal; nothing can
	// fail this way mid-request.
	classifier, err := buildClassifier(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("classifier initialization failed")
	}
	vocab := models.Vocabulary(cfg.Classifier.Labels)
	if len(vocab) == 0 {
		logger.Fatal().Msg("classifier vocabulary is empty")
	}
	adapter := classify.NewAdapter(classifier, vocab)

	decoder := decode.New(decode.Config{
		TargetSampleRate: cfg.Audio.TargetSampleRate,
		MaxDurationSec:   cfg.Audio.MaxDurationSec,
	})
	extractor := feature.New(feature.Config{
		MelBands:    cfg.Feature.MelBands,
		MaxFrames:   cfg.Feature.MaxFrames,
		MaxDuration: cfg.Audio.MaxDurationSec,
	})

	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	})
	defer publisher.Close()

	obsServer := observability.NewServer(":"+cfg.Service.MetricsPort, func() bool { return true })
	obsServer.Start()

	router := httpapi.NewRouter(httpapi.Deps{
		Decoder:        decoder,
		Extractor:      extractor,
		Adapter:        adapter,
		Publisher:      publisher,
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		MaxChunkBytes:  cfg.Limits.MaxChunkBytes,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Service.HTTPPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("classifier", classifier.Name()).
			Int("labels", len(vocab)).
			Msg("Emotion Inference Service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("observability shutdown failed")
	}
	application.Shutdown()
}

// buildClassifier selects the classifier backend from configuration.
func buildClassifier(cfg *config.Config) (classify.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "mock", "":
		return mock.New(len(cfg.Classifier.Labels)), nil
	case "serving":
		if cfg.Classifier.Endpoint == "" {
			return nil, fmt.Errorf("serving classifier requires CLASSIFIER_ENDPOINT")
		}
		return serving.New(cfg.Classifier.Endpoint, cfg.Classifier.ModelName, 10*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Classifier.Provider)
	}
}
