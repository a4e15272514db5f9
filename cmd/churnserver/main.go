package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/metrics"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/server"
	"churn-predictor/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on OS environment variables")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel)

	// Artifacts are loaded exactly once; without them nothing is served.
	artifacts, err := ml.LoadArtifacts(c.ArtifactPaths(), c.DecisionThreshold)
	if err != nil {
		log.Fatal().Err(err).Str("artifact_dir", c.ArtifactDir).Msg("model artifacts unavailable")
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	predictor, err := ml.NewChurnPredictor(artifacts, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("model artifacts incompatible with feature builder")
	}

	opts := server.Options{
		Port:           c.ListenPort,
		RequestTimeout: c.RequestTimeout,
		Metrics:        mw,
		MetricsHandler: promhttp.Handler(),
	}
	if store := initializeStorage(c, predictor); store != nil {
		defer store.Close()
		opts.Store = store
	}

	srv := server.New(predictor, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// initializeStorage opens the prediction log if DATA_PATH is configured and
// records which model this process serves.
func initializeStorage(c cfg.Settings, predictor *ml.ChurnPredictor) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without prediction log")
		return nil
	}

	a := predictor.Artifacts()
	record := storage.ModelLoadRecord{
		Version:      a.Metadata.Version,
		ArtifactDir:  c.ArtifactDir,
		Features:     predictor.FeatureNames(),
		ModelCreated: a.ModelCreated,
	}
	if sc, ok := a.Classifier.(*ml.StackingClassifier); ok {
		record.Threshold = sc.Threshold()
	}
	if err := store.StoreModelLoad(record); err != nil {
		log.Warn().Err(err).Msg("failed to record model load")
	}
	return store
}

func waitForShutdown(ctx context.Context, srv *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
