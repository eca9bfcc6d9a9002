package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/analysis"
	"github.com/spacesedan/sentiscope/internal/api/handler"
	"github.com/spacesedan/sentiscope/internal/api/router"
	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client"
	"github.com/spacesedan/sentiscope/internal/db"
	"github.com/spacesedan/sentiscope/internal/logging"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/predictor"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("[Main] Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnv(config.AppEnv())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.InitLogger(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("[Main] Starting sentiment analysis service",
		slog.String("env", config.AppEnv()),
		slog.String("backend", cfg.Model.Backend))

	loader, closeLoader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	pred, outcome := predictor.Load(ctx, loader, cfg.ModelNames()...)
	defer pred.Close()
	if !outcome.IsLoaded() {
		if cfg.Model.Required {
			return errors.New(outcome.Reason())
		}
		slog.Warn("[Main] Serving without a model, predictions will fail",
			slog.String("reason", outcome.Reason()))
	}

	var opts []analysis.Option

	if cfg.Cache.Enabled {
		cache, err := clients.NewValkeyCache(ctx, cfg.Cache)
		if err != nil {
			slog.Warn("[Main] Failed to connect to Valkey, continuing without cache",
				slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			go monitoring.MonitorHealth(ctx, "valkey", cache, cache.Healthy(), monitoring.HEALTHCHECK_INTERVAL)
			opts = append(opts, analysis.WithCache(cache))
		}
	}

	if cfg.Recorder.DynamoDB.Enabled {
		client, err := clients.NewDynamoDBClient(ctx, cfg.Recorder.DynamoDB)
		if err != nil {
			return err
		}
		opts = append(opts, analysis.WithRecorder(db.NewDynamoDBRecorder(client, cfg.Recorder.DynamoDB.Table)))
	}

	if cfg.Recorder.Kafka.Enabled {
		recorder, err := kafka_client.NewKafkaRecorder(cfg.Recorder.Kafka)
		if err != nil {
			return err
		}
		defer recorder.Close()
		opts = append(opts, analysis.WithRecorder(recorder))
	}

	service := analysis.NewService(pred, opts...)
	r := router.Setup(handler.NewHandler(service, cfg.Upload.MaxBytes), cfg.Upload.MaxBytes)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("[Main] Listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("[Main] Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("[Main] Server exited")
	return nil
}

// newLoader returns the model loader for the configured backend and a
// function releasing whatever it holds.
func newLoader(cfg *config.Config) (predictor.Loader, func(), error) {
	noop := func() {}

	switch cfg.Model.Backend {
	case config.BackendONNX:
		loader := clients.NewHugotLoader(cfg.Model)
		return loader, func() {
			if err := loader.Close(); err != nil {
				slog.Warn("[Main] Failed to destroy hugot session", slog.String("error", err.Error()))
			}
		}, nil
	case config.BackendInferenceAPI:
		return clients.NewHuggingFaceClient(cfg.InferenceAPI), noop, nil
	case config.BackendOpenAI:
		client, err := clients.NewOpenAIClient(cfg.OpenAI)
		if err != nil {
			return nil, nil, err
		}
		return client, noop, nil
	case config.BackendVADER:
		return sentiment.VaderLoader{}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}
