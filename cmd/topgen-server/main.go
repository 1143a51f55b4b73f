package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/topgen/pkg/api"
	"github.com/platinummonkey/topgen/pkg/config"
	"github.com/platinummonkey/topgen/pkg/generator"
	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	tracerProvider, err := observability.InitOTel(context.Background(), cfg.Observability.OTel, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	gate, err := loadSchemaGate(cfg.Validation.SchemaPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load schema")
	}
	validator := validation.NewConfigValidator(gate,
		validation.WithLogger(logger),
		validation.WithMetrics(metrics),
	)

	runner, err := newRunner(cfg.Generator)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize floogen runner")
	}

	store := generator.NewJobStore(cfg.Generator.JobCacheSize, cfg.Generator.JobRetention)
	opts := []generator.ServiceOption{
		generator.WithTimeout(cfg.Generator.Timeout),
		generator.WithLogger(logger),
		generator.WithMetrics(metrics),
	}
	if cfg.Generator.S3Bucket != "" {
		publisher, err := generator.NewS3Publisher(context.Background(),
			cfg.Generator.S3Bucket, cfg.Generator.S3Region, cfg.Generator.S3Prefix)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize S3 publisher")
		}
		opts = append(opts, generator.WithPublisher(publisher))
		logger.WithField("bucket", cfg.Generator.S3Bucket).Info("Publishing RTL archives to S3")
	}

	service, err := generator.NewService(runner, store, cfg.Generator.OutputDir, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize generator")
	}

	sweeper := generator.NewSweeper(service.OutputDir(), cfg.Generator.JobRetention, store, logger, metrics)
	if err := sweeper.Start(cfg.Generator.SweepSchedule); err != nil {
		logger.WithError(err).Fatal("Failed to start job sweeper")
	}

	serverOpts := []api.ServerOption{
		api.WithLogger(logger),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if metrics != nil {
		serverOpts = append(serverOpts, api.WithMetrics(metrics))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewServer(validator, service, serverOpts...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// hooks run in reverse: the sweeper stops first, spans are flushed last
	lifecycle := observability.NewLifecycle(logger, httpServer, cfg.Server.ShutdownTimeout)
	lifecycle.Register("tracing", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, tracerProvider)
	})
	if closer, ok := runner.(interface{ Close() error }); ok {
		lifecycle.Register("runner", func(context.Context) error {
			return closer.Close()
		})
	}
	lifecycle.Register("sweeper", sweeper.Stop)

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":       httpServer.Addr,
			"runner":     cfg.Generator.Runner,
			"output_dir": service.OutputDir(),
		}).Info("Starting topgen server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	if err := lifecycle.Wait(context.Background()); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

func loadSchemaGate(path string) (*validation.SchemaGate, error) {
	if path == "" {
		return validation.DefaultSchemaGate()
	}
	return validation.LoadSchemaGate(path)
}

func newRunner(cfg config.GeneratorConfig) (generator.Runner, error) {
	if cfg.Runner == config.RunnerDocker {
		runner, err := generator.NewDockerRunner(cfg.DockerImage)
		if err != nil {
			return nil, err
		}
		runner.Binary = cfg.FloogenBin
		return runner, nil
	}
	return generator.NewLocalRunner(cfg.FloogenBin), nil
}
