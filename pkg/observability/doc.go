// Package observability provides structured logging, Prometheus metrics and
// graceful shutdown helpers shared by the topgen binaries.
//
// # Structured Logging
//
// Loggers are logrus loggers with a JSON formatter:
//
//	level, _ := observability.ParseLevel("debug")
//	logger := observability.NewLogger(level, os.Stderr)
//	logger.WithField("job_id", id).Info("generation started")
//
// Request-scoped loggers travel on the context:
//
//	ctx = observability.WithRequestID(ctx, reqID)
//	observability.FromContext(ctx).Warn("validation failed")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordValidation(false, "semantic", 3)
//	router.Handle("/metrics", metrics.Handler())
//
// # Related Packages
//
//   - pkg/config: log level and metrics toggles
//   - pkg/httputil: request logging and metrics middleware
package observability
