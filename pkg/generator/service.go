package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/topology"
)

const (
	configFileName = "config.yml"
	rtlOutputDir   = "rtl_output"
)

var tracer = otel.Tracer("topgen/generator")

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validJobID(id string) bool {
	return jobIDPattern.MatchString(id) && !strings.Contains(id, "..")
}

// Service turns validated configurations into RTL archives. Each job gets
// its own directory under the output root:
//
//	<output>/<job>/config.yml
//	<output>/<job>/rtl_output/
//	<output>/<job>/<job>_rtl.zip
type Service struct {
	runner    Runner
	store     *JobStore
	outputDir string
	timeout   time.Duration
	publisher Publisher
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	now       func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithTimeout bounds each floogen run
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPublisher uploads completed archives
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger sets the service logger
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records generation outcomes
func WithMetrics(metrics *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates the output root and returns a ready service
func NewService(runner Runner, store *JobStore, outputDir string, opts ...ServiceOption) (*Service, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if store == nil {
		store = NewJobStore(0, 0)
	}

	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory %s: %w", outputDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &Service{
		runner:    runner,
		store:     store,
		outputDir: abs,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.DiscardLogger()
	}
	return s, nil
}

// OutputDir returns the absolute output root
func (s *Service) OutputDir() string {
	return s.outputDir
}

// Job returns a recorded job
func (s *Service) Job(jobID string) (*Job, error) {
	return s.store.Get(jobID)
}

// NewJobID returns an identifier of the form job_<YYYYmmdd_HHMMSS>_<8 hex>
func (s *Service) NewJobID() string {
	return fmt.Sprintf("job_%s_%s", s.now().Format("20060102_150405"), uuid.NewString()[:8])
}

// Run writes config (YAML text or a parsed document) into a job directory,
// runs floogen and packages rtl_output into a ZIP. An empty jobID gets a
// generated one.
//
// A job is recorded once floogen has run to exit. When the exit code is
// non-zero the failed job is returned together with a *RunError. Failures
// before that point (bad job id, unreadable config, missing tool, timeout)
// return a *RunError or plain error and leave no record.
func (s *Service) Run(ctx context.Context, config any, jobID string) (*Job, error) {
	if jobID == "" {
		jobID = s.NewJobID()
	}

	ctx, span := tracer.Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("job.id", jobID),
	))
	defer span.End()

	job, err := s.run(ctx, config, jobID)
	if job != nil {
		span.SetAttributes(attribute.String("job.status", string(job.Status)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return job, err
	}
	span.SetStatus(codes.Ok, "")
	return job, nil
}

func (s *Service) run(ctx context.Context, config any, jobID string) (*Job, error) {
	if !validJobID(jobID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}

	ctx = observability.WithJobID(ctx, jobID)
	logger := s.logger.WithField("job_id", jobID)

	jobDir := filepath.Join(s.outputDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	configFile := filepath.Join(jobDir, configFileName)
	if err := writeConfig(configFile, config); err != nil {
		return nil, err
	}

	rtlDir := filepath.Join(jobDir, rtlOutputDir)
	if err := os.MkdirAll(rtlDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Info("starting floogen")
	start := s.now()
	result, err := s.runFloogen(ctx, &RunRequest{
		ConfigPath: configFile,
		OutputDir:  rtlDir,
		WorkDir:    jobDir,
		Timeout:    s.timeout,
	})
	if err != nil {
		s.recordGeneration("error", start)
		runErr := s.runError(err)
		logger.WithError(err).Warn("floogen did not complete")
		return nil, runErr
	}

	job := &Job{
		JobID:     jobID,
		Timestamp: s.now(),
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
	}

	if result.ExitCode != 0 {
		job.Status = StatusFailed
		job.Error = fmt.Sprintf("floogen exited with code %d", result.ExitCode)
		s.store.Put(job)
		s.recordGeneration(string(StatusFailed), start)
		logger.WithField("exit_code", result.ExitCode).Warn("floogen failed")
		return job, &RunError{
			Message: job.Error,
			Stdout:  job.Stdout,
			Stderr:  job.Stderr,
			Err:     ErrGenerationFailed,
		}
	}

	zipPath := filepath.Join(jobDir, jobID+"_rtl.zip")
	if err := zipDirectory(rtlDir, zipPath); err != nil {
		s.recordGeneration("error", start)
		return nil, &RunError{
			Message: fmt.Sprintf("Unexpected error running floogen: %v", err),
			Stdout:  result.Stdout,
			Stderr:  err.Error(),
			Err:     err,
		}
	}

	job.Status = StatusCompleted
	job.OutputPath = rtlDir
	job.ZipPath = zipPath
	job.ConfigFile = configFile

	if s.publisher != nil {
		uri, err := s.publisher.Publish(ctx, job)
		if err != nil {
			logger.WithError(err).Warn("failed to publish RTL archive")
		} else {
			job.ArtifactURI = uri
		}
	}

	s.store.Put(job)
	s.recordGeneration(string(StatusCompleted), start)
	logger.WithField("zip_path", zipPath).Info("RTL generation completed")
	return job, nil
}

// runFloogen wraps the runner in its own span so tool time is separated from
// config writing and packaging
func (s *Service) runFloogen(ctx context.Context, req *RunRequest) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "floogen", trace.WithAttributes(
		attribute.String("floogen.config", req.ConfigPath),
	))
	defer span.End()

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("floogen.exit_code", result.ExitCode))
	if result.ExitCode != 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("exit code %d", result.ExitCode))
	}
	return result, nil
}

func (s *Service) runError(err error) *RunError {
	var msg string
	switch {
	case errors.Is(err, ErrToolNotFound):
		msg = "floogen command not found. Please ensure floogen is installed."
	case errors.Is(err, ErrTimeout):
		msg = fmt.Sprintf("floogen execution timed out (>%s)", formatTimeout(s.timeout))
	default:
		msg = fmt.Sprintf("Unexpected error running floogen: %v", err)
		return &RunError{Message: msg, Stderr: err.Error(), Err: err}
	}
	return &RunError{Message: msg, Stderr: msg, Err: err}
}

func (s *Service) recordGeneration(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(status, s.now().Sub(start))
	}
}

// writeConfig dumps config as YAML. Strings are parsed first so the file
// always holds a normalized document.
func writeConfig(path string, config any) error {
	var (
		tree any
		err  error
	)
	if text, ok := config.(string); ok {
		tree, err = topology.ParseYAML([]byte(text))
		if err != nil {
			return &RunError{
				Message: "YAML parsing error: " + err.Error(),
				Stderr:  err.Error(),
				Err:     err,
			}
		}
	} else {
		tree, err = topology.Normalize(config)
		if err != nil {
			return &RunError{
				Message: "Failed to write config file: " + err.Error(),
				Stderr:  err.Error(),
				Err:     err,
			}
		}
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &RunError{
			Message: "Failed to write config file: " + err.Error(),
			Stderr:  err.Error(),
			Err:     err,
		}
	}
	return nil
}

// formatTimeout renders whole minutes the way operators write them
func formatTimeout(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
