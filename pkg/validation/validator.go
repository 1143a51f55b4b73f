package validation

import (
	"context"
	"errors"
	"io"

	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/topology"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidSchema is returned when a schema document cannot be compiled
var ErrInvalidSchema = errors.New("invalid schema")

var tracer = otel.Tracer("topgen/validation")

// Stage names the validation step that produced a result's errors
type Stage string

const (
	StageNone     Stage = ""
	StageParse    Stage = "parse"
	StageSchema   Stage = "schema"
	StageDecode   Stage = "decode"
	StageSemantic Stage = "semantic"
)

// Result is the outcome of validating one configuration
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`

	// Stage is the step that reported Errors, StageNone when valid
	Stage Stage `json:"-"`
}

func newResult(stage Stage, errs []string) *Result {
	if errs == nil {
		errs = []string{}
	}
	if len(errs) == 0 {
		stage = StageNone
	}
	return &Result{
		Valid:  len(errs) == 0,
		Errors: errs,
		Stage:  stage,
	}
}

// ConfigValidator runs the schema gate followed by the semantic checks.
// It holds no per-call state and may be shared between goroutines.
type ConfigValidator struct {
	gate    *SchemaGate
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// Option configures a ConfigValidator
type Option func(*ConfigValidator)

// WithLogger attaches a logger for debug output
func WithLogger(logger logrus.FieldLogger) Option {
	return func(v *ConfigValidator) {
		v.logger = logger
	}
}

// WithMetrics records validation outcomes
func WithMetrics(metrics *observability.Metrics) Option {
	return func(v *ConfigValidator) {
		v.metrics = metrics
	}
}

// NewConfigValidator creates a validator around a compiled schema gate
func NewConfigValidator(gate *SchemaGate, opts ...Option) *ConfigValidator {
	v := &ConfigValidator{gate: gate}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		v.logger = discard
	}
	return v
}

// Gate returns the schema gate used by the validator
func (v *ConfigValidator) Gate() *SchemaGate {
	return v.gate
}

// Validate parses raw YAML (or JSON) text and validates it
func (v *ConfigValidator) Validate(raw []byte) *Result {
	return v.ValidateContext(context.Background(), raw)
}

// ValidateContext is Validate with the span parented to ctx
func (v *ConfigValidator) ValidateContext(ctx context.Context, raw []byte) *Result {
	ctx, span := tracer.Start(ctx, "Validate", trace.WithAttributes(
		attribute.Int("validation.input_bytes", len(raw)),
	))
	defer span.End()

	tree, err := topology.ParseYAML(raw)
	if err != nil {
		return v.finish(span, newResult(StageParse, []string{"YAML parsing error: " + err.Error()}))
	}
	return v.finish(span, v.validateTree(ctx, tree))
}

// ValidateDocument validates an already parsed document
func (v *ConfigValidator) ValidateDocument(doc any) *Result {
	return v.ValidateDocumentContext(context.Background(), doc)
}

// ValidateDocumentContext is ValidateDocument with the span parented to ctx
func (v *ConfigValidator) ValidateDocumentContext(ctx context.Context, doc any) *Result {
	ctx, span := tracer.Start(ctx, "ValidateDocument")
	defer span.End()

	tree, err := topology.Normalize(doc)
	if err != nil {
		return v.finish(span, newResult(StageDecode, []string{"Configuration decode error: " + err.Error()}))
	}
	return v.finish(span, v.validateTree(ctx, tree))
}

func (v *ConfigValidator) validateTree(ctx context.Context, tree any) *Result {
	_, span := tracer.Start(ctx, "validateTree")
	defer span.End()

	if schemaErrs := v.gate.Check(tree); len(schemaErrs) > 0 {
		span.SetAttributes(attribute.String("validation.stage", string(StageSchema)))
		return newResult(StageSchema, schemaErrs)
	}

	doc, err := topology.Decode(tree)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("validation.stage", string(StageDecode)))
		return newResult(StageDecode, []string{"Configuration decode error: " + err.Error()})
	}

	span.SetAttributes(
		attribute.String("validation.stage", string(StageSemantic)),
		attribute.Int("topology.endpoints", len(doc.Endpoints)),
		attribute.Int("topology.connections", len(doc.Connections)),
	)
	return newResult(StageSemantic, ValidateSemantics(doc))
}

// finish logs and records the result on the entry span. An invalid
// configuration is a normal outcome and leaves the span status unset.
func (v *ConfigValidator) finish(span trace.Span, result *Result) *Result {
	span.SetAttributes(
		attribute.Bool("validation.valid", result.Valid),
		attribute.String("validation.stage", string(result.Stage)),
		attribute.Int("validation.error_count", len(result.Errors)),
	)
	if result.Valid {
		span.SetStatus(codes.Ok, "")
	}

	v.logger.WithFields(logrus.Fields{
		"valid":       result.Valid,
		"stage":       string(result.Stage),
		"error_count": len(result.Errors),
	}).Debug("configuration validated")

	if v.metrics != nil {
		v.metrics.RecordValidation(result.Valid, string(result.Stage), len(result.Errors))
	}
	return result
}
