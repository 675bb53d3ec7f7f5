// Package observability provides distributed tracing and LLM cost tracking
// for the orchestration engine. The engine opens a session span per run, a
// task span per executed task, and an LLM span per generator completion;
// the forge, git and iteration span helpers are not called by the engine.
// Cost tracking can attribute generator spend to a task id, but the OpenAI
// generator records its calls with an empty task id.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled       bool
	ServiceName   string
	Environment   string
	Exporter      string  // jaeger, otlp, stdout
	JaegerURL     string  // e.g., http://localhost:14268/api/traces
	OTLPEndpoint  string  // e.g., localhost:4317
	SamplingRatio float64 // 0.0 to 1.0
}

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   TracingConfig
}

// SpanKind represents the type of span
type SpanKind string

const (
	SpanKindSession   SpanKind = "session"
	SpanKindIteration SpanKind = "iteration"
	SpanKindTask      SpanKind = "task"
	SpanKindLLM       SpanKind = "llm"
	SpanKindForge     SpanKind = "forge"
	SpanKindGit       SpanKind = "git"
	SpanKindApply     SpanKind = "apply"
)

// Common attribute keys
const (
	AttrSessionRequest = "session.request"
	AttrIteration      = "session.iteration"

	AttrTaskID       = "task.id"
	AttrTaskTitle    = "task.title"
	AttrTaskPriority = "task.priority"
	AttrTaskStatus   = "task.status"

	AttrLLMProvider         = "llm.provider"
	AttrLLMModel            = "llm.model"
	AttrLLMPromptTokens     = "llm.prompt_tokens"
	AttrLLMCompletionTokens = "llm.completion_tokens"
	AttrLLMTotalTokens      = "llm.total_tokens"
	AttrLLMCost             = "llm.cost"

	AttrForgeOperation = "forge.operation"
	AttrPRNumber       = "forge.pr_number"
	AttrCommentID      = "forge.comment_id"

	AttrGitOperation = "git.operation"
	AttrGitBranch    = "git.branch"

	AttrFilePath = "apply.file_path"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// NewTracer creates a new tracer instance
func NewTracer(config TracingConfig) (*Tracer, error) {
	if !config.Enabled {
		// Return a no-op tracer
		return &Tracer{
			tracer:   otel.Tracer("yaver-noop"),
			provider: nil,
			config:   config,
		}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch config.Exporter {
	case "jaeger":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerURL)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
	case "otlp":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(), // Use WithTLSCredentials() in production
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	case "stdout":
		// For development: log to stdout
		exporter = &logSpanExporter{}
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", config.Exporter)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			attribute.String("environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRatio))

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer("yaver-orchestrator"),
		provider: provider,
		config:   config,
	}, nil
}

// Close shuts down the tracer provider
func (t *Tracer) Close(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, kind SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("span.kind", string(kind)))
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSessionSpan starts the root span for one engine session.
func (t *Tracer) StartSessionSpan(ctx context.Context, userRequest string) (context.Context, trace.Span) {
	if len(userRequest) > 100 {
		userRequest = userRequest[:100]
	}
	return t.StartSpan(ctx, "session.run", SpanKindSession,
		attribute.String(AttrSessionRequest, userRequest),
	)
}

// StartIterationSpan starts a span for one cycle of the iteration loop.
func (t *Tracer) StartIterationSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "session.iteration", SpanKindIteration,
		attribute.Int(AttrIteration, iteration),
	)
}

// StartTaskSpan starts a span for executing one task.
func (t *Tracer) StartTaskSpan(ctx context.Context, taskID, title, priority string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "task.execute", SpanKindTask,
		attribute.String(AttrTaskID, taskID),
		attribute.String(AttrTaskTitle, title),
		attribute.String(AttrTaskPriority, priority),
	)
}

// StartLLMSpan starts a span for a generator call.
func (t *Tracer) StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, fmt.Sprintf("llm.%s.%s", provider, model), SpanKindLLM,
		attribute.String(AttrLLMProvider, provider),
		attribute.String(AttrLLMModel, model),
	)
}

// RecordLLMTokens records token usage on an LLM span
func (t *Tracer) RecordLLMTokens(span trace.Span, promptTokens, completionTokens int, cost float64) {
	span.SetAttributes(
		attribute.Int(AttrLLMPromptTokens, promptTokens),
		attribute.Int(AttrLLMCompletionTokens, completionTokens),
		attribute.Int(AttrLLMTotalTokens, promptTokens+completionTokens),
		attribute.Float64(AttrLLMCost, cost),
	)
}

// StartForgeSpan starts a span for a forge RPC.
func (t *Tracer) StartForgeSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, fmt.Sprintf("forge.%s", operation), SpanKindForge,
		attribute.String(AttrForgeOperation, operation),
	)
}

// StartGitSpan starts a span for a local git operation.
func (t *Tracer) StartGitSpan(ctx context.Context, operation, branch string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, fmt.Sprintf("git.%s", operation), SpanKindGit,
		attribute.String(AttrGitOperation, operation),
		attribute.String(AttrGitBranch, branch),
	)
}

// RecordError records an error on a span
func (t *Tracer) RecordError(span trace.Span, err error, errorType string) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.SetAttributes(
			attribute.String(AttrErrorType, errorType),
			attribute.String(AttrErrorMessage, err.Error()),
		)
	}
}

// EndSpan ends a span with optional error
func (t *Tracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddEvent adds an event to a span
func (t *Tracer) AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID extracts the trace ID from context
func (t *Tracer) GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID extracts the span ID from context
func (t *Tracer) GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasSpanID() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// logSpanExporter prints finished spans to stdout, for development.
type logSpanExporter struct{}

func (e *logSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fmt.Printf("[TRACE] %s | %s | %v | %v\n",
			span.Name(),
			span.SpanContext().TraceID().String(),
			span.StartTime(),
			span.EndTime().Sub(span.StartTime()),
		)
	}
	return nil
}

func (e *logSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// Global tracer instance
var globalTracer *Tracer

// InitGlobalTracer initializes the global tracer
func InitGlobalTracer(config TracingConfig) error {
	tracer, err := NewTracer(config)
	if err != nil {
		return err
	}
	globalTracer = tracer
	return nil
}

// GetTracer returns the global tracer
func GetTracer() *Tracer {
	if globalTracer == nil {
		// Fallback to no-op tracer
		_ = InitGlobalTracer(TracingConfig{
			Enabled:     false,
			ServiceName: "yaver",
			Environment: "development",
		})
	}
	return globalTracer
}

// ShutdownTracer shuts down the global tracer
func ShutdownTracer(ctx context.Context) error {
	if globalTracer != nil {
		return globalTracer.Close(ctx)
	}
	return nil
}

// Convenience functions using global tracer

// StartSpan starts a span using global tracer
func StartSpan(ctx context.Context, name string, kind SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().StartSpan(ctx, name, kind, attrs...)
}

// StartSessionSpan starts a session span using global tracer
func StartSessionSpan(ctx context.Context, userRequest string) (context.Context, trace.Span) {
	return GetTracer().StartSessionSpan(ctx, userRequest)
}

// StartIterationSpan starts an iteration span using global tracer
func StartIterationSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return GetTracer().StartIterationSpan(ctx, iteration)
}

// StartTaskSpan starts a task span using global tracer
func StartTaskSpan(ctx context.Context, taskID, title, priority string) (context.Context, trace.Span) {
	return GetTracer().StartTaskSpan(ctx, taskID, title, priority)
}

// StartLLMSpan starts an LLM span using global tracer
func StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return GetTracer().StartLLMSpan(ctx, provider, model)
}

// StartForgeSpan starts a forge span using global tracer
func StartForgeSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return GetTracer().StartForgeSpan(ctx, operation)
}

// RecordError records an error using global tracer
func RecordError(span trace.Span, err error, errorType string) {
	GetTracer().RecordError(span, err, errorType)
}

// EndSpan ends a span using global tracer
func EndSpan(span trace.Span, err error) {
	GetTracer().EndSpan(span, err)
}
