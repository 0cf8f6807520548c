package ipcrouter

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "deskkit/ipcrouter"

// TracingConfig configures OTel span emission for router calls.
type TracingConfig struct {
	TracerName string
	tracer     trace.Tracer
}

func defaultTracingConfig() TracingConfig {
	return TracingConfig{TracerName: defaultTracerName}
}

// TracingOption configures EnableTracing.
type TracingOption func(*TracingConfig)

// WithTracerName overrides the tracer name (default "deskkit/ipcrouter").
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) { c.TracerName = name }
}

// EnableTracing wires OpenTelemetry spans into the router: each call opens a
// span named "IPC Call/<handler>" carrying rpc.system, sender.id, and the
// response code, using the process's global tracer provider.
func EnableTracing(r *Router, opts ...TracingOption) {
	cfg := defaultTracingConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	r.tracing = &cfg
}

func (c *TracingConfig) startSpan(ctx context.Context, handler, senderID string) (context.Context, trace.Span) {
	if c == nil {
		return ctx, nil
	}
	return c.tracer.Start(ctx, "IPC Call/"+handler,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "deskkit.ipc"),
			attribute.String("rpc.method", handler),
			attribute.String("sender.id", senderID),
		),
	)
}

func endSpan(span trace.Span, resp Response, err error) {
	if span == nil {
		return
	}
	defer span.End()
	span.SetAttributes(attribute.Int("ipc.response_code", int(resp.Code)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if resp.Code != CodeOK {
		span.SetStatus(codes.Error, resp.Message)
		return
	}
	span.SetStatus(codes.Ok, "")
}
