package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mailactivate/client-go"

// telemetry holds OpenTelemetry instrumentation for API calls.
type telemetry struct {
	tracer trace.Tracer

	requestLatency metric.Float64Histogram
	requestCount   metric.Int64Counter
	requestErrors  metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*telemetry, error) {
	t := &telemetry{
		tracer: tp.Tracer(instrumentationName),
	}

	meter := mp.Meter(instrumentationName)

	var err error
	t.requestLatency, err = meter.Float64Histogram(
		"mailactivate.request.duration",
		metric.WithDescription("Duration of SMS-Activate API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	t.requestCount, err = meter.Int64Counter(
		"mailactivate.request.count",
		metric.WithDescription("Number of SMS-Activate API requests"),
	)
	if err != nil {
		return nil, err
	}

	t.requestErrors, err = meter.Int64Counter(
		"mailactivate.request.errors",
		metric.WithDescription("Number of failed SMS-Activate API requests"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (t *telemetry) startSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
	return ctx, func(err error) {
		endSpan(span, err)
	}
}

// startRequestSpan starts a client span for one API action.
func (t *telemetry) startRequestSpan(ctx context.Context, action, requestID string) (context.Context, func(int, error)) {
	ctx, span := t.tracer.Start(ctx, "mailactivate."+action,
		trace.WithAttributes(
			attribute.String("mailactivate.action", action),
			attribute.String("mailactivate.request_id", requestID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, func(statusCode int, err error) {
		if statusCode != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
		}
		if code := errorCode(err); code != "" {
			span.SetAttributes(attribute.String("mailactivate.error_code", code))
		}
		endSpan(span, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// record records request metrics.
func (t *telemetry) record(ctx context.Context, action string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("action", action))

	t.requestLatency.Record(ctx, duration.Seconds(), attrs)
	t.requestCount.Add(ctx, 1, attrs)
	if err != nil {
		t.requestErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("error_code", errorCode(err)),
		))
	}
}
