package anthropic

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type anthropicMetricSet struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var anthropicMetricsInit = false
var aiMetrics anthropicMetricSet

func ensureAnthropicMetrics() {
	if anthropicMetricsInit {
		return
	}
	meter := otel.Meter("github.com/drugfactsio/backend/anthropic")

	requestCount, err := meter.Int64Counter(
		"ai.anthropic.request.count",
		metric.WithDescription("Number of Anthropic requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.anthropic.request.duration",
		metric.WithDescription("Anthropic request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.anthropic.request.errors",
		metric.WithDescription("Number of Anthropic request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.anthropic.rate_limit.wait",
		metric.WithDescription("Time spent waiting for Anthropic rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	aiMetrics = anthropicMetricSet{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	anthropicMetricsInit = true
}

func recordAnthropicMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureAnthropicMetrics()
	if !anthropicMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "anthropic"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	aiMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	aiMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		aiMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordAnthropicRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureAnthropicMetrics()
	if !anthropicMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "anthropic"),
		attribute.String("ai.model", model),
	}
	aiMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
