package metrics

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests  metric.Int64Counter
	HTTPDuration  metric.Float64Histogram
	LoginAttempts metric.Int64Counter
	Registrations metric.Int64Counter
	PostsWritten  metric.Int64Counter
	Comments      metric.Int64Counter
}

// Setup builds the meter and returns the handler exposing it in Prometheus format.
// Each call gets its own registry.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"blog_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"blog_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.LoginAttempts, err = meter.Int64Counter(
		"blog_login_attempts_total",
		metric.WithDescription("Login attempts by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Registrations, err = meter.Int64Counter(
		"blog_registrations_total",
		metric.WithDescription("Registration attempts by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PostsWritten, err = meter.Int64Counter(
		"blog_post_writes_total",
		metric.WithDescription("Posts created, updated or deleted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Comments, err = meter.Int64Counter(
		"blog_comments_total",
		metric.WithDescription("Comments created"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	m.LoginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordRegistration(ctx context.Context, outcome string) {
	m.Registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordPostWrite counts a post mutation; op is "create", "update" or "delete".
func (m *Metrics) RecordPostWrite(ctx context.Context, op string) {
	m.PostsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) RecordComment(ctx context.Context) {
	m.Comments.Add(ctx, 1)
}
