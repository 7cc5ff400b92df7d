package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	ServiceName string
}

// InitMetrics initializes the Prometheus metrics exporter and installs the
// provider globally. Returns the MeterProvider and an HTTP handler for the
// /metrics endpoint.
func InitMetrics(_ MetricsConfig) (*sdkmetric.MeterProvider, http.Handler, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	handler := promhttp.Handler()

	return provider, handler, nil
}

// PaymentMetrics holds the instruments recorded around payment attempts.
type PaymentMetrics struct {
	attempts    metric.Int64Counter
	gatewayCall metric.Float64Histogram
}

// NewPaymentMetrics registers the payment instruments on the given provider.
// A nil provider falls back to the global one.
func NewPaymentMetrics(provider metric.MeterProvider) (*PaymentMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("zimaio/payment")

	attempts, err := meter.Int64Counter("payment_attempts_total",
		metric.WithDescription("Payment attempts by gateway and outcome."))
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	gatewayCall, err := meter.Float64Histogram("payment_gateway_call_seconds",
		metric.WithDescription("Latency of outbound payment processor calls."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating gateway call histogram: %w", err)
	}

	return &PaymentMetrics{attempts: attempts, gatewayCall: gatewayCall}, nil
}

// RecordAttempt counts one finished attempt. Safe on a nil receiver.
func (m *PaymentMetrics) RecordAttempt(ctx context.Context, gateway, outcome string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("outcome", outcome),
	))
}

// ObserveGatewayCall records the duration of one processor round-trip. Safe on a nil receiver.
func (m *PaymentMetrics) ObserveGatewayCall(ctx context.Context, gateway string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCall.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("gateway", gateway)))
}
