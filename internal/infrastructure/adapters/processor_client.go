package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/pkg/observability"
)

const maxResponseBody = 1 << 20

// ProcessorClient performs outbound processor HTTP calls behind a circuit
// breaker, timing each call.
type ProcessorClient struct {
	http     *http.Client
	breakers *Breakers
	metrics  *observability.PaymentMetrics
	logger   *slog.Logger
}

// NewProcessorClient builds a client with the given request timeout.
// metrics may be nil.
func NewProcessorClient(timeout time.Duration, breakers *Breakers, metrics *observability.PaymentMetrics, logger *slog.Logger) *ProcessorClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProcessorClient{
		http:     &http.Client{Timeout: timeout},
		breakers: breakers,
		metrics:  metrics,
		logger:   logger,
	}
}

type processorResponse struct {
	StatusCode int
	Body       []byte
}

// do sends req for gateway. Non-2xx answers return *model.UpstreamError with
// Rejected set; transport failures return it with Rejected unset.
func (c *ProcessorClient) do(ctx context.Context, gateway string, req *http.Request) (processorResponse, error) {
	ctx, span := observability.Tracer("zimaio/payment/adapters").Start(ctx, gateway+".call")
	defer span.End()
	span.SetAttributes(attribute.String("gateway", gateway), attribute.String("http.url", req.URL.Host+req.URL.Path))
	req = req.WithContext(ctx)

	start := time.Now()
	res, err := executeWithBreaker(c.breakers, gateway, func() (processorResponse, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return processorResponse{}, &model.UpstreamError{Gateway: gateway, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return processorResponse{}, &model.UpstreamError{Gateway: gateway, Err: fmt.Errorf("reading response body: %w", err)}
		}

		out := processorResponse{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return out, &model.UpstreamError{
				Gateway:    gateway,
				StatusCode: resp.StatusCode,
				Body:       string(body),
				Rejected:   true,
			}
		}
		return out, nil
	})
	c.metrics.ObserveGatewayCall(ctx, gateway, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("payment processor call failed",
			"gateway", gateway,
			"status_code", res.StatusCode,
			"body", string(res.Body),
			"error", err,
		)
		return res, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	return res, nil
}
