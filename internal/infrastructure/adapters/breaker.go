package adapters

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
)

// BreakerSettings configures the per-gateway circuit breakers.
type BreakerSettings struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears failure counts while closed; zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// Breakers holds one circuit breaker per gateway type. A processor that keeps
// failing is not called again until the timeout lapses.
type Breakers struct {
	mu       sync.Mutex
	settings BreakerSettings
	byName   map[string]*gobreaker.CircuitBreaker
	logger   *slog.Logger
}

func NewBreakers(settings BreakerSettings, logger *slog.Logger) *Breakers {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	return &Breakers{
		settings: settings,
		byName:   make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
}

func (b *Breakers) get(name string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byName[name]; ok {
		return cb
	}

	threshold := b.settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: b.settings.MaxRequests,
		Interval:    b.settings.Interval,
		Timeout:     b.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("gateway circuit breaker state changed",
				"gateway", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: countsAsSuccess,
	})
	b.byName[name] = cb
	return cb
}

// countsAsSuccess keeps processor-side client errors (4xx) from tripping the
// breaker; only transport failures and 5xx answers count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var up *model.UpstreamError
	if errors.As(err, &up) && up.Rejected && up.StatusCode < 500 {
		return true
	}
	return false
}

// executeWithBreaker runs fn under the named breaker. An open breaker surfaces
// as model.ErrGatewayCircuitOpen.
func executeWithBreaker[T any](b *Breakers, name string, fn func() (T, error)) (T, error) {
	res, err := b.get(name).Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return *new(T), fmt.Errorf("%s: %w", name, model.ErrGatewayCircuitOpen)
		}
		// fn's partial result is still useful to the caller (the rejected body).
		if r, ok := res.(T); ok {
			return r, err
		}
		return *new(T), err
	}

	return res.(T), nil
}
