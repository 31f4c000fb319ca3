// Package gateway wraps the outbound text-generation call. It owns the single
// long-lived LLM client handle, applies the per-call timeout and circuit
// breaker, and normalizes every possible failure into an Outcome so that no
// error or panic ever crosses this boundary.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/teilomillet/gollm"
	"go.uber.org/zap"

	"slangbridge/config"
	"slangbridge/metrics"
)

// Gateway issues generation calls against a shared LLM client. It is safe for
// concurrent use; the client handle is created once at startup and reused for
// every request.
type Gateway struct {
	llm     gollm.LLM
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a gateway around the given LLM client. The circuit breaker
// opens after cfg.FailureThreshold consecutive failures and short-circuits
// further calls to a ServiceUnavailable outcome until cfg.Timeout has passed.
func New(llm gollm.LLM, cfg config.CircuitBreakerConfig, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	g := &Gateway{
		llm:     llm,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.BreakerState.Set(breakerStateValue(to))
			}
		},
	})

	return g
}

// Generate issues exactly one outbound generation call for the given prompt
// and converts the result into an Outcome. There is no retry: failures are
// surfaced to the caller, which decides what to tell the user. Success text
// is trimmed of leading and trailing whitespace; a response with no usable
// text is an EmptyResponse failure.
func (g *Gateway) Generate(ctx context.Context, prompt string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Generation panicked", zap.Any("panic", r))
			out = g.fail(KindUnknown)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	v, err := g.breaker.Execute(func() (interface{}, error) {
		return g.llm.Generate(ctx, &gollm.Prompt{
			Messages: []gollm.PromptMessage{
				{Role: "user", Content: prompt},
			},
		})
	})
	duration := time.Since(start)

	if err != nil {
		kind := classify(err)
		g.logger.Warn("Generation failed",
			zap.String("kind", string(kind)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return g.fail(kind)
	}

	text := strings.TrimSpace(v.(string))
	if text == "" {
		g.logger.Warn("Generation returned no usable text",
			zap.Duration("duration", duration),
		)
		return g.fail(KindEmptyResponse)
	}

	g.logger.Debug("Generation succeeded",
		zap.Duration("duration", duration),
		zap.Int("response_length", len(text)),
	)
	return Success(text)
}

func (g *Gateway) fail(kind ErrorKind) Outcome {
	if g.metrics != nil {
		g.metrics.GenerationErrors.WithLabelValues(string(kind)).Inc()
	}
	return Failure(kind)
}

// classify maps an underlying service error onto an ErrorKind. The mapping is
// deliberately coarse: the controller only ever needs to know which of the
// four categories the failure falls into.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindServiceUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "401", "403", "forbidden", "api key", "permission denied", "invalid authentication"):
		return KindUnauthorized
	case containsAny(msg, "429", "rate limit", "quota", "timeout", "timed out", "unavailable", "connection refused", "connection reset", "no such host", "500", "502", "503", "504", "overloaded"):
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// String implements fmt.Stringer for log output.
func (k ErrorKind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

var _ fmt.Stringer = KindNone
