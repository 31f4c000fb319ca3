package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/gollm"
	"go.uber.org/zap"

	"slangbridge/config"
	"slangbridge/mocks"
)

func testBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
}

func newTestGateway(generateFunc func(context.Context, *gollm.Prompt) (string, error)) *Gateway {
	return New(mocks.NewMockLLM(generateFunc), testBreakerConfig(), 5*time.Second, nil, zap.NewNop())
}

func TestGenerateSuccessTrimsWhitespace(t *testing.T) {
	g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		return "  bonjour  \n", nil
	})

	out := g.Generate(context.Background(), "hello")
	assert.False(t, out.Failed())
	assert.Equal(t, "bonjour", out.Text)
	assert.Equal(t, KindNone, out.Kind)
}

func TestGeneratePassesPromptThrough(t *testing.T) {
	var got string
	g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		require.Len(t, prompt.Messages, 1)
		got = prompt.Messages[0].Content
		return "ok", nil
	})

	g.Generate(context.Background(), "the exact prompt")
	assert.Equal(t, "the exact prompt", got)
}

func TestGenerateEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
				return tt.text, nil
			})
			out := g.Generate(context.Background(), "hello")
			assert.True(t, out.Failed())
			assert.Equal(t, KindEmptyResponse, out.Kind)
			assert.Empty(t, out.Text)
		})
	}
}

func TestGenerateFailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "unauthorized",
			err:  errors.New("request failed: 401 Unauthorized"),
			want: KindUnauthorized,
		},
		{
			name: "invalid api key",
			err:  errors.New("invalid API key provided"),
			want: KindUnauthorized,
		},
		{
			name: "rate limit",
			err:  errors.New("429: rate limit exceeded"),
			want: KindServiceUnavailable,
		},
		{
			name: "quota",
			err:  errors.New("quota exhausted for this billing period"),
			want: KindServiceUnavailable,
		},
		{
			name: "server error",
			err:  errors.New("upstream returned 503 Service Unavailable"),
			want: KindServiceUnavailable,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: KindServiceUnavailable,
		},
		{
			name: "unexpected",
			err:  errors.New("something inexplicable happened"),
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
				return "", tt.err
			})
			out := g.Generate(context.Background(), "hello")
			assert.True(t, out.Failed())
			assert.Equal(t, tt.want, out.Kind)
		})
	}
}

func TestGenerateRecoversFromPanic(t *testing.T) {
	g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		panic("client blew up")
	})

	out := g.Generate(context.Background(), "hello")
	assert.True(t, out.Failed())
	assert.Equal(t, KindUnknown, out.Kind)
}

func TestGenerateNoRetry(t *testing.T) {
	calls := 0
	g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		calls++
		return "", errors.New("503 unavailable")
	})

	g.Generate(context.Background(), "hello")
	assert.Equal(t, 1, calls)
}

func TestBreakerShortCircuits(t *testing.T) {
	calls := 0
	g := newTestGateway(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		calls++
		return "", errors.New("503 unavailable")
	})

	// Trip the breaker with consecutive failures.
	for i := 0; i < 3; i++ {
		out := g.Generate(context.Background(), "hello")
		assert.Equal(t, KindServiceUnavailable, out.Kind)
	}
	require.Equal(t, 3, calls)

	// Breaker is open now: no outbound call is made, failure is immediate.
	out := g.Generate(context.Background(), "hello")
	assert.Equal(t, KindServiceUnavailable, out.Kind)
	assert.Equal(t, 3, calls)
}

func TestClassifyBreakerErrors(t *testing.T) {
	assert.Equal(t, KindServiceUnavailable, classify(gobreaker.ErrOpenState))
	assert.Equal(t, KindServiceUnavailable, classify(gobreaker.ErrTooManyRequests))
}

func TestOutcomeHelpers(t *testing.T) {
	ok := Success("text")
	assert.False(t, ok.Failed())
	assert.Equal(t, "text", ok.Text)

	bad := Failure(KindUnknown)
	assert.True(t, bad.Failed())
	assert.Empty(t, bad.Text)
	assert.Equal(t, "unknown", bad.Kind.String())
	assert.Equal(t, "none", KindNone.String())
}
