// Package relay implements the per-user conversation state machine. A user is
// either idle or awaiting a mode choice for one stored text; every inbound
// event moves the machine and emits render instructions through the Renderer
// port. No event may panic or return an error to the transport: all failures
// become user-visible messages.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slangbridge/gateway"
	"slangbridge/metrics"
	"slangbridge/modes"
	"slangbridge/prompt"
	"slangbridge/store"
)

// Generator is the outbound generation boundary as the controller sees it.
// *gateway.Gateway satisfies it; tests substitute a counting fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) gateway.Outcome
}

// Controller consumes inbound conversation events and drives the store, the
// prompt builder and the generation gateway. It assumes events for a single
// user arrive in order (see Sequencer); across users it is safe to call
// concurrently.
type Controller struct {
	registry *modes.Registry
	builder  *prompt.Builder
	counter  *prompt.TokenCounter
	gen      Generator
	store    *store.PendingStore
	renderer Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewController wires the controller's collaborators. counter and m may be
// nil; everything else is required.
func NewController(
	registry *modes.Registry,
	builder *prompt.Builder,
	counter *prompt.TokenCounter,
	gen Generator,
	st *store.PendingStore,
	renderer Renderer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		registry: registry,
		builder:  builder,
		counter:  counter,
		gen:      gen,
		store:    st,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
	}
}

// HandleReset processes an explicit start/reset command: any pending text is
// dropped and the user gets a greeting.
func (c *Controller) HandleReset(userID int64) {
	c.countEvent("reset")
	c.store.Clear(userID)
	c.render(userID, c.renderer.SendText(userID, msgGreeting))
}

// HandleText processes an inbound text message. Non-empty text becomes the
// user's pending entry (overwriting any previous one) and the mode choice is
// rendered. Empty content is ignored: no state change, no render.
func (c *Controller) HandleText(userID int64, text string) {
	if strings.TrimSpace(text) == "" {
		c.logger.Debug("Ignoring empty text event", zap.Int64("user_id", userID))
		return
	}
	c.countEvent("text")

	c.store.Put(userID, text)

	list := c.registry.List()
	buttons := make([]Button, len(list))
	for i, m := range list {
		buttons[i] = Button{Label: m.Label, Data: CallbackPrefix + m.Key}
	}
	c.render(userID, c.renderer.SendChoices(userID, msgChooseDirection, buttons))
}

// HandleSelection processes a mode choice for the message identified by ref.
// The happy path acknowledges with a working edit before the generation call
// so the user gets feedback ahead of any network latency. Whatever happens,
// the user ends up idle: the pending entry is consumed (or was never there)
// and the machine is ready for the next text.
func (c *Controller) HandleSelection(ctx context.Context, userID int64, ref MessageRef, modeKey string) {
	c.countEvent("selection")
	logger := c.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.Int64("user_id", userID),
		zap.String("mode", modeKey),
	)

	mode, ok := c.registry.Lookup(modeKey)
	if !ok {
		logger.Warn("Selection carried an unregistered mode key")
		c.render(userID, c.renderer.EditMessage(ref, msgUnknownMode))
		return
	}

	rawText, ok := c.store.Take(userID)
	if !ok {
		logger.Info("Selection with no pending text")
		c.render(userID, c.renderer.EditMessage(ref, msgNoText))
		return
	}

	c.render(userID, c.renderer.EditMessage(ref, workingMessage(mode.Label)))

	built, err := c.builder.Build(mode, rawText)
	if err != nil {
		// Unreachable with a valid template; treated as a service failure.
		logger.Error("Prompt build failed", zap.Error(err))
		c.render(userID, c.renderer.EditMessage(ref, failureMessage(mode.Label)))
		return
	}
	if c.counter != nil {
		tokens := c.counter.Count(built)
		logger.Debug("Prompt built", zap.Int("prompt_tokens", tokens))
		if c.metrics != nil {
			c.metrics.PromptTokens.Observe(float64(tokens))
		}
	}

	start := time.Now()
	outcome := c.gen.Generate(ctx, built)
	if c.metrics != nil {
		c.metrics.GenerationDuration.WithLabelValues(mode.Key).Observe(time.Since(start).Seconds())
	}
	if outcome.Failed() {
		logger.Warn("Generation failed", zap.String("kind", outcome.Kind.String()))
		c.render(userID, c.renderer.EditMessage(ref, failureMessage(mode.Label)))
		return
	}

	logger.Info("Generation succeeded", zap.Int("response_length", len(outcome.Text)))
	c.render(userID, c.renderer.EditMessage(ref, resultMessage(outcome.Text)))
}

// render logs a failed render instruction. Delivery problems are the
// transport's concern; the state machine does not change course on them.
func (c *Controller) render(userID int64, err error) {
	if err != nil {
		c.logger.Warn("Render instruction failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (c *Controller) countEvent(event string) {
	if c.metrics != nil {
		c.metrics.EventsTotal.WithLabelValues(event).Inc()
	}
}
