// Package telegram is the transport adapter: it translates Telegram updates
// into conversation events for the controller and executes the controller's
// render instructions through the bot API. One long-lived bot handle covers
// both directions.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"slangbridge/config"
	"slangbridge/relay"
)

// Verify at compile time that Adapter implements the controller's render port.
var _ relay.Renderer = (*Adapter)(nil)

// Adapter connects a telebot long-polling bot to the relay controller.
type Adapter struct {
	bot    *tele.Bot
	seq    *relay.Sequencer
	logger *zap.Logger
}

// New creates the bot handle. It fails when the token is missing or Telegram
// rejects it.
func New(cfg config.BotConfig, logger *zap.Logger) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			logger.Error("Telegram handler error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Adapter{
		bot:    bot,
		seq:    relay.NewSequencer(),
		logger: logger,
	}, nil
}

// Bind registers the update handlers. Updates are dispatched concurrently by
// telebot, so every event goes through the per-user sequencer to keep a
// single user's events in arrival order. ctx is the run context handed to
// selection handling; it outlives any single update.
func (a *Adapter) Bind(ctx context.Context, ctrl *relay.Controller) {
	a.bot.Handle("/start", func(c tele.Context) error {
		a.dispatchReset(ctrl, c.Sender().ID)
		return nil
	})

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		a.dispatchText(ctrl, c.Sender().ID, c.Text())
		return nil
	})

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || cb.Sender == nil || cb.Message == nil {
			return nil
		}

		key, ok := ParseModeKey(cb.Data)
		if !ok {
			// Callback with another prefix; not addressed to this controller.
			return c.Respond()
		}

		// Answer the callback right away so the client stops its spinner.
		if err := c.Respond(&tele.CallbackResponse{}); err != nil {
			a.logger.Warn("Failed to answer callback", zap.Error(err))
		}

		ref := relay.MessageRef{
			ChatID:    cb.Message.Chat.ID,
			MessageID: strconv.Itoa(cb.Message.ID),
		}
		a.dispatchSelection(ctx, ctrl, cb.Sender.ID, ref, key)
		return nil
	})
}

func (a *Adapter) dispatchReset(ctrl *relay.Controller, userID int64) {
	a.seq.Do(userID, func() {
		ctrl.HandleReset(userID)
	})
}

// dispatchText routes an inbound text message. Commands with no dedicated
// handler fall through to the text endpoint; they are not translatable
// content, so they are dropped without touching state.
func (a *Adapter) dispatchText(ctrl *relay.Controller, userID int64, text string) {
	if IsCommand(text) {
		a.logger.Debug("Ignoring unhandled command", zap.Int64("user_id", userID))
		return
	}
	a.seq.Do(userID, func() {
		ctrl.HandleText(userID, text)
	})
}

func (a *Adapter) dispatchSelection(ctx context.Context, ctrl *relay.Controller, userID int64, ref relay.MessageRef, key string) {
	a.seq.Do(userID, func() {
		ctrl.HandleSelection(ctx, userID, ref, key)
	})
}

// Start begins long polling and blocks until ctx is done.
func (a *Adapter) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()

	a.logger.Info("Telegram bot started", zap.String("username", a.bot.Me.Username))
	a.bot.Start()
	return nil
}

// SendText sends a plain message to the user.
func (a *Adapter) SendText(userID int64, body string) error {
	_, err := a.bot.Send(&tele.User{ID: userID}, body)
	return err
}

// SendChoices sends a message with a single row of inline buttons, one per
// choice, in the given order.
func (a *Adapter) SendChoices(userID int64, body string, buttons []relay.Button) error {
	row := make([]tele.InlineButton, len(buttons))
	for i, b := range buttons {
		row[i] = tele.InlineButton{Text: b.Label, Data: b.Data}
	}
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}

	_, err := a.bot.Send(&tele.User{ID: userID}, body, markup)
	return err
}

// EditMessage replaces the message body. Editing without a reply markup
// strips the inline keyboard, which is exactly what the controller wants.
func (a *Adapter) EditMessage(ref relay.MessageRef, body string) error {
	_, err := a.bot.Edit(tele.StoredMessage{MessageID: ref.MessageID, ChatID: ref.ChatID}, body)
	return err
}

// IsCommand reports whether a message is a bot command rather than
// translatable content. Telegram commands start with a slash.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// ParseModeKey extracts the mode key from callback data. It accepts only
// data carrying the controller's callback prefix; telebot's internal "\f"
// marker is tolerated in front of it.
func ParseModeKey(data string) (string, bool) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, relay.CallbackPrefix) {
		return "", false
	}
	key := data[len(relay.CallbackPrefix):]
	if key == "" {
		return "", false
	}
	return key, true
}
