package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/config"
	"relaybot/internal/metrics"
)

// Gate decides whether a user's request fits the rate-limit window.
type Gate interface {
	Allow(ctx context.Context, userID int64) bool
}

// Dispatcher routes one webhook update: authorization, rate limiting,
// command replies, and spawning the relay pipeline for attachments. It
// returns quickly; heavy stages run detached so the webhook response is
// never held up.
type Dispatcher struct {
	cfg       *config.Config
	messenger Messenger
	pipeline  *Pipeline
	gate      Gate
	commands  *Commands
	exec      *Executor
	logger    *slog.Logger

	// baseCtx is the process-lifetime context handed to detached tasks;
	// request contexts die with the HTTP response.
	baseCtx context.Context
}

func NewDispatcher(baseCtx context.Context, cfg *config.Config, messenger Messenger, pipeline *Pipeline, gate Gate, commands *Commands, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		cfg:       cfg,
		messenger: messenger,
		pipeline:  pipeline,
		gate:      gate,
		commands:  commands,
		logger:    logger,
		baseCtx:   baseCtx,
	}
	d.exec = NewExecutor(logger, d.escalate)
	return d
}

// HandleUpdate processes one update envelope and returns before any network
// round trip completes. Updates without a usable message are ignored: empty
// keep-alive webhooks are a protocol norm.
func (d *Dispatcher) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	metrics.UpdatesTotal.Inc()

	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}

	if !d.cfg.IsAllowed(userID, chatID) {
		d.logger.Warn("unauthorized user", "user_id", userID, "chat_id", chatID)
		d.sendDetached(chatID, "⛔ You are not authorized to use this bot.")
		return
	}

	if d.gate != nil && !d.gate.Allow(d.baseCtx, userID) {
		metrics.Throttled.Inc()
		d.logger.Info("rate limited", "user_id", userID)
		d.sendDetached(chatID, "⚠️ Too many requests, please slow down and try again in a minute.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		metrics.CommandsTotal.Inc()
		reply := d.commands.Reply(d.baseCtx, userID, text)
		d.sendDetached(chatID, reply)
		return
	}

	att, ok := Classify(msg)
	if !ok {
		// Not a command, not an attachment: nothing to relay.
		return
	}

	d.logger.Info("attachment accepted",
		"user_id", userID, "chat_id", chatID,
		"kind", att.Kind.String(), "file", att.FileName)

	d.exec.Spawn(d.baseCtx, "relay "+att.FileName, func(ctx context.Context) error {
		return d.pipeline.Run(ctx, chatID, userID, att)
	})
}

// Wait drains in-flight background work; called during shutdown.
func (d *Dispatcher) Wait() {
	d.exec.Wait()
}

func (d *Dispatcher) sendDetached(chatID int64, text string) {
	d.exec.Spawn(d.baseCtx, "notify", func(ctx context.Context) error {
		return d.messenger.Send(ctx, chatID, text)
	})
}

// escalate reports failures outside the expected taxonomy to the configured
// admin chat. Invoked by the executor for panics and returned errors.
func (d *Dispatcher) escalate(name string, err error) {
	if d.cfg.AdminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ Internal error in %s: %v", name, err)
	if sendErr := d.messenger.Send(d.baseCtx, d.cfg.AdminChatID, text); sendErr != nil {
		d.logger.Error("admin escalation failed", "err", sendErr)
	}
}
