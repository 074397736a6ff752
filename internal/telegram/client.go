// Package telegram wraps the Bot API for the two sides of the relay: fetching
// attachment bytes from Telegram and sending notifications back to the chat.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/httpx"
	"relaybot/internal/relay"
)

const (
	notifyTimeout   = 10 * time.Second
	downloadTimeout = 30 * time.Second

	// maxDownloadBytes is a safety net above the configured attachment cap;
	// Telegram bot downloads top out at 20 MB anyway.
	maxDownloadBytes = 64 * 1024 * 1024
)

// Client talks to the Telegram Bot API.
type Client struct {
	bot      *tgbotapi.BotAPI
	token    string
	download *http.Client
	logger   *slog.Logger
}

// New connects to the Bot API and validates the token with a getMe call.
// API calls (getFile, sendMessage) share a 10s-bounded client; file downloads
// use a separate 30s-bounded client.
func New(token string, logger *slog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpx.NewClient(notifyTimeout))
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	return &Client{
		bot:      bot,
		token:    token,
		download: httpx.NewClient(downloadTimeout),
		logger:   logger,
	}, nil
}

// Username returns the bot's @name for display in command replies.
func (c *Client) Username() string { return c.bot.Self.UserName }

// FileInfo resolves a file handle to its server path and size via getFile.
// The size arrives before any download happens, so oversized files can be
// rejected without spending bandwidth.
func (c *Client) FileInfo(_ context.Context, fileID string) (relay.FileMeta, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return relay.FileMeta{}, &relay.MetadataError{Err: err}
	}
	return relay.FileMeta{Path: file.FilePath, Size: int64(file.FileSize)}, nil
}

// Download fetches the file bytes from Telegram's file endpoint.
func (c *Client) Download(ctx context.Context, filePath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DirectLink(filePath), nil)
	if err != nil {
		return nil, &relay.DownloadError{Err: err}
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return nil, &relay.DownloadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &relay.DownloadError{Status: resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, &relay.DownloadError{Err: err}
	}
	return data, nil
}

// DirectLink returns Telegram's own download URL for a resolved file path.
// The link embeds the bot token and expires server-side; it is only offered
// to users as a temporary fallback.
func (c *Client) DirectLink(filePath string) string {
	return fmt.Sprintf(tgbotapi.FileEndpoint, c.token, filePath)
}

// Send delivers a Markdown-formatted message. When Telegram rejects the
// formatting, the message is retried once with the markers stripped so the
// user still hears back.
func (c *Client) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	_, err := c.bot.Send(msg)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "can't parse entities") {
		c.logger.Warn("markdown rejected, retrying as plain text", "chat_id", chatID, "err", err)
		plain := tgbotapi.NewMessage(chatID, StripMarkdown(text))
		plain.DisableWebPagePreview = true
		if _, err2 := c.bot.Send(plain); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("telegram send: %w", err)
}

var markdownReplacer = strings.NewReplacer("*", "", "_", "", "`", "", "[", "", "]", "")

// StripMarkdown removes the formatting markers Telegram's Markdown parser
// trips over.
func StripMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}
