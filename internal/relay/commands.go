package relay

import (
	"context"
	"fmt"
	"strings"

	"relaybot/internal/stats"
)

// StatsProvider answers the /stats command. Nil when stats are disabled.
type StatsProvider interface {
	UserSummary(ctx context.Context, userID int64) (stats.Summary, error)
}

// Commands renders replies for the bot's command menu.
type Commands struct {
	maxFileSize int64
	stats       StatsProvider
	version     string
}

func NewCommands(maxFileSize int64, statsProvider StatsProvider, version string) *Commands {
	return &Commands{maxFileSize: maxFileSize, stats: statsProvider, version: version}
}

// Reply returns the response text for a command message.
func (c *Commands) Reply(ctx context.Context, userID int64, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "❓ Unknown command. Use /help to see available commands."
	}
	cmd := fields[0]
	// Commands in groups arrive as "/start@BotName".
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	maxSize := FormatFileSize(c.maxFileSize)

	switch cmd {
	case "/start":
		return "🤖 *RelayBot is ready!*\n\n" +
			"Send a file and it is uploaded automatically: photos, videos, audio, documents and more.\n\n" +
			"📊 Files up to " + maxSize + " are supported.\n" +
			"⚡ Use /help for details."

	case "/help":
		return "📖 *How to use*\n\n" +
			"1️⃣ Send /start once to enable the bot\n" +
			"2️⃣ Send a photo, video, audio file, document or any other file\n" +
			"3️⃣ The bot uploads it and replies with a link\n" +
			"4️⃣ Files up to " + maxSize + " are supported\n\n" +
			"📝 *Supported types*\n" +
			"• Images: JPG, PNG, GIF, WebP, SVG, ...\n" +
			"• Video: MP4, AVI, MOV, MKV, ...\n" +
			"• Audio: MP3, WAV, OGG, FLAC, ...\n" +
			"• Documents: PDF, DOC, XLS, ZIP, ...\n\n" +
			"⚙️ *Other commands*\n" +
			"/stats - Your upload statistics\n" +
			"/about - About this bot"

	case "/stats":
		if c.stats == nil {
			return "📊 Upload statistics are not enabled on this deployment."
		}
		sum, err := c.stats.UserSummary(ctx, userID)
		if err != nil {
			return "📊 Statistics are temporarily unavailable, please try again later."
		}
		if sum.Count == 0 {
			return "📊 *Your upload statistics*\n\nNo uploads yet. Send a file to get started!"
		}
		reply := fmt.Sprintf("📊 *Your upload statistics*\n\n"+
			"📦 Files uploaded: %d\n"+
			"💾 Total size: %s",
			sum.Count, FormatFileSize(sum.TotalBytes))
		if !sum.LastAt.IsZero() {
			reply += "\n🕐 Last upload: " + sum.LastAt.Format("2006-01-02 15:04 UTC")
		}
		return reply

	case "/about":
		return "ℹ️ *About this bot*\n\n" +
			"RelayBot v" + c.version + " relays Telegram files to a configurable upload backend " +
			"and returns a public link.\n\n" +
			"✨ *Features*\n" +
			"• Many file types\n" +
			"• Image-bed and WebDAV backends\n" +
			"• Free and open source"

	default:
		return "❓ Unknown command. Use /help to see available commands."
	}
}
