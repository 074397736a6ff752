// Package relay implements the file relay pipeline: classify an inbound
// attachment, fetch its bytes from Telegram, upload them to the configured
// backend, and report the public link back to the chat.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"relaybot/internal/metrics"
	"relaybot/internal/stats"
	"relaybot/internal/upload"
)

// advisoryFloor caps the "this may take a while" threshold.
const advisoryFloor = 10 * 1024 * 1024 // 10 MiB

// rawExcerptLen bounds the backend-response excerpt shown to users when no
// URL could be extracted.
const rawExcerptLen = 200

// FileMeta is the source platform's answer to a metadata lookup.
type FileMeta struct {
	Path string
	Size int64
}

// Messenger sends a text notification to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// FileSource resolves and fetches attachment bytes from the source platform.
type FileSource interface {
	FileInfo(ctx context.Context, fileID string) (FileMeta, error)
	Download(ctx context.Context, filePath string) ([]byte, error)
	// DirectLink returns the platform's own short-lived download URL,
	// offered to users when the backend response yields no link.
	DirectLink(filePath string) string
}

// Uploader submits file bytes to the upload backend.
type Uploader interface {
	Upload(ctx context.Context, fileName, mimeType string, data []byte) (upload.Outcome, error)
}

// Recorder persists successful uploads for /stats.
type Recorder interface {
	Record(ctx context.Context, u stats.Upload) error
}

// Pipeline runs the relay stages for one attachment. Every recoverable
// failure produces a user-visible message; nothing is silently dropped.
type Pipeline struct {
	messenger   Messenger
	source      FileSource
	uploader    Uploader
	recorder    Recorder // nil when stats are disabled
	maxFileSize int64
	logger      *slog.Logger
}

func NewPipeline(messenger Messenger, source FileSource, uploader Uploader, recorder Recorder, maxFileSize int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		messenger:   messenger,
		source:      source,
		uploader:    uploader,
		recorder:    recorder,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Run relays one attachment and notifies the chat of the outcome. Expected
// failures (size, metadata, download, upload, extraction) are reported to the
// user and return nil; only failures outside the taxonomy propagate to the
// executor's escalation path.
func (p *Pipeline) Run(ctx context.Context, chatID, userID int64, att Attachment) error {
	p.notify(ctx, chatID, fmt.Sprintf("🔄 Processing your %s %s, please wait...", att.Label, escapeName(att.FileName)))

	meta, err := p.source.FileInfo(ctx, att.FileID)
	if err != nil {
		p.logger.Warn("metadata lookup failed", "file_id", att.FileID, "err", err)
		p.notify(ctx, chatID, fmt.Sprintf("❌ Could not fetch %s info from Telegram, please try again later.", att.Label))
		metrics.UploadsFailed.Inc()
		return nil
	}
	size := meta.Size

	// Size gate runs before any download so oversized files cost no transfer.
	if size > p.maxFileSize {
		p.logger.Info("attachment rejected",
			"file", att.FileName, "err", &SizeExceededError{Size: size, Max: p.maxFileSize})
		p.notify(ctx, chatID, fmt.Sprintf(
			"⚠️ The %s is too large (%s), exceeding the current %s limit.\n\n"+
				"💡 *Suggestions*\n"+
				"1️⃣ Compress the file and retry\n"+
				"2️⃣ Use another file sharing service\n"+
				"3️⃣ Ask the administrator to raise the limit",
			att.Label, FormatFileSize(size), FormatFileSize(p.maxFileSize)))
		metrics.UploadsFailed.Inc()
		return nil
	}

	if threshold := min(p.maxFileSize/2, advisoryFloor); size > threshold {
		p.notify(ctx, chatID, fmt.Sprintf(
			"ℹ️ The file is %s; processing and upload may take some time, please be patient...",
			FormatFileSize(size)))
	}

	data, err := p.source.Download(ctx, meta.Path)
	if err != nil {
		p.logger.Warn("download failed", "file", att.FileName, "err", err)
		p.notify(ctx, chatID, failureMessage(att.Label, err))
		metrics.UploadsFailed.Inc()
		return nil
	}

	out, err := p.uploader.Upload(ctx, att.FileName, att.MimeType, data)
	if err != nil {
		p.logger.Warn("upload failed", "file", att.FileName, "err", err)
		p.notify(ctx, chatID, failureMessage(att.Label, err))
		metrics.UploadsFailed.Inc()
		return nil
	}

	if out.URL == "" {
		p.logger.Warn("no URL in backend response", "file", att.FileName, "raw", excerpt(out.RawResponse))
		p.notify(ctx, chatID, fmt.Sprintf(
			"⚠️ Could not extract a %s link from the upload backend.\n\n"+
				"Raw backend response (first %d chars):\n```\n%s\n```\n\n"+
				"You can try Telegram's temporary link instead (expires):\n%s",
			att.Label, rawExcerptLen, excerpt(out.RawResponse), p.source.DirectLink(meta.Path)))
		metrics.UploadsFailed.Inc()
		return nil
	}

	metrics.UploadsSucceeded.Inc()
	metrics.BytesRelayed.Add(size)
	if p.recorder != nil {
		rec := stats.Upload{
			UserID:   userID,
			ChatID:   chatID,
			FileName: att.FileName,
			Size:     size,
			Kind:     att.Kind.String(),
			Backend:  string(out.Backend),
			URL:      out.URL,
		}
		if err := p.recorder.Record(ctx, rec); err != nil {
			p.logger.Warn("stats record failed", "err", err)
		}
	}

	p.notify(ctx, chatID, fmt.Sprintf(
		"✅ *Your %s was uploaded!*\n\n"+
			"📄 Name: %s\n"+
			"📦 Size: %s\n"+
			"🔗 Link:\n%s\n\n"+
			"_Open the link to view or download the file_",
		att.Label, escapeName(att.FileName), FormatFileSize(size), out.URL))
	return nil
}

func (p *Pipeline) notify(ctx context.Context, chatID int64, text string) {
	if err := p.messenger.Send(ctx, chatID, text); err != nil {
		p.logger.Error("notification failed", "chat_id", chatID, "err", err)
	}
}

// failureMessage builds the user-facing error text with remediation
// suggestions matched to the failure category.
func failureMessage(label string, err error) string {
	msg := fmt.Sprintf("❌ *Failed to process %s*\n\nError: %s", label, err)

	switch categorize(err) {
	case categorySize:
		msg += "\n\n💡 *Suggestions*\n1️⃣ Compress the file and retry\n2️⃣ Use another file sharing service"
	case categoryTimeout:
		msg += "\n\n💡 *Suggestions*\n1️⃣ Check your network connection\n2️⃣ Retry later\n3️⃣ Compress large files before uploading"
	case categoryNetwork:
		msg += "\n\n💡 *Suggestions*\n1️⃣ Check that the upload backend is healthy\n2️⃣ Retry later"
	}
	return msg
}

type failureCategory int

const (
	categoryGeneric failureCategory = iota
	categorySize
	categoryTimeout
	categoryNetwork
)

func categorize(err error) failureCategory {
	var se *SizeExceededError
	if errors.As(err, &se) {
		return categorySize
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "413"), strings.Contains(text, "too large"):
		return categorySize
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(text, "timeout"),
		strings.Contains(text, "deadline exceeded"):
		return categoryTimeout
	default:
		var dl *DownloadError
		if errors.As(err, &dl) {
			return categoryNetwork
		}
		var ex *upload.ExhaustedError
		if errors.As(err, &ex) {
			return categoryNetwork
		}
		return categoryGeneric
	}
}

func excerpt(raw string) string {
	if len(raw) > rawExcerptLen {
		return raw[:rawExcerptLen]
	}
	return raw
}
