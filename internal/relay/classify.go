package relay

import (
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind is the media category of an inbound attachment.
type Kind int

const (
	KindPhoto Kind = iota
	KindVideo
	KindAudio
	KindAnimation
	KindSvg
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindAnimation:
		return "animation"
	case KindSvg:
		return "SVG"
	default:
		return "file"
	}
}

// Attachment describes one classified inbound file. Immutable; consumed once
// per pipeline run.
type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64 // advisory size from the update; authoritative size comes from getFile
	Kind     Kind
	Label    string // human label used in notifications, e.g. "video" or "📄 file"
}

// Extension allow-lists per kind. Matching is case-insensitive and applies to
// documents whose declared MIME type does not already identify the kind.
var (
	videoExts = []string{".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm", ".m4v", ".3gp", ".mpeg", ".mpg", ".ts"}
	audioExts = []string{".mp3", ".wav", ".ogg", ".flac", ".aac", ".m4a", ".wma", ".opus", ".mid", ".midi"}
)

// Classify maps a raw inbound message to an attachment descriptor.
// Priority: photo > video > audio > animation > svg > document. Messages
// carrying none of these yield ok=false and are ignored.
func Classify(msg *tgbotapi.Message) (Attachment, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Telegram sends multiple resolutions; the last entry is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		return Attachment{
			FileID:   photo.FileID,
			FileName: fmt.Sprintf("photo_%d.jpg", msg.MessageID),
			MimeType: "image/jpeg",
			Size:     int64(photo.FileSize),
			Kind:     KindPhoto,
			Label:    "photo",
		}, true

	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = fmt.Sprintf("video_%d.mp4", msg.MessageID)
		}
		return Attachment{
			FileID:   msg.Video.FileID,
			FileName: name,
			MimeType: orDefault(msg.Video.MimeType, "video/mp4"),
			Size:     int64(msg.Video.FileSize),
			Kind:     KindVideo,
			Label:    "video",
		}, true

	case docMatches(msg.Document, "video/", videoExts):
		return docAttachment(msg.Document, "video/mp4", KindVideo, "video"), true

	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = msg.Audio.Title
		}
		if name == "" {
			name = fmt.Sprintf("audio_%d.mp3", msg.MessageID)
		}
		return Attachment{
			FileID:   msg.Audio.FileID,
			FileName: name,
			MimeType: orDefault(msg.Audio.MimeType, "audio/mpeg"),
			Size:     int64(msg.Audio.FileSize),
			Kind:     KindAudio,
			Label:    "audio",
		}, true

	case docMatches(msg.Document, "audio/", audioExts):
		return docAttachment(msg.Document, "audio/mpeg", KindAudio, "audio"), true

	case msg.Animation != nil:
		name := msg.Animation.FileName
		if name == "" {
			name = fmt.Sprintf("animation_%d.gif", msg.MessageID)
		}
		return Attachment{
			FileID:   msg.Animation.FileID,
			FileName: name,
			MimeType: orDefault(msg.Animation.MimeType, "image/gif"),
			Size:     int64(msg.Animation.FileSize),
			Kind:     KindAnimation,
			Label:    "animation",
		}, true

	case docContains(msg.Document, "animation", []string{".gif"}):
		return docAttachment(msg.Document, "image/gif", KindAnimation, "animation"), true

	case docContains(msg.Document, "svg", []string{".svg"}):
		return docAttachment(msg.Document, "image/svg+xml", KindSvg, "SVG"), true

	case msg.Document != nil:
		att := docAttachment(msg.Document, "application/octet-stream", KindDocument, "")
		// Executables carry whatever MIME the sender declared; normalize them.
		if strings.HasSuffix(strings.ToLower(att.FileName), ".exe") {
			att.MimeType = "application/octet-stream"
		}
		att.Label = FileIcon(att.FileName, att.MimeType) + " file"
		return att, true
	}
	return Attachment{}, false
}

// docMatches reports whether doc declares a MIME type with the given prefix
// or a file name with one of the extensions.
func docMatches(doc *tgbotapi.Document, mimePrefix string, exts []string) bool {
	if doc == nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(doc.MimeType), mimePrefix) {
		return true
	}
	return hasExt(doc.FileName, exts)
}

// docContains is like docMatches but tests for a MIME substring.
func docContains(doc *tgbotapi.Document, mimePart string, exts []string) bool {
	if doc == nil {
		return false
	}
	if strings.Contains(strings.ToLower(doc.MimeType), mimePart) {
		return true
	}
	return hasExt(doc.FileName, exts)
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func docAttachment(doc *tgbotapi.Document, defaultMime string, kind Kind, label string) Attachment {
	name := doc.FileName
	if name == "" {
		name = "file"
	}
	return Attachment{
		FileID:   doc.FileID,
		FileName: name,
		MimeType: orDefault(doc.MimeType, defaultMime),
		Size:     int64(doc.FileSize),
		Kind:     kind,
		Label:    label,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
