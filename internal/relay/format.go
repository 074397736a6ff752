package relay

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count using base-1024 units with up to two
// decimals, e.g. 15728640 -> "15 MB", 15362949 -> "14.65 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	// Trailing zeros are dropped so whole values read as "15 MB", not "15.00 MB".
	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + " " + sizeUnits[unit]
}

// FileIcon picks a display icon for generic documents from the MIME type,
// falling back to the file extension.
func FileIcon(filename, mimeType string) string {
	mime := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mime, "image/svg+xml"):
		return "🎨"
	case strings.HasPrefix(mime, "image/"):
		return "🖼️"
	case strings.HasPrefix(mime, "video/"):
		return "🎬"
	case strings.HasPrefix(mime, "audio/"):
		return "🎵"
	case strings.Contains(mime, "pdf"):
		return "📄"
	case strings.Contains(mime, "msword"), strings.Contains(mime, "wordprocessingml"):
		return "📝"
	case strings.Contains(mime, "excel"), strings.Contains(mime, "spreadsheetml"),
		strings.Contains(mime, "powerpoint"), strings.Contains(mime, "presentationml"):
		return "📊"
	case strings.Contains(mime, "text/"):
		return "🗒️"
	case strings.Contains(mime, "zip"), strings.Contains(mime, "rar"),
		strings.Contains(mime, "7z"), strings.Contains(mime, "compressed"):
		return "🗜️"
	case strings.Contains(mime, "html"):
		return "🌐"
	}

	ext := strings.ToLower(strings.TrimPrefix(extOf(filename), "."))
	for _, group := range iconExts {
		for _, e := range group.exts {
			if ext == e {
				return group.icon
			}
		}
	}
	return "📁"
}

// Ordered: earlier groups win for ambiguous extensions (".ts" is video here).
var iconExts = []struct {
	icon string
	exts []string
}{
	{"🎨", []string{"svg", "psd", "ai", "eps", "sketch", "fig", "xd", "obj", "fbx", "blend", "stl"}},
	{"🖼️", []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "tif", "ico", "heic", "heif", "avif"}},
	{"🎬", []string{"mp4", "avi", "mov", "wmv", "flv", "mkv", "webm", "m4v", "3gp", "mpeg", "mpg", "ts"}},
	{"🎵", []string{"mp3", "wav", "ogg", "flac", "aac", "m4a", "wma", "opus", "mid", "midi"}},
	{"📄", []string{"pdf"}},
	{"📝", []string{"doc", "docx"}},
	{"📊", []string{"xls", "xlsx", "csv", "ppt", "pptx"}},
	{"🗒️", []string{"txt", "rtf", "md", "json", "xml", "yaml", "ini", "log"}},
	{"🗜️", []string{"zip", "rar", "7z", "tar", "gz", "bz2", "xz"}},
	{"⚙️", []string{"exe", "msi", "apk", "app", "dmg", "iso", "bat", "sh", "cmd"}},
	{"💻", []string{"html", "htm", "css", "js", "jsx", "tsx", "php", "py", "java", "c", "cpp", "go", "rb"}},
	{"🔤", []string{"ttf", "otf", "woff", "woff2", "eot"}},
	{"📎", []string{"torrent", "srt", "vtt", "ass", "ssa"}},
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// escapeName wraps a file name in backticks for Markdown messages, dropping
// characters that would break the code span.
func escapeName(name string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "'"))
}
