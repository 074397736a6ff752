package upload

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// patternMismatchMarker shows up in some image beds' plain-text error pages
// when they dislike the file extension; the page usually still contains the
// stored file's URL.
const patternMismatchMarker = "The string did not match the expected pattern"

// maxRelativeLen guards against treating a long error page as a relative path.
const maxRelativeLen = 2083

var urlPattern = regexp.MustCompile(`https?://[^\s"']+`)

// ExtractURL turns an arbitrary backend response into a public URL. Backends
// return objects, arrays, or bare strings; probes run in a fixed order and a
// regex scan over the raw text is the last resort. Returns "" when nothing
// yields a valid URL.
func ExtractURL(raw, backendURL string) string {
	origin := originOf(backendURL)

	if strings.Contains(raw, patternMismatchMarker) {
		if m := urlPattern.FindString(raw); m != "" {
			return m
		}
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		parsed = raw
	}

	var candidate string
	switch v := parsed.(type) {
	case []any:
		candidate = fromArray(v, origin)
	case map[string]any:
		candidate = fromMap(v, origin)
	case string:
		candidate = fromText(v, origin)
	}

	if isValidURL(candidate) {
		return candidate
	}
	// Candidate construction failed; scan the raw response once more.
	return urlPattern.FindString(raw)
}

func fromArray(items []any, origin string) string {
	if len(items) == 0 {
		return ""
	}
	switch item := items[0].(type) {
	case map[string]any:
		if u, ok := item["url"].(string); ok && u != "" {
			return u
		}
		if src, ok := item["src"].(string); ok && src != "" {
			return resolve(src, origin)
		}
	case string:
		return resolve(item, origin)
	}
	return ""
}

func fromMap(m map[string]any, origin string) string {
	if u, ok := m["url"].(string); ok && u != "" {
		return u
	}
	if src, ok := m["src"].(string); ok && src != "" {
		return resolve(src, origin)
	}
	if f, ok := m["file"].(string); ok && f != "" {
		return resolve(f, origin)
	}
	if data, ok := m["data"].(map[string]any); ok {
		if u, ok := data["url"].(string); ok && u != "" {
			return u
		}
	}
	if img, ok := m["image"].(map[string]any); ok {
		if u, ok := img["url"].(string); ok && u != "" {
			return u
		}
	}
	if l, ok := m["link"].(string); ok && l != "" {
		return l
	}
	return ""
}

func fromText(s, origin string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	s = strings.TrimSpace(s)
	if s == "" || len(s) >= maxRelativeLen {
		return ""
	}
	// A {...}/[...] body here is structured error text that failed to parse,
	// not a path, and no real backend path contains whitespace or quotes.
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return ""
	}
	if strings.ContainsAny(s, " \t\r\n\"") {
		return ""
	}
	return resolve(s, origin)
}

// resolve treats s as absolute when it carries a scheme, otherwise as a path
// under the backend origin.
func resolve(s, origin string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if origin == "" {
		return ""
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return origin + s
}

func originOf(backendURL string) string {
	u, err := url.Parse(backendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isValidURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
