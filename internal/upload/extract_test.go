package upload

import "testing"

const base = "https://host/upload"

func TestExtractURL_ObjectWithURL(t *testing.T) {
	got := ExtractURL(`{"url":"https://x/y.png"}`, base)
	if got != "https://x/y.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_ArrayWithRelativeSrc(t *testing.T) {
	got := ExtractURL(`[{"src":"/f/1.png"}]`, base)
	if got != "https://host/f/1.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_ArrayWithAbsoluteSrc(t *testing.T) {
	got := ExtractURL(`[{"src":"https://cdn/f/1.png"}]`, base)
	if got != "https://cdn/f/1.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_BareStringAsPath(t *testing.T) {
	got := ExtractURL("abc123", base)
	if got != "https://host/abc123" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_BareAbsoluteString(t *testing.T) {
	got := ExtractURL("https://cdn/v1.mp4", base)
	if got != "https://cdn/v1.mp4" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_PatternMismatchText(t *testing.T) {
	raw := "The string did not match the expected pattern https://host/z.png"
	if got := ExtractURL(raw, base); got != "https://host/z.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_FailureObjectYieldsEmpty(t *testing.T) {
	if got := ExtractURL(`{"success":false,"message":"quota exceeded"}`, base); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestExtractURL_NestedDataURL(t *testing.T) {
	got := ExtractURL(`{"data":{"url":"https://x/a.png"}}`, base)
	if got != "https://x/a.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_ImageURLAndLink(t *testing.T) {
	if got := ExtractURL(`{"image":{"url":"https://x/i.png"}}`, base); got != "https://x/i.png" {
		t.Errorf("image.url: got %q", got)
	}
	if got := ExtractURL(`{"link":"https://x/l.png"}`, base); got != "https://x/l.png" {
		t.Errorf("link: got %q", got)
	}
}

func TestExtractURL_FieldPriorityOrder(t *testing.T) {
	raw := `{"link":"https://x/link.png","url":"https://x/url.png","file":"/f.png"}`
	if got := ExtractURL(raw, base); got != "https://x/url.png" {
		t.Errorf("url should win, got %q", got)
	}
}

func TestExtractURL_FileFieldResolvedAgainstOrigin(t *testing.T) {
	if got := ExtractURL(`{"file":"f/2.png"}`, base); got != "https://host/f/2.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_ArrayOfStrings(t *testing.T) {
	if got := ExtractURL(`["f/3.png"]`, base); got != "https://host/f/3.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_UnparsedErrorObjectText(t *testing.T) {
	// Looks like JSON but is broken; must not be treated as a relative path.
	if got := ExtractURL(`{"oops": truncated`, base); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestExtractURL_RegexFallbackOnInvalidCandidate(t *testing.T) {
	// No origin available and the body is a relative path, but a URL is
	// embedded in the raw text.
	got := ExtractURL(`stored at "https://host/q.png" ok`, "not a url")
	if got != "https://host/q.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtractURL_NothingUsable(t *testing.T) {
	if got := ExtractURL("", base); got != "" {
		t.Errorf("empty input: got %q", got)
	}
	if got := ExtractURL(`{"success":false}`, base); got != "" {
		t.Errorf("failure object: got %q", got)
	}
}
