package telegram

import "testing"

func TestStripMarkdown(t *testing.T) {
	cases := []struct{ in, want string }{
		{"*bold* _italic_ `code`", "bold italic code"},
		{"[link](https://x)", "link(https://x)"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripMarkdown(c.in); got != c.want {
			t.Errorf("StripMarkdown(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
