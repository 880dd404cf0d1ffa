package mux

import (
	"strings"
	"testing"
)

// unquote reverses Quote for test purposes: strips the outer quotes and
// collapses the '\'' escape back to a single quote.
func unquote(s string) string {
	s = strings.ReplaceAll(s, `'\''`, "\x00")
	s = strings.ReplaceAll(s, "'", "")
	return strings.ReplaceAll(s, "\x00", "'")
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"simple", "'simple'"},
		{"", "''"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"$(rm -rf /)", "'$(rm -rf /)'"},
		{"a;b", "'a;b'"},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	inputs := []string{"session-1", "codex-review-2", "it's", "a'b'c", "plain"}
	for _, in := range inputs {
		if got := unquote(Quote(in)); got != in {
			t.Errorf("round trip failed for %q: got %q", in, got)
		}
	}
}

func TestQuoteJoin(t *testing.T) {
	got := QuoteJoin([]string{"docker", "exec", "-it", "box"})
	want := "'docker' 'exec' '-it' 'box'"
	if got != want {
		t.Errorf("QuoteJoin = %q, want %q", got, want)
	}
}
