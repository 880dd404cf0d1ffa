package mux

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxSessionNameLen bounds every generated session name.
const MaxSessionNameLen = 24

// DefaultPrefix is used when a prefix sanitizes to nothing.
const DefaultPrefix = "terminal"

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// Sanitize replaces every character outside [A-Za-z0-9-] with a hyphen.
// Idempotent; returns empty only for empty input.
func Sanitize(raw string) string {
	return invalidNameChars.ReplaceAllString(raw, "-")
}

// BuildNumberedName builds "<prefix>-<n>" within the length bound. The
// prefix is truncated, never the numeric suffix, so uniqueness is never
// compromised by truncation.
func BuildNumberedName(prefix string, n int) string {
	p := Sanitize(prefix)
	if p == "" {
		p = DefaultPrefix
	}
	suffix := strconv.Itoa(n)
	maxPrefix := MaxSessionNameLen - len(suffix) - 1
	if len(p) > maxPrefix {
		p = p[:maxPrefix]
	}
	return p + "-" + suffix
}

// BuildSessionName builds "<prefix>-<suffix>" from a user-supplied suffix,
// bounded to MaxSessionNameLen. When the sanitized prefix alone leaves no
// room for a separator and suffix, the prefix is cut to MaxSessionNameLen-2
// and the suffix to a single character.
func BuildSessionName(prefix, suffix string) string {
	p := Sanitize(prefix)
	if p == "" {
		p = DefaultPrefix
	}
	s := Sanitize(suffix)
	if s == "" {
		if len(p) > MaxSessionNameLen {
			p = p[:MaxSessionNameLen]
		}
		return p
	}

	if len(p)+1+len(s) <= MaxSessionNameLen {
		return p + "-" + s
	}
	if len(p) <= MaxSessionNameLen-2 {
		// Prefix fits with room to spare: trim the suffix to the bound.
		return p + "-" + s[:MaxSessionNameLen-len(p)-1]
	}
	// Degenerate case: the prefix alone fills the bound.
	return p[:MaxSessionNameLen-2] + "-" + s[:1]
}

// NextSessionName returns the numbered name for the smallest unused positive
// integer suffix among existing names sharing the sanitized prefix. Linear
// scan from 1; session counts are small enough that this never matters.
func NextSessionName(prefix string, existing []string) string {
	p := Sanitize(prefix)
	if p == "" {
		p = DefaultPrefix
	}

	used := make(map[int]bool)
	marker := p + "-"
	for _, name := range existing {
		rest, ok := strings.CutPrefix(name, marker)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			used[n] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	return BuildNumberedName(p, n)
}
