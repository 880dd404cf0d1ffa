package mux

import "strings"

// Quote returns a single-quoted, shell-safe representation of s. Internal
// single quotes are closed, escaped, and reopened ('\''). Applied uniformly
// to every session name or path interpolated into a command line; sanitized
// names are already safe, but quoting everywhere keeps attacker-influenced
// input from ever reaching the shell unescaped.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteJoin quotes each argument and joins them into one command line.
func QuoteJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
