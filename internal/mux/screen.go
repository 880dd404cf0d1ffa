package mux

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ScreenBackend drives GNU screen via subprocess calls.
type ScreenBackend struct{}

// screenScrollbackLines is the scrollback applied to new screen sessions.
const screenScrollbackLines = "10000"

// screenSessionLine matches one entry of `screen -ls` output after
// trimming: "<pid>.<name>\t(Detached)". The name is capture group 1.
var screenSessionLine = regexp.MustCompile(`^\d+\.(\S+)`)

func (b *ScreenBackend) Backend() Backend { return BackendScreen }

// Available probes for the screen binary.
func (b *ScreenBackend) Available() error {
	// screen -v exits non-zero on some builds even on success, so only
	// report unavailable when the binary cannot be run at all.
	out, err := exec.Command("screen", "-v").CombinedOutput()
	if err != nil && len(out) == 0 {
		return fmt.Errorf("screen not found or not working: %w", err)
	}
	return nil
}

// ListSessions runs `screen -ls` and parses the socket list. screen prints
// the list to stdout or stderr depending on version, and exits non-zero
// when no sockets exist, so output is combined and the exit code ignored.
func (b *ScreenBackend) ListSessions(ctx context.Context) ([]string, error) {
	out, _ := exec.CommandContext(ctx, "screen", "-ls").CombinedOutput()
	return parseScreenList(string(out)), nil
}

// parseScreenList extracts session names from `screen -ls` output. Output
// containing "No Sockets found" (case-insensitive) means zero sessions;
// otherwise each trimmed line is matched against "<pid>.<name><whitespace>".
// Unparseable lines are treated as absent.
func parseScreenList(output string) []string {
	if strings.Contains(strings.ToLower(output), "no sockets found") {
		return nil
	}

	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := screenSessionLine.FindStringSubmatch(line); m != nil {
			sessions = append(sessions, m[1])
		}
	}
	return sessions
}

// CreateSession creates a detached screen session running the bootstrap,
// then raises the scrollback limit.
func (b *ScreenBackend) CreateSession(ctx context.Context, opts CreateOptions) error {
	bootstrap := buildBootstrap(opts)

	// screen execs its argument vector directly, so the bootstrap string
	// needs an explicit shell to interpret it.
	cmd := exec.CommandContext(ctx, "screen", "-dmS", opts.Name, "sh", "-c", bootstrap)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("creating screen session %s: %w (output: %s)", opts.Name, err, strings.TrimSpace(string(out)))
	}

	// Cosmetic: 10k lines of scrollback, both for the current window and
	// as the default for new ones. Failures are swallowed.
	_ = exec.CommandContext(ctx, "screen", "-S", opts.Name, "-X", "defscrollback", screenScrollbackLines).Run()
	_ = exec.CommandContext(ctx, "screen", "-S", opts.Name, "-X", "scrollback", screenScrollbackLines).Run()

	return nil
}

// AttachCommand returns the command line a frontend runs to attach.
func (b *ScreenBackend) AttachCommand(name string) string {
	return "screen -r " + Quote(name)
}

// KillSession quits the named session. Errors propagate.
func (b *ScreenBackend) KillSession(ctx context.Context, name string) error {
	out, err := exec.CommandContext(ctx, "screen", "-S", name, "-X", "quit").CombinedOutput()
	if err != nil {
		return fmt.Errorf("killing screen session %s: %w (output: %s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
