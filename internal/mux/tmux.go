package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/leoustc/muxbar/internal/logging"
)

var muxLog = logging.ForComponent(logging.CompMux)

// TmuxBackend drives tmux via subprocess calls.
type TmuxBackend struct {
	// Mouse enables tmux mouse mode on newly created sessions.
	Mouse bool
}

// tmuxStatusOptions are the cosmetic status bar options applied after
// session creation. Failures here never abort creation.
var tmuxStatusOptions = [][2]string{
	{"status", "on"},
	{"status-style", "bg=#1a1b26,fg=#a9b1d6"},
	{"status-left-length", "60"},
	{"status-left", "#S "},
	{"status-right", ""},
}

func (b *TmuxBackend) Backend() Backend { return BackendTmux }

// Available probes for the tmux binary.
func (b *TmuxBackend) Available() error {
	out, err := exec.Command("tmux", "-V").CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux not found or not working: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ListSessions runs `tmux ls` and parses one session name per line.
// Any error (tmux missing, server not running) yields an empty list.
func (b *TmuxBackend) ListSessions(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "tmux", "ls").Output()
	if err != nil {
		// tmux exits non-zero when no server is running; that is simply
		// "zero sessions" from the sidebar's point of view.
		return nil, nil
	}
	return parseTmuxList(string(out)), nil
}

// parseTmuxList extracts session names from `tmux ls` output. Each line
// looks like "name: 1 windows (created ...)"; the name is everything before
// the first colon. Lines without a colon are treated as absent.
func parseTmuxList(output string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		sessions = append(sessions, line[:idx])
	}
	return sessions
}

// CreateSession creates a detached tmux session running the bootstrap, then
// applies cosmetic configuration (mouse mode, status bar).
func (b *TmuxBackend) CreateSession(ctx context.Context, opts CreateOptions) error {
	bootstrap := buildBootstrap(opts)

	cmd := exec.CommandContext(ctx, "tmux", "new", "-d", "-s", opts.Name, bootstrap)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("creating tmux session %s: %w (output: %s)", opts.Name, err, strings.TrimSpace(string(out)))
	}

	b.configureSession(ctx, opts.Name)
	return nil
}

// configureSession applies mouse mode and status bar options. Prefers one
// batched command list joined by ";", falling back to per-option invocation
// when the batched form fails (older tmux rejects some option names and
// aborts the whole list). All failures are swallowed.
func (b *TmuxBackend) configureSession(ctx context.Context, name string) {
	options := make([][2]string, 0, len(tmuxStatusOptions)+1)
	if b.Mouse {
		options = append(options, [2]string{"mouse", "on"})
	}
	options = append(options, tmuxStatusOptions...)

	args := make([]string, 0, len(options)*6)
	for i, opt := range options {
		if i > 0 {
			args = append(args, ";")
		}
		args = append(args, "set-option", "-t", name, opt[0], opt[1])
	}
	if err := exec.CommandContext(ctx, "tmux", args...).Run(); err == nil {
		return
	}
	muxLog.Debug("tmux_batched_options_failed", slog.String("session", name))

	for _, opt := range options {
		_ = exec.CommandContext(ctx, "tmux", "set-option", "-t", name, opt[0], opt[1]).Run()
	}
}

// AttachCommand returns the command line a frontend runs to attach.
func (b *TmuxBackend) AttachCommand(name string) string {
	return "tmux attach -t " + Quote(name)
}

// KillSession destroys the named session. Errors propagate.
func (b *TmuxBackend) KillSession(ctx context.Context, name string) error {
	out, err := exec.CommandContext(ctx, "tmux", "kill-session", "-t", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("killing tmux session %s: %w (output: %s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
