// Package mux translates generic session operations into backend-specific
// invocations of an external terminal multiplexer (tmux or GNU screen) and
// parses their listing output into plain session names.
package mux

import (
	"context"
	"errors"
	"fmt"
)

// Backend identifies the multiplexer implementation.
type Backend string

const (
	BackendTmux   Backend = "tmux"
	BackendScreen Backend = "screen"
)

// ErrUnknownBackend is returned by New for unrecognized backend values.
var ErrUnknownBackend = errors.New("unknown multiplexer backend")

// Shell selects the shell a session bootstrap execs into.
type Shell string

const (
	ShellBash Shell = "bash"
	ShellSh   Shell = "sh"
)

// CreateOptions describes a session to create.
type CreateOptions struct {
	// Name is the session name. Must already be sanitized and unique;
	// callers build it with NextSessionName or BuildSessionName.
	Name string

	// WorkDir is the working directory for the session (empty = inherit).
	WorkDir string

	// EnvFile is an optional file sourced before the initial command.
	EnvFile string

	// InitialCommand is an optional command run before the shell takes over.
	InitialCommand string

	// Shell is the shell the bootstrap execs into at the end.
	Shell Shell
}

// Multiplexer is the backend adapter. Implementations shell out to the
// external multiplexer binary; none of them keep state between calls.
type Multiplexer interface {
	// Backend returns which multiplexer this adapter drives.
	Backend() Backend

	// ListSessions returns the names of all live sessions. A backend that
	// is not installed or whose server is not running yields an empty list,
	// not an error, so the sidebar stays usable before the first session.
	ListSessions(ctx context.Context) ([]string, error)

	// CreateSession creates a detached session running the bootstrap
	// composed from opts. Cosmetic post-create configuration failures are
	// swallowed; creation failures are returned.
	CreateSession(ctx context.Context, opts CreateOptions) error

	// AttachCommand returns the shell command line a terminal frontend
	// should run to attach to the named session. The name is shell-quoted.
	AttachCommand(name string) string

	// KillSession destroys the named session. Errors propagate: deletion
	// failure is user-actionable, unlike listing failure.
	KillSession(ctx context.Context, name string) error

	// Available probes for the backend binary. Used for first-run
	// diagnostics only; listing never depends on it.
	Available() error
}

// New returns the adapter for the given backend.
func New(backend Backend) (Multiplexer, error) {
	switch backend {
	case BackendTmux:
		return &TmuxBackend{}, nil
	case BackendScreen:
		return &ScreenBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// buildBootstrap composes the shell bootstrap string for a new session:
// source the env file if given, run the initial command if given, then exec
// the configured shell so the session survives the bootstrap.
func buildBootstrap(opts CreateOptions) string {
	var parts []string
	if opts.EnvFile != "" {
		parts = append(parts, ". "+Quote(opts.EnvFile))
	}
	if opts.InitialCommand != "" {
		parts = append(parts, opts.InitialCommand)
	}
	switch opts.Shell {
	case ShellSh:
		parts = append(parts, "exec sh")
	default:
		// bash gets a login shell so user rc files apply
		parts = append(parts, "exec bash -l")
	}

	bootstrap := parts[0]
	for _, p := range parts[1:] {
		bootstrap += "; " + p
	}
	return bootstrap
}
