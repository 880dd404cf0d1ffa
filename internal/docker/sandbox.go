package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leoustc/muxbar/internal/logging"
	"github.com/leoustc/muxbar/internal/mux"
)

var sandboxLog = logging.ForComponent(logging.CompSandbox)

// Sandbox wraps tool session commands so they run inside a managed
// container. One container per session, named after it.
type Sandbox struct {
	image string
}

// NewSandbox creates a sandbox using the given container image.
func NewSandbox(image string) *Sandbox {
	return &Sandbox{image: image}
}

// WrapCommand ensures a running container for the session and returns the
// command line that runs toolCommand inside it. The returned string is
// interpolated into a shell command line, so every token is quoted.
func (s *Sandbox) WrapCommand(ctx context.Context, sessionName, workDir, toolCommand string) (string, error) {
	if err := CheckAvailability(ctx); err != nil {
		return "", err
	}
	if err := EnsureImage(ctx, s.image); err != nil {
		return "", err
	}

	c := NewContainer(ContainerName(sessionName), s.image)
	if err := c.Create(ctx, workDir); err != nil {
		return "", err
	}
	if err := c.Start(ctx); err != nil {
		return "", err
	}

	sandboxLog.Info("sandbox_ready",
		slog.String("container", c.Name()),
		slog.String("image", s.image),
		slog.String("session", sessionName))

	prefix := append(c.ExecPrefix(), "sh", "-c", toolCommand)
	return mux.QuoteJoin(prefix), nil
}

// Cleanup force-removes the container backing a session. Called after the
// session itself is killed; a missing container is not an error.
func (s *Sandbox) Cleanup(ctx context.Context, sessionName string) error {
	c := NewContainer(ContainerName(sessionName), s.image)
	if err := c.Remove(ctx, true); err != nil {
		return fmt.Errorf("sandbox cleanup for %s: %w", sessionName, err)
	}
	return nil
}
