// Package docker manages container lifecycle for sandboxed tool sessions.
//
// The Docker socket is intentionally NOT mounted into containers: sandboxed
// tools get no access to the host daemon.
package docker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// containerNamePrefix namespaces muxbar's containers in docker ps output.
const containerNamePrefix = "muxbar-"

// ManagedLabel marks containers this program created.
const ManagedLabel = "managed-by=muxbar"

var (
	// ErrDockerNotAvailable indicates the docker CLI is not installed.
	ErrDockerNotAvailable = errors.New("docker CLI is not installed or not in PATH")

	// ErrDaemonNotRunning indicates the docker daemon is not running.
	ErrDaemonNotRunning = errors.New("docker daemon is not running; start Docker and try again")
)

// Container manages a single Docker container lifecycle.
type Container struct {
	name  string
	image string
}

// NewContainer creates a container handle with the given name and image.
func NewContainer(name string, image string) *Container {
	return &Container{name: name, image: image}
}

// ContainerName builds the container name for a session. Docker only allows
// [a-zA-Z0-9_.-] in names; session names are already restricted to a subset
// of that, but strip defensively for names created by older versions.
func ContainerName(sessionName string) string {
	return containerNamePrefix + sanitizeContainerName(sessionName)
}

func sanitizeContainerName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.' || c == '-':
			b.WriteRune(c)
		case c == ' ':
			b.WriteByte('-')
		}
	}
	// Docker rejects leading/trailing hyphens and dots.
	return strings.Trim(b.String(), "-.")
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// Exists returns true if the container exists, running or stopped. A
// non-zero exit from docker inspect means it does not exist; other errors
// (daemon unreachable) are propagated.
func (c *Container) Exists(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx,
		"docker", "inspect", "--format", "{{.State.Status}}", c.name,
	).CombinedOutput()
	if err != nil {
		if isExitError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting container %s: %s: %w", c.name, strings.TrimSpace(string(out)), err)
	}
	return true, nil
}

// IsRunning returns true if the container is currently running.
func (c *Container) IsRunning(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx,
		"docker", "inspect", "--format", "{{.State.Running}}", c.name,
	).CombinedOutput()
	if err != nil {
		if isExitError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting container %s: %w", c.name, err)
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// Create creates the container without starting it. workDir, when non-empty,
// is bind-mounted as /workspace and set as the working directory. Creating a
// container that already exists is a no-op.
func (c *Container) Create(ctx context.Context, workDir string) error {
	if c.image == "" {
		return fmt.Errorf("cannot create container %s: no image specified", c.name)
	}

	args := []string{
		"create",
		"--name", c.name,
		"--label", ManagedLabel,
		// Hardening: drop capabilities, block privilege escalation, cap
		// process count against fork bombs.
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
		"--pids-limit=4096",
	}
	if workDir != "" {
		args = append(args,
			"-v", workDir+":/workspace",
			"--workdir", "/workspace",
		)
	}
	args = append(args, c.image)
	// Keeps the container alive for docker exec.
	args = append(args, "sleep", "infinity")

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		exists, existsErr := c.Exists(ctx)
		if existsErr == nil && exists {
			return nil
		}
		return fmt.Errorf("creating container %s: %s: %w", c.name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Start starts a stopped container. Starting a running container is a no-op.
func (c *Container) Start(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "docker", "start", c.name).CombinedOutput()
	if err != nil {
		running, runErr := c.IsRunning(ctx)
		if runErr == nil && running {
			return nil
		}
		return fmt.Errorf("starting container %s: %s: %w", c.name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Stop gracefully stops a running container.
func (c *Container) Stop(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "docker", "stop", c.name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("stopping container %s: %s: %w", c.name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Remove removes the container and its anonymous volumes. A running
// container is killed first when force is true. Removing a container that
// does not exist is a no-op.
func (c *Container) Remove(ctx context.Context, force bool) error {
	args := []string{"rm", "-v"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, c.name)

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		outStr := strings.TrimSpace(string(out))
		if isExitError(err) && strings.Contains(strings.ToLower(outStr), "no such container") {
			return nil
		}
		return fmt.Errorf("removing container %s: %s: %w", c.name, outStr, err)
	}
	return nil
}

// ExecPrefix returns the argv prefix for running a command inside this
// container via an interactive exec.
func (c *Container) ExecPrefix() []string {
	return []string{"docker", "exec", "-it", c.name}
}

// EnsureImage pulls image if it is not in the local cache.
func EnsureImage(ctx context.Context, image string) error {
	if err := exec.CommandContext(ctx, "docker", "image", "inspect", image).Run(); err == nil {
		return nil
	}
	out, err := exec.CommandContext(ctx, "docker", "pull", image).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pulling image %s: %s: %w", image, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// ListManaged returns the names of all containers carrying the managed-by
// label, running or stopped.
func ListManaged(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx,
		"docker", "ps", "-a",
		"--filter", "label="+ManagedLabel,
		"--format", "{{.Names}}",
	).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("listing managed containers: %s: %w", strings.TrimSpace(string(out)), err)
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// IsAvailable returns true if the docker CLI is installed and in PATH.
func IsAvailable() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// IsDaemonRunning returns true if the docker daemon is responsive. A 5s
// timeout keeps callers without a deadline from blocking indefinitely.
func IsDaemonRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "docker", "info", "--format", "{{.ServerVersion}}").Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

// CheckAvailability verifies both the CLI and the daemon are usable.
func CheckAvailability(ctx context.Context) error {
	if !IsAvailable() {
		return ErrDockerNotAvailable
	}
	if !IsDaemonRunning(ctx) {
		return ErrDaemonNotRunning
	}
	return nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
