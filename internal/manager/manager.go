// Package manager orchestrates sessions across the multiplexer backend,
// the session cache, favorites, and the optional sandbox. The UI and the
// CLI subcommands both drive it; neither talks to a backend directly.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leoustc/muxbar/internal/cache"
	"github.com/leoustc/muxbar/internal/config"
	"github.com/leoustc/muxbar/internal/docker"
	"github.com/leoustc/muxbar/internal/group"
	"github.com/leoustc/muxbar/internal/logging"
	"github.com/leoustc/muxbar/internal/mux"
)

var log = logging.ForComponent(logging.CompSession)

// Favorites is the subset of the store the manager needs. *store.Store
// satisfies it; tests pass an in-memory fake.
type Favorites interface {
	Add(sessionName string) error
	Remove(sessionName string) error
	Toggle(sessionName string) (bool, error)
	IsFavorite(sessionName string) (bool, error)
	List() ([]string, error)
}

// SessionInfo is one live session with display metadata.
type SessionInfo struct {
	Name     string
	Group    string
	Favorite bool
}

// GroupInfo is one sidebar group with its member sessions in order.
type GroupInfo struct {
	// Name is the group key ("favorites", "terminal", or a tool group).
	Name string

	// Command is the tool command that spawned this group, empty for the
	// terminal and favorites groups.
	Command string

	// Sessions are the members, name-sorted.
	Sessions []SessionInfo
}

// Manager ties the backend adapter, cache, favorites, and sandbox together.
// Callers run it from multiple goroutines: every UI command runs in its own
// goroutine, and the config watcher calls ApplyConfig from the watcher
// goroutine.
type Manager struct {
	// mu guards cfg, mux, cache, sandbox, and known. Backend subprocess
	// calls happen on snapshots taken under the lock, never while holding
	// it.
	mu      sync.RWMutex
	cfg     *config.Config
	mux     mux.Multiplexer
	cache   *cache.SessionCache
	sandbox *docker.Sandbox

	// known tracks session names seen in the previous reconcile pass.
	known map[string]bool

	// favorites is set once at construction; the store is safe for
	// concurrent use.
	favorites Favorites

	// refreshLimiter bounds how often manual refreshes may invalidate the
	// cache, so holding the refresh key does not hammer the backend.
	refreshLimiter *rate.Limiter
}

// snapshot returns the mutable collaborators under a read lock so callers
// can operate on a consistent set without holding mu across subprocess
// calls.
func (m *Manager) snapshot() (*config.Config, mux.Multiplexer, *cache.SessionCache, *docker.Sandbox) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg, m.mux, m.cache, m.sandbox
}

// New builds a manager for the configured backend. favorites may be nil
// when persistence is unavailable; favorites operations then degrade to
// no-ops.
func New(cfg *config.Config, favorites Favorites) (*Manager, error) {
	m, err := mux.New(mux.Backend(cfg.Backend))
	if err != nil {
		return nil, err
	}
	if tm, ok := m.(*mux.TmuxBackend); ok {
		tm.Mouse = cfg.TmuxMouse
	}

	mgr := &Manager{
		cfg:            cfg,
		mux:            m,
		favorites:      favorites,
		refreshLimiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		known:          make(map[string]bool),
	}
	mgr.cache = cache.New(m.ListSessions)
	if cfg.Sandbox.Enabled {
		mgr.sandbox = docker.NewSandbox(cfg.Sandbox.Image)
	}
	return mgr, nil
}

// Backend returns which multiplexer the manager drives.
func (m *Manager) Backend() mux.Backend {
	_, mx, _, _ := m.snapshot()
	return mx.Backend()
}

// CheckBackend probes for the backend binary. Diagnostics only.
func (m *Manager) CheckBackend() error {
	_, mx, _, _ := m.snapshot()
	return mx.Available()
}

// ApplyConfig swaps in a reloaded config. Backend changes take effect on
// the next listing; an invalid backend keeps the old adapter.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := mux.New(mux.Backend(cfg.Backend))
	if err != nil {
		log.Warn("config_backend_invalid", slog.String("backend", cfg.Backend))
		m.cfg = cfg
		return
	}
	if tm, ok := next.(*mux.TmuxBackend); ok {
		tm.Mouse = cfg.TmuxMouse
	}

	if next.Backend() != m.mux.Backend() {
		m.mux = next
		m.cache = cache.New(next.ListSessions)
		m.known = make(map[string]bool)
		log.Info("backend_switched", slog.String("backend", cfg.Backend))
	} else {
		m.mux = next
	}

	if cfg.Sandbox.Enabled {
		m.sandbox = docker.NewSandbox(cfg.Sandbox.Image)
	} else {
		m.sandbox = nil
	}
	m.cfg = cfg
}

// Sessions returns the live session names, served from the cache.
func (m *Manager) Sessions(ctx context.Context) ([]string, error) {
	_, _, c, _ := m.snapshot()
	return c.Get(ctx)
}

// Groups returns the sidebar groups in display order: favorites first when
// non-empty, then terminal, then one group per configured tool, then any
// groups inferred from session names alone. Groups for configured tools
// appear even when empty so they stay launchable.
func (m *Manager) Groups(ctx context.Context) ([]GroupInfo, error) {
	sessions, err := m.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	cfg, _, _, _ := m.snapshot()
	known := group.KnownGroupNames(cfg.Tools)
	favs := m.favoriteSet()

	byGroup := make(map[string][]SessionInfo)
	for _, name := range sessions {
		g := group.SessionGroup(name, known)
		byGroup[g] = append(byGroup[g], SessionInfo{Name: name, Group: g, Favorite: favs[name]})
	}
	for _, members := range byGroup {
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	}

	var groups []GroupInfo

	if len(favs) > 0 {
		var members []SessionInfo
		for _, name := range sessions {
			if favs[name] {
				members = append(members, SessionInfo{
					Name:     name,
					Group:    group.SessionGroup(name, known),
					Favorite: true,
				})
			}
		}
		if len(members) > 0 {
			sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
			groups = append(groups, GroupInfo{Name: group.FavoritesKey, Sessions: members})
		}
	}

	groups = append(groups, GroupInfo{
		Name:     group.DefaultGroup,
		Sessions: byGroup[group.DefaultGroup],
	})
	delete(byGroup, group.DefaultGroup)

	// Configured tools, in config order.
	seen := map[string]bool{group.DefaultGroup: true}
	for _, cmd := range cfg.Tools {
		g := group.ToolGroupName(cmd)
		if seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, GroupInfo{Name: g, Command: cmd, Sessions: byGroup[g]})
		delete(byGroup, g)
	}

	// Leftover inferred groups, name-sorted for stable display.
	var rest []string
	for g := range byGroup {
		rest = append(rest, g)
	}
	sort.Strings(rest)
	for _, g := range rest {
		groups = append(groups, GroupInfo{Name: g, Sessions: byGroup[g]})
	}

	return groups, nil
}

// NewTerminalSession creates the next numbered terminal session and returns
// its name.
func (m *Manager) NewTerminalSession(ctx context.Context, workDir string) (string, error) {
	return m.newNumberedSession(ctx, group.DefaultGroup, "", workDir)
}

// NewToolSession creates the next numbered session for a tool command. The
// group name becomes the name prefix; the tool command becomes the
// session's initial command, sandboxed when configured.
func (m *Manager) NewToolSession(ctx context.Context, toolCommand, workDir string) (string, error) {
	return m.newNumberedSession(ctx, group.ToolGroupName(toolCommand), toolCommand, workDir)
}

// NewNamedSession creates a session titled by the user. The title becomes
// the suffix under the terminal prefix; collisions get a numeric suffix.
func (m *Manager) NewNamedSession(ctx context.Context, title, workDir string) (string, error) {
	name := mux.BuildSessionName(group.DefaultGroup, title)

	sessions, err := m.Sessions(ctx)
	if err != nil {
		sessions = nil
	}
	for _, existing := range sessions {
		if existing == name {
			name = mux.NextSessionName(name, sessions)
			break
		}
	}

	if err := m.createSession(ctx, name, "", workDir); err != nil {
		return "", err
	}
	return name, nil
}

func (m *Manager) newNumberedSession(ctx context.Context, prefix, toolCommand, workDir string) (string, error) {
	// A failed listing degrades to an empty list: the name generator then
	// starts at 1, and creation surfaces any real backend problem.
	sessions, err := m.Sessions(ctx)
	if err != nil {
		log.Warn("list_before_create_failed", slog.String("error", err.Error()))
		sessions = nil
	}
	name := mux.NextSessionName(prefix, sessions)

	if err := m.createSession(ctx, name, toolCommand, workDir); err != nil {
		return "", err
	}
	return name, nil
}

func (m *Manager) createSession(ctx context.Context, name, toolCommand, workDir string) error {
	cfg, mx, c, sb := m.snapshot()

	initial := toolCommand
	if toolCommand != "" && sb != nil {
		wrapped, err := sb.WrapCommand(ctx, name, workDir, toolCommand)
		if err != nil {
			return fmt.Errorf("sandbox for %s: %w", name, err)
		}
		initial = wrapped
	}

	opts := mux.CreateOptions{
		Name:           name,
		WorkDir:        workDir,
		EnvFile:        cfg.ResolvedEnvFile(workDir),
		InitialCommand: initial,
		Shell:          mux.Shell(cfg.Shell),
	}
	if err := mx.CreateSession(ctx, opts); err != nil {
		return err
	}

	log.Info("session_created",
		slog.String("name", name),
		slog.String("backend", string(mx.Backend())))
	c.Refresh()
	return nil
}

// DeleteSession kills a session and cleans up its favorite entry and
// sandbox container. Kill errors propagate; cleanup errors are logged.
func (m *Manager) DeleteSession(ctx context.Context, name string) error {
	_, mx, c, sb := m.snapshot()

	if err := mx.KillSession(ctx, name); err != nil {
		return err
	}
	log.Info("session_deleted", slog.String("name", name))

	if m.favorites != nil {
		if err := m.favorites.Remove(name); err != nil {
			log.Warn("favorite_cleanup_failed", slog.String("name", name), slog.String("error", err.Error()))
		}
	}
	if sb != nil {
		if err := sb.Cleanup(ctx, name); err != nil {
			log.Warn("sandbox_cleanup_failed", slog.String("name", name), slog.String("error", err.Error()))
		}
	}

	c.Refresh()
	return nil
}

// AttachCommand returns the shell command to attach a terminal to a session.
func (m *Manager) AttachCommand(name string) string {
	_, mx, _, _ := m.snapshot()
	return mx.AttachCommand(name)
}

// ToggleFavorite flips a session's favorite state and returns the new state.
func (m *Manager) ToggleFavorite(name string) (bool, error) {
	if m.favorites == nil {
		return false, nil
	}
	return m.favorites.Toggle(name)
}

// Refresh invalidates the session cache, rate-limited so a held-down key
// cannot hammer the backend. Returns whether the refresh was applied.
func (m *Manager) Refresh() bool {
	if !m.refreshLimiter.Allow() {
		return false
	}
	_, _, c, _ := m.snapshot()
	c.Refresh()
	return true
}

// Reconcile compares live sessions against the previously seen set and
// returns the names that disappeared since the last pass. The first pass
// only seeds the set. Callers use the departed list to close tracked
// frontends when auto_close_frontends is on.
func (m *Manager) Reconcile(ctx context.Context) ([]string, error) {
	sessions, err := m.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	live := make(map[string]bool, len(sessions))
	for _, name := range sessions {
		live[name] = true
	}

	m.mu.Lock()
	var departed []string
	for name := range m.known {
		if !live[name] {
			departed = append(departed, name)
		}
	}
	sort.Strings(departed)
	m.known = live
	sb := m.sandbox
	m.mu.Unlock()

	// Sessions killed outside muxbar leave their sandbox containers behind.
	if sb != nil {
		for _, name := range departed {
			if err := sb.Cleanup(ctx, name); err != nil {
				log.Warn("sandbox_cleanup_failed", slog.String("name", name), slog.String("error", err.Error()))
			}
		}
	}

	if len(departed) > 0 {
		log.Debug("sessions_departed", slog.Int("count", len(departed)))
	}
	return departed, nil
}

// AutoCloseEnabled reports whether departed sessions should close their
// tracked frontends.
func (m *Manager) AutoCloseEnabled() bool {
	cfg, _, _, _ := m.snapshot()
	return cfg.AutoCloseFrontends
}

func (m *Manager) favoriteSet() map[string]bool {
	set := make(map[string]bool)
	if m.favorites == nil {
		return set
	}
	names, err := m.favorites.List()
	if err != nil {
		log.Warn("favorites_list_failed", slog.String("error", err.Error()))
		return set
	}
	for _, n := range names {
		set[n] = true
	}
	return set
}
