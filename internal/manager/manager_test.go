package manager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoustc/muxbar/internal/cache"
	"github.com/leoustc/muxbar/internal/config"
	"github.com/leoustc/muxbar/internal/mux"
)

// fakeMux is an in-memory Multiplexer for tests.
type fakeMux struct {
	sessions []string
	listErr  error
	killErr  error

	created []mux.CreateOptions
	killed  []string
}

func (f *fakeMux) Backend() mux.Backend { return mux.BackendTmux }

func (f *fakeMux) ListSessions(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]string, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeMux) CreateSession(ctx context.Context, opts mux.CreateOptions) error {
	f.created = append(f.created, opts)
	f.sessions = append(f.sessions, opts.Name)
	return nil
}

func (f *fakeMux) AttachCommand(name string) string {
	return "tmux attach -t " + mux.Quote(name)
}

func (f *fakeMux) KillSession(ctx context.Context, name string) error {
	if f.killErr != nil {
		return f.killErr
	}
	f.killed = append(f.killed, name)
	for i, s := range f.sessions {
		if s == name {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeMux) Available() error { return nil }

// fakeFavorites is an in-memory Favorites store.
type fakeFavorites struct {
	set map[string]bool
}

func newFakeFavorites() *fakeFavorites { return &fakeFavorites{set: make(map[string]bool)} }

func (f *fakeFavorites) Add(name string) error    { f.set[name] = true; return nil }
func (f *fakeFavorites) Remove(name string) error { delete(f.set, name); return nil }
func (f *fakeFavorites) Toggle(name string) (bool, error) {
	if f.set[name] {
		delete(f.set, name)
		return false, nil
	}
	f.set[name] = true
	return true, nil
}
func (f *fakeFavorites) IsFavorite(name string) (bool, error) { return f.set[name], nil }
func (f *fakeFavorites) List() ([]string, error) {
	var names []string
	for n := range f.set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func newTestManager(t *testing.T, fm *fakeMux, cfg *config.Config) *Manager {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	m, err := New(cfg, newFakeFavorites())
	require.NoError(t, err)
	m.mux = fm
	m.cache = cache.New(fm.ListSessions)
	return m
}

func TestNewTerminalSessionPicksSmallestFreeNumber(t *testing.T) {
	fm := &fakeMux{sessions: []string{"terminal-1", "terminal-3"}}
	m := newTestManager(t, fm, nil)

	name, err := m.NewTerminalSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "terminal-2", name)
}

func TestNewTerminalSessionWithListFailure(t *testing.T) {
	fm := &fakeMux{listErr: errors.New("backend down")}
	m := newTestManager(t, fm, nil)

	name, err := m.NewTerminalSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "terminal-1", name)
	require.Len(t, fm.created, 1)
}

func TestNewToolSessionUsesToolGroupPrefix(t *testing.T) {
	fm := &fakeMux{}
	m := newTestManager(t, fm, nil)

	name, err := m.NewToolSession(context.Background(), "codex --resume", "/work")
	require.NoError(t, err)
	assert.Equal(t, "codex-1", name)
	require.Len(t, fm.created, 1)
	assert.Equal(t, "codex --resume", fm.created[0].InitialCommand)
	assert.Equal(t, "/work", fm.created[0].WorkDir)
}

func TestNewNamedSessionSanitizesAndBounds(t *testing.T) {
	fm := &fakeMux{}
	m := newTestManager(t, fm, nil)

	name, err := m.NewNamedSession(context.Background(), "My Fix!", "")
	require.NoError(t, err)
	assert.Equal(t, "terminal-My-Fix-", name)
	assert.LessOrEqual(t, len(name), mux.MaxSessionNameLen)
}

func TestNewNamedSessionCollisionGetsNumber(t *testing.T) {
	fm := &fakeMux{sessions: []string{"terminal-work"}}
	m := newTestManager(t, fm, nil)

	name, err := m.NewNamedSession(context.Background(), "work", "")
	require.NoError(t, err)
	assert.Equal(t, "terminal-work-1", name)
}

func TestDeleteSessionCleansUpFavorite(t *testing.T) {
	fm := &fakeMux{sessions: []string{"terminal-1"}}
	m := newTestManager(t, fm, nil)

	fav, err := m.ToggleFavorite("terminal-1")
	require.NoError(t, err)
	require.True(t, fav)

	require.NoError(t, m.DeleteSession(context.Background(), "terminal-1"))
	assert.Equal(t, []string{"terminal-1"}, fm.killed)

	still, err := m.favorites.IsFavorite("terminal-1")
	require.NoError(t, err)
	assert.False(t, still)
}

func TestDeleteSessionPropagatesKillError(t *testing.T) {
	wantErr := errors.New("kill failed")
	fm := &fakeMux{sessions: []string{"terminal-1"}, killErr: wantErr}
	m := newTestManager(t, fm, nil)

	err := m.DeleteSession(context.Background(), "terminal-1")
	assert.ErrorIs(t, err, wantErr)
}

func TestGroupsOrderingAndMembership(t *testing.T) {
	fm := &fakeMux{sessions: []string{
		"terminal-1", "codex-2", "codex-1", "my-custom-thing-1", "oddball",
	}}
	cfg := config.Default()
	cfg.Tools = []string{"codex"}
	m := newTestManager(t, fm, cfg)

	_, err := m.ToggleFavorite("codex-1")
	require.NoError(t, err)

	groups, err := m.Groups(context.Background())
	require.NoError(t, err)

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"favorites", "terminal", "codex", "my-custom-thing"}, names)

	// terminal holds the numbered terminal plus the unclassifiable name
	assert.Len(t, groups[1].Sessions, 2)
	// codex sessions are name-sorted
	require.Len(t, groups[2].Sessions, 2)
	assert.Equal(t, "codex-1", groups[2].Sessions[0].Name)
	assert.True(t, groups[2].Sessions[0].Favorite)
	assert.Equal(t, "codex", groups[2].Command)
}

func TestGroupsEmptyToolGroupStillListed(t *testing.T) {
	fm := &fakeMux{}
	cfg := config.Default()
	cfg.Tools = []string{"codex", "/opt/tools/review.sh"}
	m := newTestManager(t, fm, cfg)

	groups, err := m.Groups(context.Background())
	require.NoError(t, err)

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"terminal", "codex", "review-sh"}, names)
	assert.Equal(t, "/opt/tools/review.sh", groups[2].Command)
}

func TestReconcileReportsDeparted(t *testing.T) {
	fm := &fakeMux{sessions: []string{"terminal-1", "codex-1"}}
	m := newTestManager(t, fm, nil)

	// First pass seeds the known set.
	departed, err := m.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, departed)

	fm.sessions = []string{"codex-1"}
	m.cache.Refresh()

	departed, err = m.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"terminal-1"}, departed)
}

func TestRefreshIsRateLimited(t *testing.T) {
	fm := &fakeMux{}
	m := newTestManager(t, fm, nil)

	assert.True(t, m.Refresh())
	assert.False(t, m.Refresh())
}

func TestConcurrentReconcileAndApplyConfig(t *testing.T) {
	fm := &fakeMux{sessions: []string{"terminal-1", "codex-1"}}
	m := newTestManager(t, fm, nil)

	// Overlapping ticks reconcile from several goroutines while the config
	// watcher applies reloads; run under -race.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := m.Reconcile(context.Background()); err != nil {
					t.Errorf("Reconcile: %v", err)
					return
				}
				m.AutoCloseEnabled()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			cfg := config.Default()
			cfg.AutoCloseFrontends = j%2 == 0
			m.ApplyConfig(cfg)
		}
	}()

	wg.Wait()
}

func TestAttachCommandQuotesName(t *testing.T) {
	fm := &fakeMux{}
	m := newTestManager(t, fm, nil)
	assert.Equal(t, "tmux attach -t 'terminal-1'", m.AttachCommand("terminal-1"))
}
