// Package cache provides a short-lived, single-flight cache over the
// multiplexer's session listing, so rendering several group rows in quick
// succession spawns at most one subprocess.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leoustc/muxbar/internal/logging"
)

var cacheLog = logging.ForComponent(logging.CompCache)

// DefaultTTL is how long a populated session list stays fresh.
const DefaultTTL = 500 * time.Millisecond

// FetchFunc retrieves the current session list from the backend.
type FetchFunc func(ctx context.Context) ([]string, error)

// SessionCache caches the last-known session list. Concurrent readers
// issued while a fetch is in flight share that fetch's result; mutating
// operations must call Refresh to force the next read to re-fetch.
type SessionCache struct {
	fetch FetchFunc
	ttl   time.Duration

	mu        sync.RWMutex
	sessions  []string
	fetchedAt time.Time

	// gen is bumped by Refresh. A fetch that started before the bump must
	// not populate the cache: its list predates the mutation that
	// triggered the refresh.
	gen uint64

	sf singleflight.Group
}

// New creates a cache around fetch with the default 500ms TTL.
func New(fetch FetchFunc) *SessionCache {
	return NewWithTTL(fetch, DefaultTTL)
}

// NewWithTTL creates a cache with an explicit TTL (used by tests).
func NewWithTTL(fetch FetchFunc, ttl time.Duration) *SessionCache {
	return &SessionCache{fetch: fetch, ttl: ttl}
}

// Get returns the session list, re-fetching when the cached copy is older
// than the TTL. The returned slice is a copy; callers may mutate it.
func (c *SessionCache) Get(ctx context.Context) ([]string, error) {
	// Fast path: fresh cached list, no subprocess.
	c.mu.RLock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		sessions := append([]string(nil), c.sessions...)
		c.mu.RUnlock()
		return sessions, nil
	}
	c.mu.RUnlock()

	// Slow path: at most one outstanding fetch; concurrent callers block
	// on the same result.
	v, err, shared := c.sf.Do("sessions", func() (interface{}, error) {
		// Double-check freshness inside the flight: a caller that queued
		// behind a just-finished fetch should not trigger another.
		c.mu.RLock()
		if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
			sessions := append([]string(nil), c.sessions...)
			c.mu.RUnlock()
			return sessions, nil
		}
		startGen := c.gen
		c.mu.RUnlock()

		sessions, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// A Refresh during the fetch means this list may predate the
		// mutation; hand it to the waiting callers but leave the cache
		// empty so the next Get re-fetches.
		if c.gen == startGen {
			c.sessions = sessions
			c.fetchedAt = time.Now()
		}
		c.mu.Unlock()

		return append([]string(nil), sessions...), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		cacheLog.Debug("session_fetch_shared")
	}
	return v.([]string), nil
}

// Refresh discards the cached list immediately, forcing the next Get to
// re-fetch. Called after any mutating operation (create/delete) and on
// explicit user refresh; the cache never detects external changes on its
// own before the TTL expires.
func (c *SessionCache) Refresh() {
	c.mu.Lock()
	c.sessions = nil
	c.fetchedAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}

// Cached returns the cached list without fetching, plus whether it is
// still fresh. Used by the UI for synchronous repaints.
func (c *SessionCache) Cached() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh := !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl
	return append([]string(nil), c.sessions...), fresh
}
