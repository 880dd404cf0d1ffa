package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a", "b"}, nil
	})

	for i := 0; i < 5; i++ {
		sessions, err := c.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("got %v", sessions)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch within TTL, got %d", got)
	}
}

func TestGetRefetchesAfterTTL(t *testing.T) {
	var calls atomic.Int32
	c := NewWithTTL(func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a"}, nil
	}, 10*time.Millisecond)

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches across TTL expiry, got %d", got)
	}
}

func TestSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once

	c := New(func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		<-release
		return []string{"x"}, nil
	})

	var wg sync.WaitGroup
	results := make([][]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions, err := c.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = sessions
		}(i)
	}

	// Both readers are issued before the fetch resolves
	<-started
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 underlying fetch, got %d", got)
	}
	for i, r := range results {
		if len(r) != 1 || r[0] != "x" {
			t.Errorf("reader %d observed %v", i, r)
		}
	}
}

func TestRefreshForcesRefetch(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a"}, nil
	})

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Refresh()
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("expected refetch after Refresh, got %d fetches", got)
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	wantErr := context.DeadlineExceeded
	c := New(func(ctx context.Context) ([]string, error) {
		return nil, wantErr
	})

	if _, err := c.Get(context.Background()); err != wantErr {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestErrorIsNotCached(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			return nil, context.DeadlineExceeded
		}
		return []string{"ok"}, nil
	})

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error on first fetch")
	}
	sessions, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if len(sessions) != 1 || sessions[0] != "ok" {
		t.Errorf("got %v", sessions)
	}
}

func TestRefreshDuringFlightIsNotLost(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once

	c := New(func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		<-release
		return []string{"stale"}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Get(context.Background()); err != nil {
			t.Errorf("Get: %v", err)
		}
	}()

	// Refresh lands while the fetch is blocked: the list the flight returns
	// predates the mutation and must not be cached as fresh.
	<-started
	c.Refresh()
	close(release)
	<-done

	if _, fresh := c.Cached(); fresh {
		t.Error("list fetched before Refresh was cached as fresh")
	}
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected a re-fetch after the invalidated flight, got %d fetches", got)
	}
}

func TestCached(t *testing.T) {
	c := New(func(ctx context.Context) ([]string, error) {
		return []string{"a"}, nil
	})

	if _, fresh := c.Cached(); fresh {
		t.Error("empty cache reported fresh")
	}
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	sessions, fresh := c.Cached()
	if !fresh || len(sessions) != 1 {
		t.Errorf("Cached = %v, fresh=%v", sessions, fresh)
	}
}
