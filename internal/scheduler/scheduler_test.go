package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"feedmill/internal/extract"
	"feedmill/internal/fetch"
	"feedmill/internal/store"
)

// countingExtractor records how many times Extract is called, returning no
// entries.
type countingExtractor struct {
	calls atomic.Int64
}

func (c *countingExtractor) Extract(ctx context.Context, body []byte, sourceURL *url.URL) ([]extract.Entry, error) {
	c.calls.Add(1)
	return nil, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "feedmill.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, fetch.New(5*time.Second), nil, 0), st
}

func TestTriggerUpdateUnknownFeed(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.TriggerUpdate("missing"); err != ErrFeedNotFound {
		t.Fatalf("got %v, want ErrFeedNotFound", err)
	}
}

func TestTriggerUpdateDisabledFeed(t *testing.T) {
	s, _ := newTestScheduler(t)
	u, _ := url.Parse("https://example.com/")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, []FeedConfig{{Name: "f", URL: u, Interval: time.Hour, Enabled: false, Extractor: &countingExtractor{}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.TriggerUpdate("f"); err != ErrFeedDisabled {
		t.Fatalf("got %v, want ErrFeedDisabled", err)
	}
}

// fixedExtractor always yields the same two entries, regardless of body.
type fixedExtractor struct{}

func (fixedExtractor) Extract(ctx context.Context, body []byte, sourceURL *url.URL) ([]extract.Entry, error) {
	return []extract.Entry{
		{ID: "1", Title: "First", URL: "https://example.com/1"},
		{ID: "2", Title: "Second", URL: "https://example.com/2"},
	}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestUpdateCyclePersistsAndDedups(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	s, st := newTestScheduler(t)
	u, _ := url.Parse(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A long interval means only the initial cycle (no last_updated yet)
	// and explicitly triggered cycles run during the test.
	cfg := FeedConfig{Name: "f", URL: u, Interval: time.Hour, Enabled: true, Extractor: fixedExtractor{}}
	if err := s.Start(ctx, []FeedConfig{cfg}); err != nil {
		t.Fatal(err)
	}
	feedKey, ok := s.FeedKey("f")
	if !ok {
		t.Fatal("feed key not registered")
	}

	waitFor(t, "first cycle", func() bool {
		_, ok, err := st.LastUpdated(ctx, feedKey)
		return err == nil && ok
	})

	entries, err := st.ListEntries(ctx, feedKey, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries after first cycle, want 2", len(entries))
	}
	firstUpdate, _, err := st.LastUpdated(ctx, feedKey)
	if err != nil {
		t.Fatal(err)
	}
	retrieved := entries[0].Retrieved

	// An on-demand trigger runs a second cycle; the same two entry ids must
	// not duplicate, and their retrieved instants must not change.
	waitFor(t, "second cycle", func() bool {
		if err := s.TriggerUpdate("f"); err != nil {
			t.Fatal(err)
		}
		lu, _, err := st.LastUpdated(ctx, feedKey)
		return err == nil && lu.After(firstUpdate)
	})

	entries, err = st.ListEntries(ctx, feedKey, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries after second cycle, want 2 (dedup)", len(entries))
	}
	if !entries[0].Retrieved.Equal(retrieved) {
		t.Fatalf("retrieved changed across cycles: %v -> %v", retrieved, entries[0].Retrieved)
	}

	// A failing fetch skips the cycle without touching last_updated. The
	// settle sleep lets any cycle queued by the trigger loop above finish
	// before the failure flag flips and the baseline is read.
	time.Sleep(300 * time.Millisecond)
	failing.Store(true)
	before, _, err := st.LastUpdated(ctx, feedKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.TriggerUpdate("f"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	after, _, err := st.LastUpdated(ctx, feedKey)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Equal(before) {
		t.Fatalf("last_updated advanced on a failed fetch: %v -> %v", before, after)
	}
	entries, err = st.ListEntries(ctx, feedKey, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries lost on a failed fetch: got %d", len(entries))
	}
}

func TestTriggerUpdateCoalesces(t *testing.T) {
	t1 := &feedTask{trigger: make(chan struct{}, 1), cfg: FeedConfig{Enabled: true}}
	s := &Scheduler{tasks: map[string]*feedTask{"f": t1}}

	if err := s.TriggerUpdate("f"); err != nil {
		t.Fatal(err)
	}
	// A second trigger before the first is drained must not block and must
	// not queue a second pending cycle.
	if err := s.TriggerUpdate("f"); err != nil {
		t.Fatal(err)
	}
	if len(t1.trigger) != 1 {
		t.Fatalf("expected exactly one pending trigger, got %d", len(t1.trigger))
	}
}
