// Package scheduler runs one goroutine per enabled feed, fetching,
// extracting, and persisting on a per-feed interval with jittered start
// times and on-demand trigger coalescing.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"feedmill/internal/extract"
	"feedmill/internal/fetch"
	"feedmill/internal/store"
)

// ErrFeedNotFound and ErrFeedDisabled are the two outcomes TriggerUpdate
// maps to HTTP 404 / 409 in internal/httpapi.
var (
	ErrFeedNotFound = errors.New("scheduler: feed not found")
	ErrFeedDisabled = errors.New("scheduler: feed is disabled")
)

// FeedConfig is one feed's scheduling configuration, built by
// internal/config from the TOML feed table.
type FeedConfig struct {
	Name      string
	URL       *url.URL
	Interval  time.Duration
	Enabled   bool
	Extractor extract.Extractor
}

// Scheduler owns one feedTask per configured feed. The task map is built
// once in Start and never mutated afterward, so TriggerUpdate can read it
// without a lock; only the per-task trigger channel send needs no extra
// synchronization, which channels already provide.
type Scheduler struct {
	store           *store.Store
	fetcher         *fetch.Fetcher
	logger          *slog.Logger
	maxInitialSleep time.Duration

	tasks map[string]*feedTask
	wg    sync.WaitGroup
}

// New builds a Scheduler. maxInitialSleep bounds the random startup delay
// each feed task waits before its first tick, spreading initial load.
func New(st *store.Store, fetcher *fetch.Fetcher, logger *slog.Logger, maxInitialSleep time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:           st,
		fetcher:         fetcher,
		logger:          logger,
		maxInitialSleep: maxInitialSleep,
		tasks:           make(map[string]*feedTask),
	}
}

type feedTask struct {
	cfg     FeedConfig
	feedKey int64
	trigger chan struct{}
	logger  *slog.Logger
}

// Start upserts every feed and, for enabled ones, launches its goroutine.
// Disabled feeds still get a task entry (without a goroutine) so
// TriggerUpdate can distinguish "unknown feed" from "disabled feed".
func (s *Scheduler) Start(ctx context.Context, feeds []FeedConfig) error {
	for _, cfg := range feeds {
		feedKey, err := s.store.UpsertFeed(ctx, cfg.Name)
		if err != nil {
			return err
		}
		t := &feedTask{
			cfg:     cfg,
			feedKey: feedKey,
			trigger: make(chan struct{}, 1),
			logger:  s.logger.With("feed", cfg.Name),
		}
		s.tasks[cfg.Name] = t
		if !cfg.Enabled {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runTask(ctx, t)
		}()
	}
	return nil
}

// Wait blocks until every running feed task has returned (after ctx is
// cancelled).
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// FeedKey returns the store key Start assigned to a configured feed name,
// for wiring internal/feedsvc's read-side registry without a second
// UpsertFeed call. Only meaningful after Start has returned.
func (s *Scheduler) FeedKey(name string) (int64, bool) {
	t, ok := s.tasks[name]
	if !ok {
		return 0, false
	}
	return t.feedKey, true
}

// Names returns every feed name Start registered, enabled or not.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// TriggerUpdate asks the named feed's task to run an update cycle as soon
// as it next checks its trigger channel. The channel's capacity-1,
// non-blocking send gives "coalesce to at most one extra cycle" for free:
// a second trigger before the first is consumed is simply dropped.
func (s *Scheduler) TriggerUpdate(name string) error {
	t, ok := s.tasks[name]
	if !ok {
		return ErrFeedNotFound
	}
	if !t.cfg.Enabled {
		return ErrFeedDisabled
	}
	select {
	case t.trigger <- struct{}{}:
	default:
	}
	return nil
}

func (s *Scheduler) runTask(ctx context.Context, t *feedTask) {
	initial := randDuration(s.maxInitialSleep)
	select {
	case <-time.After(initial):
	case <-ctx.Done():
		return
	}

	for {
		nextDue := s.nextDue(ctx, t)
		wait := time.Until(nextDue)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
		case <-t.trigger:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		}

		s.runCycle(ctx, t)
	}
}

func (s *Scheduler) nextDue(ctx context.Context, t *feedTask) time.Time {
	last, ok, err := s.store.LastUpdated(ctx, t.feedKey)
	if err != nil {
		t.logger.Error("reading last update time", "error", err)
		return time.Now()
	}
	if !ok {
		return time.Now()
	}
	return last.Add(t.cfg.Interval)
}

// runCycle performs one fetch/extract/store cycle, logging the outcome at
// INFO on success, WARN on a fetch or extract failure, ERROR on a store
// failure. A failed cycle leaves last_updated untouched and the next cycle
// is scheduled normally.
func (s *Scheduler) runCycle(ctx context.Context, t *feedTask) {
	start := time.Now()

	body, err := s.fetcher.Fetch(ctx, t.cfg.URL)
	if err != nil {
		t.logger.Warn("fetch failed", "error", err)
		return
	}

	entries, err := t.cfg.Extractor.Extract(ctx, body, t.cfg.URL)
	if err != nil {
		t.logger.Warn("extract failed", "error", err)
		return
	}

	// The transaction boundary is also the cancellation boundary: a cycle
	// caught by shutdown here is dropped before its transaction starts, and
	// a transaction that has started runs to commit unaffected by shutdown.
	if ctx.Err() != nil {
		return
	}

	// Every entry in one cycle gets the cycle's start instant as its
	// retrieved time.
	if err := s.store.RecordUpdate(context.WithoutCancel(ctx), t.feedKey, start, entries); err != nil {
		t.logger.Error("store failed", "error", err)
		return
	}

	t.logger.Info("feed updated", "entries", len(entries), "duration", time.Since(start))
}

func randDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
