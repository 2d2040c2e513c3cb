// Package feedsvc is the read side of a feed: it turns stored rows into
// the view internal/httpapi renders as RSS or an index page.
package feedsvc

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"feedmill/internal/store"
)

// ErrNotFound is returned for a feed name no configuration registered.
var ErrNotFound = errors.New("feedsvc: feed not found")

// DefaultEntryLimit bounds FeedView.Entries absent an explicit override.
const DefaultEntryLimit = 50

// FeedView is everything the HTTP surface needs to render one feed,
// whether or not it is currently enabled to fetch.
type FeedView struct {
	Name    string
	Enabled bool
	Entries []store.PersistedEntry
}

// Registration is one feed's static identity, set once at startup from
// config: its store key and whether scheduling is enabled for it.
type Registration struct {
	FeedKey int64
	Enabled bool
}

// Service reads feeds for the HTTP surface. Disabled feeds remain
// readable: disabling a feed only stops its scheduler task, not its
// archive.
type Service struct {
	store      *store.Store
	feeds      map[string]Registration
	entryLimit int
}

// New builds a Service. feeds maps a feed's configured name to its store
// key and enabled flag, built once at startup (the same set Scheduler.Start
// upserts). entryLimit <= 0 uses DefaultEntryLimit.
func New(st *store.Store, feeds map[string]Registration, entryLimit int) *Service {
	if entryLimit <= 0 {
		entryLimit = DefaultEntryLimit
	}
	return &Service{store: st, feeds: feeds, entryLimit: entryLimit}
}

// GetFeed returns the named feed's current view.
func (s *Service) GetFeed(ctx context.Context, name string) (*FeedView, error) {
	reg, ok := s.feeds[name]
	if !ok {
		return nil, fmt.Errorf("feedsvc: %s: %w", name, ErrNotFound)
	}
	entries, err := s.store.ListEntries(ctx, reg.FeedKey, s.entryLimit)
	if err != nil {
		return nil, fmt.Errorf("feedsvc: %s: %w", name, err)
	}
	return &FeedView{Name: name, Enabled: reg.Enabled, Entries: entries}, nil
}

// Names returns every configured feed name, sorted, for the HTTP index page.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.feeds))
	for name := range s.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
