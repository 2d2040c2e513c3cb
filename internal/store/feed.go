package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrFeedNotFound is returned when a lookup names a feed key the feeds
// table has no row for.
var ErrFeedNotFound = errors.New("store: feed not found")

// UpsertFeed returns the feed's key, inserting a feeds row if name has
// never been seen before.
func (s *Store) UpsertFeed(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO feeds (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("store: upsert feed %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("store: upsert feed %s: %w", name, err)
		}
		return id, nil
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM feeds WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: lookup feed %s: %w", name, err)
	}
	return id, nil
}

// LastUpdated reports a feed's last_updated timestamp. ok is false for a
// feed that has never completed an update cycle (last_updated == 0).
func (s *Store) LastUpdated(ctx context.Context, feedKey int64) (t time.Time, ok bool, err error) {
	var unix int64
	err = s.db.QueryRowContext(ctx, `SELECT last_updated FROM feeds WHERE id = ?`, feedKey).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, ErrFeedNotFound
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("store: last updated for feed %d: %w", feedKey, err)
	}
	if unix == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(unix, 0).UTC(), true, nil
}
