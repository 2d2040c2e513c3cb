package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedmill/internal/extract"
)

// PersistedEntry is one stored entry row, as read back for the HTTP/RSS
// surface.
type PersistedEntry struct {
	ID          int64
	EntryID     string
	Title       string
	Description string
	URL         string
	Author      string
	Published   *time.Time
	Retrieved   time.Time
}

// RecordUpdate inserts entries (ignoring ones already seen for this feed,
// by the entries table's (feed_id, entry_id) uniqueness) and advances the
// feed's last_updated, in a single transaction.
func (s *Store) RecordUpdate(ctx context.Context, feedKey int64, now time.Time, entries []extract.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin record update for feed %d: %w", feedKey, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO entries
			(feed_id, retrieved, entry_id, title, description, url, author, published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert entry: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var published sql.NullInt64
		if e.Published != nil {
			published = sql.NullInt64{Int64: e.Published.Unix(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx, feedKey, now.Unix(), e.ID, e.Title, e.Description, e.URL, nullIfEmpty(e.Author), published)
		if err != nil {
			return fmt.Errorf("store: insert entry %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE feeds SET last_updated = ? WHERE id = ?`, now.Unix(), feedKey); err != nil {
		return fmt.Errorf("store: update last_updated for feed %d: %w", feedKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit record update for feed %d: %w", feedKey, err)
	}
	return nil
}

// ListEntries returns up to limit of a feed's stored entries, most
// recently retrieved first.
func (s *Store) ListEntries(ctx context.Context, feedKey int64, limit int) ([]PersistedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, title, description, url, author, published, retrieved
		FROM entries
		WHERE feed_id = ?
		ORDER BY retrieved DESC, id DESC
		LIMIT ?`, feedKey, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list entries for feed %d: %w", feedKey, err)
	}
	defer rows.Close()

	var out []PersistedEntry
	for rows.Next() {
		var pe PersistedEntry
		var author sql.NullString
		var published sql.NullInt64
		var retrieved int64
		if err := rows.Scan(&pe.ID, &pe.EntryID, &pe.Title, &pe.Description, &pe.URL, &author, &published, &retrieved); err != nil {
			return nil, fmt.Errorf("store: scan entry row: %w", err)
		}
		pe.Author = author.String
		if published.Valid {
			t := time.Unix(published.Int64, 0).UTC()
			pe.Published = &t
		}
		pe.Retrieved = time.Unix(retrieved, 0).UTC()
		out = append(out, pe)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
