// ABOUTME: Append-only activity log rows for every mutating operation
// ABOUTME: Entries are never updated; pruning by age is the only bulk delete

package store

import (
	"context"
	"fmt"
	"time"
)

// DefaultUser is the acting user recorded when none is supplied.
const DefaultUser = "system"

// LogActivity appends one activity row. An empty user defaults to system.
func (s *SQLiteStore) LogActivity(ctx context.Context, action, detail, user string) error {
	if user == "" {
		user = DefaultUser
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (action, detail, user, ts) VALUES (?, ?, ?, ?)`,
		action, nullString(detail), user, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// RecentActivity returns the most recent entries, newest first.
// A non-positive limit defaults to 100.
func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]*ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, detail, user, ts FROM activity_log ORDER BY ts DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity log: %w", err)
	}
	defer rows.Close()

	var entries []*ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var detail *string
		var ts string

		if err := rows.Scan(&e.ID, &e.Action, &detail, &e.User, &ts); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		e.Detail = deref(detail)
		e.Timestamp = parseTime(ts)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return entries, nil
}

// PruneActivityOlderThan deletes entries older than the given number of days
// and returns how many rows were removed.
func (s *SQLiteStore) PruneActivityOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE ts < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning activity log: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if removed > 0 {
		s.logger.Debug("pruned activity log", "removed", removed, "days", days)
	}
	return removed, nil
}
