// ABOUTME: BackupRecord bookkeeping rows for the backups table
// ABOUTME: Records are created after successful file copies; only the restored flag mutates

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateBackupRecord inserts a record for a completed backup file.
func (s *SQLiteStore) CreateBackupRecord(ctx context.Context, r *BackupRecord) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (filename, size_bytes, comment, restored, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		r.Filename, r.SizeBytes, nullString(r.Comment), formatTime(r.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting backup record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading backup record id: %w", err)
	}

	s.logger.Debug("created backup record", "id", id, "filename", r.Filename)
	return id, nil
}

// GetBackupRecord retrieves one backup record by id.
func (s *SQLiteStore) GetBackupRecord(ctx context.Context, id int64) (*BackupRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, size_bytes, comment, restored, created_at FROM backups WHERE id = ?`, id)

	r, err := scanBackupRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying backup record: %w", err)
	}
	return r, nil
}

// ListBackupRecords returns all backup records, newest first.
func (s *SQLiteStore) ListBackupRecords(ctx context.Context) ([]*BackupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, size_bytes, comment, restored, created_at
		 FROM backups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying backup records: %w", err)
	}
	defer rows.Close()

	var records []*BackupRecord
	for rows.Next() {
		r, err := scanBackupRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning backup record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backup records: %w", err)
	}
	return records, nil
}

// MarkBackupRestored flags the record whose file was the source of a restore.
func (s *SQLiteStore) MarkBackupRestored(ctx context.Context, filename string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE backups SET restored = 1 WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("marking backup restored: %w", err)
	}
	return nil
}

// DeleteBackupRecord removes one backup record row.
func (s *SQLiteStore) DeleteBackupRecord(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting backup record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBackupRecord(scanner interface{ Scan(dest ...any) error }) (*BackupRecord, error) {
	var r BackupRecord
	var comment *string
	var restored int
	var createdAt string

	err := scanner.Scan(&r.ID, &r.Filename, &r.SizeBytes, &comment, &restored, &createdAt)
	if err != nil {
		return nil, err
	}

	r.Comment = deref(comment)
	r.Restored = restored != 0
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
