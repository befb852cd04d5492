// ABOUTME: Backup and restore manager for the SQLite store file
// ABOUTME: Close-copy-reopen protocol with a safety copy so a failed restore never corrupts live data

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chemlab/labstock/internal/notify"
	"github.com/chemlab/labstock/internal/store"
)

var (
	// ErrSourceMissing is returned when the live store file does not exist.
	ErrSourceMissing = errors.New("database file not found")
	// ErrCopyFailed wraps an I/O failure while writing the backup file.
	ErrCopyFailed = errors.New("backup copy failed")
	// ErrBackupNotFound is returned when the requested backup path does not exist.
	ErrBackupNotFound = errors.New("backup file not found")
	// ErrRestoreFailed wraps a failure while copying a backup over the live
	// store; the previous live data is put back from the safety copy.
	ErrRestoreFailed = errors.New("restore failed")
)

// Record is a BackupRecord joined with a file-existence flag checked against
// the backup directory at read time.
type Record struct {
	store.BackupRecord
	FileExists bool
}

// Manager snapshots and restores the store file. Backup creation and
// restore need exclusive access to the file, so the store handle is closed
// for the duration of the copy and reopened on every exit path.
type Manager struct {
	mu     sync.Mutex
	store  *store.SQLiteStore
	dir    string
	events *notify.Broadcaster
	logger *slog.Logger
}

// NewManager creates a backup manager writing into dir.
func NewManager(st *store.SQLiteStore, dir string, events *notify.Broadcaster, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  st,
		dir:    dir,
		events: events,
		logger: logger.With("component", "backup"),
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateBackup copies the store file into the backup directory under a
// timestamped name and records it. The store is closed around the copy and
// reopened even when the copy fails.
func (m *Manager) CreateBackup(ctx context.Context, comment string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	livePath := m.store.Path()
	if _, err := os.Stat(livePath); err != nil {
		return "", ErrSourceMissing
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	// Timestamp resolution is one second; suffix on collision.
	stamp := time.Now().Format("20060102_150405")
	ext := filepath.Ext(livePath)
	filename := fmt.Sprintf("backup_%s%s", stamp, ext)
	backupPath := filepath.Join(m.dir, filename)
	for n := 2; ; n++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		filename = fmt.Sprintf("backup_%s_%d%s", stamp, n, ext)
		backupPath = filepath.Join(m.dir, filename)
	}

	if err := m.store.Close(); err != nil {
		return "", fmt.Errorf("closing store for backup: %w", err)
	}

	copyErr := copyFile(livePath, backupPath)

	// The store must never stay closed, copy failure included.
	if err := m.store.Reopen(); err != nil {
		return "", fmt.Errorf("reopening store after backup: %w", err)
	}

	if copyErr != nil {
		return "", fmt.Errorf("%w: %v", ErrCopyFailed, copyErr)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}

	if _, err := m.store.CreateBackupRecord(ctx, &store.BackupRecord{
		Filename:  filename,
		SizeBytes: info.Size(),
		Comment:   comment,
	}); err != nil {
		return "", err
	}

	m.audit(ctx, "Backup created", filename)
	m.logger.Info("backup created", "path", backupPath, "size", info.Size())
	if m.events != nil {
		m.events.Publish(notify.Event{Type: notify.EventBackupCreated, Path: backupPath})
	}
	return backupPath, nil
}

// RestoreBackup replaces the live store file with the backup at path.
// The previous live file is copied aside to <live>.backup first; if the
// restore copy fails, the safety copy is put back, so a crash or I/O error
// mid-restore cannot destroy the live data.
func (m *Manager) RestoreBackup(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return ErrBackupNotFound
	}

	livePath := m.store.Path()
	safetyPath := livePath + ".backup"

	if err := m.store.Close(); err != nil {
		return fmt.Errorf("closing store for restore: %w", err)
	}

	if _, err := os.Stat(livePath); err == nil {
		os.Remove(safetyPath)
		if err := copyFile(livePath, safetyPath); err != nil {
			if reopenErr := m.store.Reopen(); reopenErr != nil {
				return fmt.Errorf("reopening store after failed safety copy: %w", reopenErr)
			}
			return fmt.Errorf("%w: writing safety copy: %v", ErrRestoreFailed, err)
		}
		os.Remove(livePath)
	}

	if err := copyFile(path, livePath); err != nil {
		// Roll back from the safety copy.
		if _, statErr := os.Stat(safetyPath); statErr == nil {
			if rbErr := copyFile(safetyPath, livePath); rbErr != nil {
				m.logger.Error("safety copy rollback failed", "error", rbErr)
			}
		}
		if reopenErr := m.store.Reopen(); reopenErr != nil {
			return fmt.Errorf("reopening store after failed restore: %w", reopenErr)
		}
		if m.events != nil {
			m.events.Publish(notify.Event{Type: notify.EventBackupRestored, Path: path, OK: false})
		}
		return fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}

	if err := m.store.Reopen(); err != nil {
		return fmt.Errorf("reopening restored store: %w", err)
	}

	filename := filepath.Base(path)
	m.audit(ctx, "Backup restored", filename)
	if err := m.store.MarkBackupRestored(ctx, filename); err != nil {
		m.logger.Warn("marking backup record restored failed", "error", err)
	}

	m.logger.Info("backup restored", "path", path)
	if m.events != nil {
		m.events.Publish(notify.Event{Type: notify.EventBackupRestored, Path: path, OK: true})
		m.events.Publish(notify.Event{Type: notify.EventDataChanged})
	}
	return nil
}

// ListBackups returns backup records, newest first, each with a file-exists
// flag checked against the backup directory now. Records can outlive their
// files when someone deletes a file externally.
func (m *Manager) ListBackups(ctx context.Context) ([]*Record, error) {
	records, err := m.store.ListBackupRecords(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Record, 0, len(records))
	for _, r := range records {
		_, statErr := os.Stat(filepath.Join(m.dir, r.Filename))
		out = append(out, &Record{BackupRecord: *r, FileExists: statErr == nil})
	}
	return out, nil
}

// DeleteBackup removes a backup's file (best effort, a missing file is not
// an error) and then its record.
func (m *Manager) DeleteBackup(ctx context.Context, id int64) error {
	record, err := m.store.GetBackupRecord(ctx, id)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(m.dir, record.Filename)); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("removing backup file failed", "filename", record.Filename, "error", err)
	}

	if err := m.store.DeleteBackupRecord(ctx, id); err != nil {
		return err
	}

	m.audit(ctx, "Backup deleted", record.Filename)
	return nil
}

func (m *Manager) audit(ctx context.Context, action, detail string) {
	if err := m.store.LogActivity(ctx, action, detail, ""); err != nil {
		m.logger.Warn("activity log write failed", "action", action, "error", err)
	}
}

// copyFile copies src to dst byte for byte, syncing before close.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
