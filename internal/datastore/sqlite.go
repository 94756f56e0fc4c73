package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/logging"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps payloads as blobs in a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("datastore: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("datastore: create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	store := &SQLiteStore{db: db, path: path, logger: logger, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Put stores obj's payload and returns its new uid.
func (s *SQLiteStore) Put(ctx context.Context, obj *content.Object, meta job.Meta) (string, error) {
	if obj == nil {
		return "", job.ErrNoContent
	}
	data, err := obj.Bytes()
	if err != nil {
		return "", fmt.Errorf("datastore: read content: %w", err)
	}
	metaJSON, err := json.Marshal(meta.Clone())
	if err != nil {
		return "", fmt.Errorf("datastore: encode metadata: %w", err)
	}
	now := s.now()
	uid := newUID(obj.Name(), now)
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO contents (uid, name, meta_json, size, data, stored_at) VALUES (?, ?, ?, ?, ?, ?)`,
			uid, obj.Name(), string(metaJSON), len(data), data, now.UTC().Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return "", fmt.Errorf("datastore: insert %s: %w", uid, err)
	}
	s.logger.Debug("stored content", logging.String(logging.FieldUID, uid), logging.Int("bytes", len(data)))
	return uid, nil
}

// Retrieve loads the payload stored under uid.
func (s *SQLiteStore) Retrieve(ctx context.Context, uid string) (job.Result, error) {
	var (
		name     string
		metaJSON string
		data     []byte
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT name, meta_json, data FROM contents WHERE uid = ?`, uid,
		).Scan(&name, &metaJSON, &data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return job.Result{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return job.Result{}, fmt.Errorf("datastore: query %s: %w", uid, err)
	}
	rec := record{Name: name}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Meta); err != nil {
		return job.Result{}, fmt.Errorf("datastore: decode metadata: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return rec.result(data), nil
}

// Destroy deletes the row for uid.
func (s *SQLiteStore) Destroy(ctx context.Context, uid string) error {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM contents WHERE uid = ?`, uid)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("datastore: delete %s: %w", uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	s.logger.Debug("destroyed content", logging.String(logging.FieldUID, uid))
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
