package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"mediajob/internal/content"
	"mediajob/internal/fileutil"
	"mediajob/internal/job"
	"mediajob/internal/logging"
)

const (
	sidecarSuffix  = ".meta.json"
	lockFileName   = ".mediajob.lock"
	lockRetryDelay = 25 * time.Millisecond
)

// FileStore keeps payloads under root with a JSON sidecar per uid. Writers
// and removers serialize on a file lock so several processes can share root.
type FileStore struct {
	root   string
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore creates root if needed and returns a store rooted there.
func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("datastore: file root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("datastore: create root: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileStore{
		root:   root,
		lock:   flock.New(filepath.Join(root, lockFileName)),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Root returns the directory holding stored payloads.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("datastore: acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("datastore: lock %s busy", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release store lock failed", logging.Error(err))
		}
	}()
	return fn()
}

func (s *FileStore) pathFor(uid string) (string, error) {
	cleaned, err := cleanUID(uid)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put copies obj into the store and returns its new uid.
func (s *FileStore) Put(ctx context.Context, obj *content.Object, meta job.Meta) (string, error) {
	if obj == nil {
		return "", job.ErrNoContent
	}
	uid := newUID(obj.Name(), s.now())
	dest, err := s.pathFor(uid)
	if err != nil {
		return "", err
	}
	err = s.withLock(ctx, func() error {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("datastore: create directory: %w", err)
		}
		size, err := writeAtomically(dest, obj)
		if err != nil {
			return err
		}
		rec := record{Name: obj.Name(), Meta: meta.Clone(), Size: size, StoredAt: s.now().UTC()}
		return writeSidecar(dest+sidecarSuffix, rec)
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("stored content", logging.String(logging.FieldUID, uid))
	return uid, nil
}

// Retrieve returns the payload for uid as a file-backed source.
func (s *FileStore) Retrieve(ctx context.Context, uid string) (job.Result, error) {
	if err := ctx.Err(); err != nil {
		return job.Result{}, err
	}
	dest, err := s.pathFor(uid)
	if err != nil {
		return job.Result{}, err
	}
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return job.Result{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return job.Result{}, fmt.Errorf("datastore: stat %s: %w", uid, err)
	}
	if info.IsDir() {
		return job.Result{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	rec, err := readSidecar(dest + sidecarSuffix)
	if err != nil {
		return job.Result{}, err
	}
	if rec.Name == "" {
		rec.Name = filepath.Base(dest)
	}
	return rec.result(content.FilePath(dest)), nil
}

// Destroy removes the payload and sidecar for uid, then prunes empty directories.
func (s *FileStore) Destroy(ctx context.Context, uid string) error {
	dest, err := s.pathFor(uid)
	if err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		if err := os.Remove(dest); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, uid)
			}
			return fmt.Errorf("datastore: remove %s: %w", uid, err)
		}
		if err := os.Remove(dest + sidecarSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove sidecar failed", logging.String(logging.FieldUID, uid), logging.Error(err))
		}
		s.pruneEmptyDirs(filepath.Dir(dest))
		s.logger.Debug("destroyed content", logging.String(logging.FieldUID, uid))
		return nil
	})
}

func (s *FileStore) pruneEmptyDirs(dir string) {
	root := filepath.Clean(s.root)
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Close is a no-op; the lock is held only during writes.
func (s *FileStore) Close() error { return nil }

func writeAtomically(dest string, obj *content.Object) (int64, error) {
	src, err := obj.Reader()
	if err != nil {
		return 0, fmt.Errorf("datastore: open content: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return 0, fmt.Errorf("datastore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	size, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("datastore: write payload: %w", errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("datastore: commit payload: %w", err)
	}
	return size, nil
}

func writeSidecar(path string, rec record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("datastore: encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("datastore: write metadata: %w", err)
	}
	return nil
}

func readSidecar(path string) (record, error) {
	var rec record
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rec, nil
		}
		return rec, fmt.Errorf("datastore: read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("datastore: decode metadata: %w", err)
	}
	return rec, nil
}
