package jobcache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"

	"mediajob/internal/codec"
	"mediajob/internal/config"
	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/logging"
)

const (
	// freeSpaceFloor is the minimum free-space ratio we allow before pruning (e.g., 0.20 => 80% full).
	freeSpaceFloor = 0.20
	lockFileName   = ".lock"
	lockRetryDelay = 25 * time.Millisecond
	keyLength      = 64
)

// ErrInvalidKey reports a key that is not a lowercase hex BLAKE3 digest.
var ErrInvalidKey = errors.New("jobcache: invalid key")

// Manager handles storing, looking up and pruning cached job output.
type Manager struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
	statfs   statfsFunc
	lock     *flock.Flock
	now      func() time.Time
}

// Entry is one cached job output.
type Entry struct {
	Key        string
	Dir        string
	Attrs      Attrs
	SizeBytes  int64
	ModifiedAt time.Time
}

// DataPath returns the file holding the cached payload.
func (e Entry) DataPath() string {
	return filepath.Join(e.Dir, dataFileName)
}

// Result presents the entry as a step result backed by the cached file.
func (e Entry) Result() job.Result {
	return job.Result{
		Content: content.FilePath(e.DataPath()),
		Name:    e.Attrs.Name,
		Format:  e.Attrs.Format,
		Meta:    e.Attrs.Meta.Clone(),
	}
}

// Stats describes current cache usage.
type Stats struct {
	Entries        int            `json:"entries"`
	TotalBytes     int64          `json:"total_bytes"`
	MaxBytes       int64          `json:"max_bytes"`
	FreeBytes      uint64         `json:"free_bytes"`
	TotalFSBytes   uint64         `json:"total_fs_bytes"`
	FreeRatio      float64        `json:"free_ratio"`
	EntrySummaries []EntrySummary `json:"entry_summaries"`
}

// EntrySummary surfaces details about a cache entry for the CLI.
type EntrySummary struct {
	Key        string    `json:"key"`
	Directory  string    `json:"directory"`
	Name       string    `json:"name,omitempty"`
	Format     string    `json:"format,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewManager builds a cache manager when enabled; returns nil when caching is disabled or misconfigured.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if cfg == nil || !cfg.Cache.Enabled {
		return nil
	}
	root := strings.TrimSpace(cfg.Cache.Dir)
	if root == "" || cfg.Cache.MaxMiB <= 0 {
		return nil
	}
	return New(root, int64(cfg.Cache.MaxMiB)<<20, logger)
}

// New returns a manager rooted at root with a byte budget of maxBytes.
func New(root string, maxBytes int64, logger *slog.Logger) *Manager {
	return &Manager{
		root:     root,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "jobcache"),
		statfs:   realStatfs,
		lock:     flock.New(filepath.Join(root, lockFileName)),
		now:      time.Now,
	}
}

// Root returns the cache directory.
func (m *Manager) Root() string {
	if m == nil {
		return ""
	}
	return m.root
}

// Key derives the cache key for j from its canonical step array. Unique
// strings are not injective and must not be used as keys.
func Key(j *job.Job) (string, error) {
	data, err := codec.Marshal(j.ToArray())
	if err != nil {
		return "", fmt.Errorf("jobcache: key: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func validKey(key string) bool {
	if len(key) != keyLength {
		return false
	}
	for _, r := range key {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (m *Manager) entryDir(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(m.root, key), nil
}

func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("jobcache: ensure root: %w", err)
	}
	ok, err := m.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("jobcache: acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("jobcache: lock %s busy", m.lock.Path())
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("release cache lock failed", logging.Error(err))
		}
	}()
	return fn()
}

// Lookup returns the entry for key and marks it recently used.
func (m *Manager) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	if m == nil {
		return Entry{}, false, nil
	}
	dir, err := m.entryDir(key)
	if err != nil {
		return Entry{}, false, err
	}
	info, err := os.Stat(filepath.Join(dir, dataFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("jobcache: inspect entry: %w", err)
	}
	attrs, ok, err := loadAttrs(dir)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	now := m.now()
	_ = os.Chtimes(dir, now, now)
	m.logger.DebugContext(ctx, "job cache hit", logging.String("cache_key", key))
	return Entry{Key: key, Dir: dir, Attrs: attrs, SizeBytes: info.Size(), ModifiedAt: now}, true, nil
}

// Store writes obj and attrs under key, replacing any existing entry, then
// prunes other entries.
func (m *Manager) Store(ctx context.Context, key string, obj *content.Object, attrs Attrs) (Entry, error) {
	if m == nil {
		return Entry{}, errors.New("jobcache: cache disabled")
	}
	if obj == nil {
		return Entry{}, job.ErrNoContent
	}
	dest, err := m.entryDir(key)
	if err != nil {
		return Entry{}, err
	}
	if attrs.CreatedAt.IsZero() {
		attrs.CreatedAt = m.now().UTC()
	}

	var size int64
	err = m.withLock(ctx, func() error {
		staging, err := os.MkdirTemp(m.root, ".staging-*")
		if err != nil {
			return fmt.Errorf("jobcache: create staging dir: %w", err)
		}
		defer os.RemoveAll(staging)

		if size, err = writeData(filepath.Join(staging, dataFileName), obj); err != nil {
			return err
		}
		if err := writeAttrs(staging, attrs); err != nil {
			return err
		}
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("jobcache: remove existing entry: %w", err)
		}
		if err := os.Rename(staging, dest); err != nil {
			return fmt.Errorf("jobcache: commit entry: %w", err)
		}
		return m.prune(ctx, dest)
	})
	if err != nil {
		return Entry{}, err
	}
	attrs.Version = attrsVersion
	m.logger.InfoContext(ctx, "stored job cache entry",
		logging.String("cache_key", key),
		logging.Int64("entry_size_bytes", size),
	)
	return Entry{Key: key, Dir: dest, Attrs: attrs, SizeBytes: size, ModifiedAt: m.now()}, nil
}

// Resolve returns the cached output for j, applying and storing it on a miss.
// The bool reports a cache hit. A cache that cannot be read is logged and
// bypassed.
func (m *Manager) Resolve(ctx context.Context, j *job.Job) (Entry, bool, error) {
	key, err := Key(j)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok, err := m.Lookup(ctx, key)
	if err != nil {
		logging.WarnWithImpact(m.logger, "job cache lookup failed", "job is re-applied",
			logging.String("cache_key", key), logging.Error(err))
	}
	if ok {
		return entry, true, nil
	}

	obj, err := j.Content(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	name, err := j.Name(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	format, err := j.Format(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	mimeType, err := j.MimeType(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	meta, err := j.Meta(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, err = m.Store(ctx, key, obj, Attrs{
		UniqueString: j.UniqueString(),
		Name:         name,
		Format:       format,
		MimeType:     mimeType,
		Meta:         meta,
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, false, nil
}

// Prune removes entries based on size and free-space thresholds. keepKey,
// when non-empty, is spared unless it is the only entry left.
func (m *Manager) Prune(ctx context.Context, keepKey string) error {
	if m == nil {
		return nil
	}
	keep := ""
	if keepKey != "" {
		dir, err := m.entryDir(keepKey)
		if err != nil {
			return err
		}
		keep = dir
	}
	return m.withLock(ctx, func() error { return m.prune(ctx, keep) })
}

// Stats returns current cache usage and filesystem free-space info.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if m == nil {
		return s, nil
	}
	entries, totalSize, err := m.scan()
	if err != nil {
		return s, err
	}
	totalFS, freeFS, err := m.statfs(m.root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("jobcache: statfs: %w", err)
	}
	ratio := 1.0
	if totalFS > 0 {
		ratio = float64(freeFS) / float64(totalFS)
	}
	details := make([]EntrySummary, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		details = append(details, EntrySummary{
			Key:        filepath.Base(entry.path),
			Directory:  entry.path,
			Name:       entry.attrs.Name,
			Format:     entry.attrs.Format,
			SizeBytes:  entry.sizeBytes,
			ModifiedAt: entry.modTime,
		})
	}
	s = Stats{
		Entries:        len(entries),
		TotalBytes:     totalSize,
		MaxBytes:       m.maxBytes,
		FreeBytes:      freeFS,
		TotalFSBytes:   totalFS,
		FreeRatio:      ratio,
		EntrySummaries: details,
	}
	if len(entries) == 0 {
		m.logger.DebugContext(ctx, "job cache empty")
	}
	return s, nil
}

// prune removes oldest cache entries until both size and free-space thresholds are satisfied.
func (m *Manager) prune(ctx context.Context, keepPath string) error {
	entries, totalSize, err := m.scan()
	if err != nil {
		return err
	}

	for len(entries) > 0 {
		freeOK, err := m.freeSpaceOK()
		if err != nil {
			return err
		}
		if totalSize <= m.maxBytes && freeOK {
			return nil
		}
		oldest := entries[0]
		if oldest.path == keepPath {
			if len(entries) == 1 {
				m.logger.WarnContext(ctx, "job cache over limits with only the active entry left",
					logging.String("cache_dir", keepPath),
					logging.String(logging.FieldImpact, "cache stays above its budget until the next store"),
				)
				return nil
			}
			entries = entries[1:]
			continue
		}
		if err := os.RemoveAll(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("jobcache: remove %q: %w", oldest.path, err)
		}
		m.logger.InfoContext(ctx, "pruned job cache entry",
			logging.String("cache_dir", oldest.path),
			logging.Int64("entry_size_bytes", oldest.sizeBytes),
		)
		totalSize -= oldest.sizeBytes
		entries = entries[1:]
	}
	return nil
}

type cacheEntry struct {
	path      string
	sizeBytes int64
	modTime   time.Time
	attrs     Attrs
}

func (m *Manager) scan() ([]cacheEntry, int64, error) {
	entries := make([]cacheEntry, 0)
	var total int64
	rootEntries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, 0, nil
		}
		return nil, 0, fmt.Errorf("jobcache: list root: %w", err)
	}
	for _, entry := range rootEntries {
		if !entry.IsDir() || !validKey(entry.Name()) {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		size, mtime, err := dirSizeAndTime(path)
		if err != nil {
			logging.WarnWithImpact(m.logger, "skip cache entry", "entry is excluded from stats and pruning",
				logging.String("cache_dir", path),
				logging.Error(err),
			)
			continue
		}
		attrs, _, _ := loadAttrs(path)
		total += size
		entries = append(entries, cacheEntry{path: path, sizeBytes: size, modTime: mtime, attrs: attrs})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})
	return entries, total, nil
}

func (m *Manager) freeSpaceOK() (bool, error) {
	total, free, err := m.statfs(m.root)
	if err != nil {
		return false, fmt.Errorf("jobcache: statfs: %w", err)
	}
	if total == 0 {
		return true, nil
	}
	ratio := float64(free) / float64(total)
	return ratio >= freeSpaceFloor, nil
}

func dirSizeAndTime(path string) (int64, time.Time, error) {
	var (
		size   int64
		latest time.Time
	)
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return size, latest, nil
}

func writeData(dest string, obj *content.Object) (int64, error) {
	src, err := obj.Reader()
	if err != nil {
		return 0, fmt.Errorf("jobcache: open content: %w", err)
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("jobcache: create data file: %w", err)
	}
	n, copyErr := io.Copy(out, src)
	if err := errors.Join(copyErr, out.Close()); err != nil {
		return 0, fmt.Errorf("jobcache: write data file: %w", err)
	}
	return n, nil
}
