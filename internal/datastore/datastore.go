package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"mediajob/internal/config"
	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/logging"
)

// Store is a job.Store that also accepts new content.
type Store interface {
	job.Store
	Put(ctx context.Context, obj *content.Object, meta job.Meta) (string, error)
	Close() error
}

// record is the metadata persisted next to each payload.
type record struct {
	Name     string    `json:"name,omitempty"`
	Meta     job.Meta  `json:"meta,omitempty"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

func (r record) result(src any) job.Result {
	return job.Result{Content: src, Name: r.Name, Meta: r.Meta.Clone()}
}

// Open constructs the backend selected by cfg.Datastore.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("datastore: config is required")
	}
	logger = logging.NewComponentLogger(logger, "datastore")
	ds := cfg.Datastore
	switch ds.Backend {
	case config.BackendFile:
		return NewFileStore(ds.FileRoot, logger)
	case config.BackendSQLite:
		return OpenSQLite(ds.SQLitePath, logger)
	case config.BackendS3:
		return NewS3Store(S3Options{
			Endpoint:        ds.S3.Endpoint,
			Bucket:          ds.S3.Bucket,
			Region:          ds.S3.Region,
			Prefix:          ds.S3.Prefix,
			AccessKeyID:     ds.S3.AccessKeyID,
			SecretAccessKey: ds.S3.SecretAccessKey,
			UseSSL:          ds.S3.UseSSL,
			TempDir:         cfg.Content.TempDir,
		}, logger)
	default:
		return nil, fmt.Errorf("datastore: unsupported backend %q", ds.Backend)
	}
}

// newUID builds a date-partitioned uid that keeps a slugged form of name.
func newUID(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" || base == "." || base == "/" {
		stem = "file"
	}
	if ext == "." {
		ext = ""
	}
	return fmt.Sprintf("%s/%s-%s%s", now.UTC().Format("2006/01/02"), uuid.NewString(), stem, ext)
}

// cleanUID rejects uids that would escape the store root.
func cleanUID(uid string) (string, error) {
	trimmed := strings.TrimSpace(uid)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") || strings.Contains(trimmed, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	cleaned := path.Clean(trimmed)
	if cleaned != trimmed || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	return cleaned, nil
}
