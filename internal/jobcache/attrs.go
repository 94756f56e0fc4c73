package jobcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediajob/internal/job"
)

const (
	attrsVersion  = 1
	attrsFileName = "attrs.json"
	dataFileName  = "data"
)

// Attrs describes the job output stored in an entry.
type Attrs struct {
	Version      int       `json:"version"`
	UniqueString string    `json:"unique_string"`
	Name         string    `json:"name,omitempty"`
	Format       string    `json:"format,omitempty"`
	MimeType     string    `json:"mime_type,omitempty"`
	Meta         job.Meta  `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func writeAttrs(dir string, attrs Attrs) error {
	attrs.Version = attrsVersion
	payload, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return fmt.Errorf("jobcache: encode attrs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, attrsFileName), payload, 0o644); err != nil {
		return fmt.Errorf("jobcache: write attrs: %w", err)
	}
	return nil
}

// loadAttrs reads an entry's attrs. The bool reports whether the file existed.
func loadAttrs(dir string) (Attrs, bool, error) {
	payload, err := os.ReadFile(filepath.Join(dir, attrsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Attrs{}, false, nil
		}
		return Attrs{}, false, fmt.Errorf("jobcache: read attrs: %w", err)
	}
	var attrs Attrs
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return Attrs{}, true, fmt.Errorf("jobcache: decode attrs: %w", err)
	}
	if attrs.Version != attrsVersion {
		return Attrs{}, true, fmt.Errorf("jobcache: unsupported attrs version %d", attrs.Version)
	}
	return attrs, true, nil
}
