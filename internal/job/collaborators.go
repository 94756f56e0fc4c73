package job

import (
	"context"
	"maps"

	"mediajob/internal/content"
)

// Meta is free-form metadata attached to a job.
type Meta map[string]any

// Clone returns a shallow copy that is never nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return Meta{}
	}
	return maps.Clone(m)
}

// Result is what a step backend hands back. Content may be any value
// accepted by content.New. Empty Name and Format leave the job's values
// untouched; Meta is merged into the job's meta.
type Result struct {
	Content any
	Name    string
	Format  string
	Meta    Meta
}

// Store retrieves content by uid for fetch steps.
type Store interface {
	Retrieve(ctx context.Context, uid string) (Result, error)
	Destroy(ctx context.Context, uid string) error
}

// Processor transforms existing content.
type Processor interface {
	Process(ctx context.Context, obj *content.Object, name string, args []any) (Result, error)
}

// Encoder converts existing content to a target format.
type Encoder interface {
	Encode(ctx context.Context, obj *content.Object, format string, args []any) (Result, error)
}

// Generator produces content from nothing.
type Generator interface {
	Generate(ctx context.Context, name string, args []any) (Result, error)
}

// URLFetcher downloads content for fetch_url steps.
type URLFetcher interface {
	FetchURL(ctx context.Context, url string) (Result, error)
}

// AnalyserFunc computes a value from content without modifying it.
type AnalyserFunc func(ctx context.Context, obj *content.Object, args ...any) (any, error)

// Analyser resolves analysis functions by name.
type Analyser interface {
	Lookup(name string) (AnalyserFunc, bool)
}

// Writer persists applied content and hands back a uid for later fetches.
type Writer interface {
	Put(ctx context.Context, obj *content.Object, meta Meta) (string, error)
}
