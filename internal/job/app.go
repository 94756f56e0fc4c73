package job

import (
	"context"
	"fmt"
	"log/slog"

	"mediajob/internal/content"
	"mediajob/internal/logging"
	"mediajob/internal/mimetype"
)

// App holds the collaborators and settings shared by every job it creates.
// Fields must not be changed while jobs built from the App are in use.
type App struct {
	Store      Store
	Processor  Processor
	Encoder    Encoder
	Generator  Generator
	Analyser   Analyser
	URLFetcher URLFetcher

	// Secret keys job signatures.
	Secret []byte
	// InferMimeTypeFromFileExt lets the name's extension decide the mime
	// type when the format is unknown.
	InferMimeTypeFromFileExt bool
	// FallbackMimeType is reported when nothing else identifies the content.
	FallbackMimeType string
	// BlockSize is the chunk size of content objects the App creates.
	BlockSize int
	// TempDir is where content objects materialize temp files.
	TempDir string

	Logger *slog.Logger
}

// NewApp returns an App with default settings and no collaborators.
func NewApp() *App {
	return &App{
		InferMimeTypeFromFileExt: true,
		FallbackMimeType:         mimetype.Default,
		BlockSize:                content.DefaultBlockSize,
	}
}

func (a *App) logger() *slog.Logger {
	return logging.NewComponentLogger(a.Logger, "job")
}

func (a *App) fallbackMimeType() string {
	if a.FallbackMimeType == "" {
		return mimetype.Default
	}
	return a.FallbackMimeType
}

func (a *App) contentOptions() []content.Option {
	return []content.Option{content.WithBlockSize(a.BlockSize), content.WithTempDir(a.TempDir)}
}

// Option sets a job attribute at construction.
type Option func(*Job) error

// WithName sets the job's name.
func WithName(name string) Option {
	return func(j *Job) error {
		j.name = name
		return nil
	}
}

// WithFormat sets the job's format explicitly. An explicit format is kept
// when later steps report a format of their own; only encode overrides it.
func WithFormat(format string) Option {
	return func(j *Job) error {
		j.SetFormat(format)
		return nil
	}
}

// WithMeta sets the job's meta. Any value other than a string-keyed
// mapping is rejected with ErrInvalidArgument.
func WithMeta(meta any) Option {
	return func(j *Job) error {
		m, err := toMeta(meta)
		if err != nil {
			return err
		}
		j.meta = m
		return nil
	}
}

func toMeta(v any) (Meta, error) {
	switch m := v.(type) {
	case Meta:
		return m.Clone(), nil
	case map[string]any:
		return Meta(m).Clone(), nil
	case Options:
		return Meta(m).Clone(), nil
	case map[string]string:
		meta := make(Meta, len(m))
		for k, val := range m {
			meta[k] = val
		}
		return meta, nil
	default:
		return nil, fmt.Errorf("%w: meta must be a mapping, got %T", ErrInvalidArgument, v)
	}
}

// NewJob creates a job. A nil src gives a job without content; otherwise src
// is any value accepted by content.New and the job starts from it with no
// steps.
func (a *App) NewJob(src any, opts ...Option) (*Job, error) {
	j := &Job{app: a, meta: Meta{}, log: a.logger()}
	if src != nil {
		obj, err := content.New(src, a.contentOptions()...)
		if err != nil {
			return nil, fmt.Errorf("job: new: %w", err)
		}
		j.obj = obj
		j.name = obj.Name()
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			j.Close()
			return nil, err
		}
	}
	return j, nil
}

func (a *App) startWith(kind Kind, args ...any) (*Job, error) {
	j, err := a.NewJob(nil)
	if err != nil {
		return nil, err
	}
	if err := j.Append(kind, args...); err != nil {
		return nil, err
	}
	return j, nil
}

// Fetch starts a job that retrieves uid from the store.
func (a *App) Fetch(uid string) (*Job, error) {
	return a.startWith(KindFetch, uid)
}

// FetchFile starts a job that reads a local file.
func (a *App) FetchFile(path string) (*Job, error) {
	return a.startWith(KindFetchFile, path)
}

// FetchURL starts a job that downloads url.
func (a *App) FetchURL(url string) (*Job, error) {
	return a.startWith(KindFetchURL, url)
}

// Generate starts a job that generates content with the named generator.
func (a *App) Generate(name string, args ...any) (*Job, error) {
	return a.startWith(KindGenerate, append([]any{name}, args...)...)
}

// Destroy removes uid from the store.
func (a *App) Destroy(ctx context.Context, uid string) error {
	if a.Store == nil {
		return fmt.Errorf("%w: store", ErrNoCollaborator)
	}
	return a.Store.Destroy(ctx, uid)
}
