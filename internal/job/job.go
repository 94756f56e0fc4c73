package job

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mediajob/internal/content"
	"mediajob/internal/logging"
)

// Job is an ordered list of steps and the state produced by applying them.
type Job struct {
	app   *App
	steps []Step

	obj       *content.Object
	name      string
	format    string
	formatSet bool
	meta      Meta

	log *slog.Logger
}

// App returns the App the job was created from.
func (j *Job) App() *App { return j.app }

// Append validates a step and adds it to this job.
func (j *Job) Append(kind Kind, args ...any) error {
	step, err := NewStep(kind, args...)
	if err != nil {
		return err
	}
	j.steps = append(j.steps, step)
	return nil
}

// With returns a fork of the job with one more step. The receiver is not changed.
func (j *Job) With(kind Kind, args ...any) (*Job, error) {
	step, err := NewStep(kind, args...)
	if err != nil {
		return nil, err
	}
	fork, err := j.Fork()
	if err != nil {
		return nil, err
	}
	fork.steps = append(fork.steps, step)
	return fork, nil
}

// Fetch returns a fork that also retrieves uid from the store.
func (j *Job) Fetch(uid string) (*Job, error) { return j.With(KindFetch, uid) }

// FetchFile returns a fork that also reads a local file.
func (j *Job) FetchFile(path string) (*Job, error) { return j.With(KindFetchFile, path) }

// FetchURL returns a fork that also downloads url.
func (j *Job) FetchURL(url string) (*Job, error) { return j.With(KindFetchURL, url) }

// Generate returns a fork that also runs the named generator.
func (j *Job) Generate(name string, args ...any) (*Job, error) {
	return j.With(KindGenerate, append([]any{name}, args...)...)
}

// Process returns a fork that also runs the named processor.
func (j *Job) Process(name string, args ...any) (*Job, error) {
	return j.With(KindProcess, append([]any{name}, args...)...)
}

// Encode returns a fork that also encodes to format.
func (j *Job) Encode(format string, args ...any) (*Job, error) {
	return j.With(KindEncode, append([]any{format}, args...)...)
}

// AddFetch appends a fetch step to this job.
func (j *Job) AddFetch(uid string) error { return j.Append(KindFetch, uid) }

// AddFetchFile appends a fetch_file step to this job.
func (j *Job) AddFetchFile(path string) error { return j.Append(KindFetchFile, path) }

// AddFetchURL appends a fetch_url step to this job.
func (j *Job) AddFetchURL(url string) error { return j.Append(KindFetchURL, url) }

// AddGenerate appends a generate step to this job.
func (j *Job) AddGenerate(name string, args ...any) error {
	return j.Append(KindGenerate, append([]any{name}, args...)...)
}

// AddProcess appends a process step to this job.
func (j *Job) AddProcess(name string, args ...any) error {
	return j.Append(KindProcess, append([]any{name}, args...)...)
}

// AddEncode appends an encode step to this job.
func (j *Job) AddEncode(format string, args ...any) error {
	return j.Append(KindEncode, append([]any{format}, args...)...)
}

// Fork returns an independent copy: steps with their applied flags, name,
// format and meta are copied, and current content is duplicated so that
// applying either job never affects the other.
func (j *Job) Fork() (*Job, error) {
	fork := &Job{
		app:       j.app,
		steps:     slices.Clone(j.steps),
		name:      j.name,
		format:    j.format,
		formatSet: j.formatSet,
		meta:      j.meta.Clone(),
		log:       j.log,
	}
	if j.obj != nil {
		obj, err := j.obj.Clone()
		if err != nil {
			return nil, fmt.Errorf("job: fork content: %w", err)
		}
		fork.obj = obj
	}
	return fork, nil
}

// Close releases temp files held by the job's content.
func (j *Job) Close() error {
	if j.obj == nil {
		return nil
	}
	return j.obj.Close()
}

// Apply runs every pending step in order. A failing step stays pending and
// later steps are not attempted.
func (j *Job) Apply(ctx context.Context) (*Job, error) {
	for i := range j.steps {
		if j.steps[i].applied {
			continue
		}
		if err := ctx.Err(); err != nil {
			return j, err
		}
		if err := j.applyStep(ctx, i); err != nil {
			j.log.Debug("step failed",
				logging.Int(logging.FieldStepIndex, i),
				logging.String(logging.FieldStep, j.steps[i].Name()),
				logging.Error(err),
			)
			return j, &StepError{Index: i, Step: j.steps[i].Name(), Err: err}
		}
		j.steps[i].applied = true
	}
	return j, nil
}

func (j *Job) applyStep(ctx context.Context, i int) error {
	step := j.steps[i]
	j.log.Debug("applying step",
		logging.Int(logging.FieldStepIndex, i),
		logging.String(logging.FieldStep, step.Name()),
	)
	var (
		res Result
		err error
	)
	switch step.kind {
	case KindFetch:
		if j.app.Store == nil {
			return fmt.Errorf("%w: store", ErrNoCollaborator)
		}
		res, err = j.app.Store.Retrieve(ctx, step.UID())
		// a stored payload never dictates the job's format
		res.Format = ""
	case KindFetchFile:
		path := step.Path()
		if _, err := os.Stat(path); err != nil {
			return err
		}
		res = Result{Content: content.FilePath(path), Name: filepath.Base(path)}
	case KindFetchURL:
		if j.app.URLFetcher == nil {
			return fmt.Errorf("%w: url fetcher", ErrNoCollaborator)
		}
		res, err = j.app.URLFetcher.FetchURL(ctx, step.URL())
		if err == nil && res.Name == "" {
			res.Name = nameFromURL(step.URL())
		}
	case KindGenerate:
		if j.app.Generator == nil {
			return fmt.Errorf("%w: generator", ErrNoCollaborator)
		}
		res, err = j.app.Generator.Generate(ctx, step.Operation(), step.Params())
	case KindProcess:
		if j.obj == nil {
			return ErrNothingToProcess
		}
		if j.app.Processor == nil {
			return fmt.Errorf("%w: processor", ErrNoCollaborator)
		}
		j.obj.SetName(j.name)
		res, err = j.app.Processor.Process(ctx, j.obj, step.Operation(), step.Params())
	case KindEncode:
		if j.obj == nil {
			return ErrNothingToEncode
		}
		if j.app.Encoder == nil {
			return fmt.Errorf("%w: encoder", ErrNoCollaborator)
		}
		j.obj.SetName(j.name)
		res, err = j.app.Encoder.Encode(ctx, j.obj, step.Format(), step.Params())
	}
	if err != nil {
		return err
	}
	if err := j.merge(res); err != nil {
		return err
	}
	if step.kind == KindEncode {
		j.format = step.Format()
	}
	return nil
}

// merge folds a step result into the job: content is replaced, a non-empty
// name overwrites, a format is taken unless the caller fixed one, and meta
// is merged key by key.
func (j *Job) merge(res Result) error {
	if res.Content == nil {
		return fmt.Errorf("job: step produced no content")
	}
	if j.obj == nil {
		obj, err := content.New(res.Content, j.app.contentOptions()...)
		if err != nil {
			return err
		}
		j.obj = obj
	} else if err := j.obj.Replace(res.Content); err != nil {
		return err
	}
	if res.Name != "" {
		j.name = res.Name
	}
	j.obj.SetName(j.name)
	if res.Format != "" && !j.formatSet {
		j.format = res.Format
	}
	if len(res.Meta) > 0 {
		if j.meta == nil {
			j.meta = Meta{}
		}
		maps.Copy(j.meta, res.Meta)
	}
	return nil
}

func nameFromURL(raw string) string {
	rest := raw
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return ""
	}
	base := filepath.Base(rest[slash:])
	if !strings.Contains(base, ".") || base == "/" {
		return ""
	}
	return base
}

// Content applies pending steps and returns the content object, which stays
// owned by the job.
func (j *Job) Content(ctx context.Context) (*content.Object, error) {
	if _, err := j.Apply(ctx); err != nil {
		return nil, err
	}
	if j.obj == nil {
		return nil, ErrNoContent
	}
	return j.obj, nil
}

// Data applies pending steps and returns the payload bytes.
func (j *Job) Data(ctx context.Context) ([]byte, error) {
	obj, err := j.Content(ctx)
	if err != nil {
		return nil, err
	}
	return obj.Bytes()
}

// Size applies pending steps and returns the payload length.
func (j *Job) Size(ctx context.Context) (int64, error) {
	obj, err := j.Content(ctx)
	if err != nil {
		return 0, err
	}
	return obj.Size()
}

// Path applies pending steps and returns a file holding the payload.
func (j *Job) Path(ctx context.Context) (string, error) {
	obj, err := j.Content(ctx)
	if err != nil {
		return "", err
	}
	return obj.Path()
}

// Store applies pending steps and writes the result through w, returning
// the uid it was stored under.
func (j *Job) Store(ctx context.Context, w Writer) (string, error) {
	if w == nil {
		return "", fmt.Errorf("%w: writer", ErrNoCollaborator)
	}
	obj, err := j.Content(ctx)
	if err != nil {
		return "", err
	}
	uid, err := w.Put(ctx, obj, j.meta.Clone())
	if err != nil {
		return "", fmt.Errorf("store job content: %w", err)
	}
	j.log.Debug("stored job content", logging.String(logging.FieldUID, uid))
	return uid, nil
}

// Name applies pending steps and returns the job's name.
func (j *Job) Name(ctx context.Context) (string, error) {
	if _, err := j.Apply(ctx); err != nil {
		return "", err
	}
	return j.name, nil
}

// Basename is Name without its last extension.
func (j *Job) Basename(ctx context.Context) (string, error) {
	name, err := j.Name(ctx)
	if err != nil {
		return "", err
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx], nil
	}
	return name, nil
}

// Ext is the text after the last "." in Name, or "".
func (j *Job) Ext(ctx context.Context) (string, error) {
	name, err := j.Name(ctx)
	if err != nil {
		return "", err
	}
	return extOf(name), nil
}

func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// Meta applies pending steps and returns a copy of the job's meta.
func (j *Job) Meta(ctx context.Context) (Meta, error) {
	if _, err := j.Apply(ctx); err != nil {
		return nil, err
	}
	return j.meta.Clone(), nil
}

// SetName replaces the job's name.
func (j *Job) SetName(name string) {
	j.name = name
	if j.obj != nil {
		j.obj.SetName(name)
	}
}

// SetFormat fixes the job's format. Only encode steps override it afterwards.
func (j *Job) SetFormat(format string) {
	j.format = format
	j.formatSet = format != ""
}

// SetMeta replaces the job's meta.
func (j *Job) SetMeta(meta Meta) {
	j.meta = meta.Clone()
}

// UpdateAttributes sets name, format and meta from a mapping. Meta is
// merged rather than replaced. Unknown keys and values of the wrong type
// are rejected with ErrInvalidArgument before anything changes.
func (j *Job) UpdateAttributes(attrs map[string]any) error {
	var (
		name, format       string
		hasName, hasFormat bool
		meta               Meta
	)
	for key, value := range attrs {
		switch key {
		case "name":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: name must be a string, got %T", ErrInvalidArgument, value)
			}
			name, hasName = s, true
		case "format":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: format must be a string, got %T", ErrInvalidArgument, value)
			}
			format, hasFormat = s, true
		case "meta":
			m, err := toMeta(value)
			if err != nil {
				return err
			}
			meta = m
		default:
			return fmt.Errorf("%w: unknown attribute %q", ErrInvalidArgument, key)
		}
	}
	if hasName {
		j.SetName(name)
	}
	if hasFormat {
		j.SetFormat(format)
	}
	if meta != nil {
		if j.meta == nil {
			j.meta = Meta{}
		}
		maps.Copy(j.meta, meta)
	}
	return nil
}

// ToFetchedJob returns a new job that fetches uid and carries this job's
// name, format and meta. Its fetch step is marked applied and it shares a copy of the
// current content, so storing a result and serving it back needs no reload.
func (j *Job) ToFetchedJob(uid string) (*Job, error) {
	step, err := NewStep(KindFetch, uid)
	if err != nil {
		return nil, err
	}
	step.applied = true
	fetched := &Job{
		app:       j.app,
		steps:     []Step{step},
		name:      j.name,
		format:    j.format,
		formatSet: j.formatSet,
		meta:      j.meta.Clone(),
		log:       j.log,
	}
	if j.obj != nil {
		obj, err := j.obj.Clone()
		if err != nil {
			return nil, fmt.Errorf("job: copy content: %w", err)
		}
		fetched.obj = obj
	}
	return fetched, nil
}
