package job

import (
	"context"
	"errors"
	"sort"
)

// Analyse applies pending steps and runs the named analyser over the
// content. It returns (nil, nil) when no analyser has that name.
func (j *Job) Analyse(ctx context.Context, name string, args ...any) (any, error) {
	obj, err := j.Content(ctx)
	if errors.Is(err, ErrNoContent) {
		return nil, ErrNothingToAnalyse
	}
	if err != nil {
		return nil, err
	}
	if j.app.Analyser == nil {
		return nil, nil
	}
	fn, ok := j.app.Analyser.Lookup(name)
	if !ok {
		return nil, nil
	}
	return fn(ctx, obj, args...)
}

func (j *Job) hasAnalyser(name string) bool {
	if j.app.Analyser == nil {
		return false
	}
	_, ok := j.app.Analyser.Lookup(name)
	return ok
}

type reader func(ctx context.Context, j *Job) (any, error)

var readers = map[string]reader{
	"data":            func(ctx context.Context, j *Job) (any, error) { return j.Data(ctx) },
	"size":            func(ctx context.Context, j *Job) (any, error) { return j.Size(ctx) },
	"name":            func(ctx context.Context, j *Job) (any, error) { return j.Name(ctx) },
	"basename":        func(ctx context.Context, j *Job) (any, error) { return j.Basename(ctx) },
	"ext":             func(ctx context.Context, j *Job) (any, error) { return j.Ext(ctx) },
	"meta":            func(ctx context.Context, j *Job) (any, error) { return j.Meta(ctx) },
	"format":          func(ctx context.Context, j *Job) (any, error) { return j.Format(ctx) },
	"mime_type":       func(ctx context.Context, j *Job) (any, error) { return j.MimeType(ctx) },
	"path":            func(ctx context.Context, j *Job) (any, error) { return j.Path(ctx) },
	"data_uri":        func(ctx context.Context, j *Job) (any, error) { return j.DataURI(ctx) },
	"uid":             func(_ context.Context, j *Job) (any, error) { return j.UID(), nil },
	"uid_basename":    func(_ context.Context, j *Job) (any, error) { return j.UIDBasename(), nil },
	"uid_extname":     func(_ context.Context, j *Job) (any, error) { return j.UIDExtname(), nil },
	"encoded_format":  func(_ context.Context, j *Job) (any, error) { return j.EncodedFormat(), nil },
	"encoded_extname": func(_ context.Context, j *Job) (any, error) { return j.EncodedExtname(), nil },
	"sha":             func(_ context.Context, j *Job) (any, error) { return j.SHA() },
	"serialize":       func(_ context.Context, j *Job) (any, error) { return j.Serialize() },
	"unique_s":        func(_ context.Context, j *Job) (any, error) { return j.UniqueString(), nil },
}

// Readers lists the names Call resolves without an analyser.
func Readers() []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call resolves name dynamically: a built-in reader first, then a
// registered analyser. Any other name yields a *NoSuchMethodError.
func (j *Job) Call(ctx context.Context, name string, args ...any) (any, error) {
	if read, ok := readers[name]; ok {
		return read(ctx, j)
	}
	if j.hasAnalyser(name) {
		return j.Analyse(ctx, name, args...)
	}
	return nil, &NoSuchMethodError{Name: name}
}

// RespondsTo reports whether Call can resolve name.
func (j *Job) RespondsTo(name string) bool {
	if _, ok := readers[name]; ok {
		return true
	}
	return j.hasAnalyser(name)
}
