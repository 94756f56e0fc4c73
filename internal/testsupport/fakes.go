package testsupport

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mediajob/internal/content"
	"mediajob/internal/job"
)

// Call records one collaborator invocation.
type Call struct {
	Op   string
	Name string
	Args []any
}

// Recorder collects calls made to a fake collaborator.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) record(op, name string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Name: name, Args: slices.Clone(args)})
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how many calls named name were recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call.Name == name {
			n++
		}
	}
	return n
}

// ContentFunc computes a step result from the current payload.
type ContentFunc func(data []byte, args []any) (job.Result, error)

// FakeStore serves results from an in-memory map.
type FakeStore struct {
	Recorder
	Items map[string]job.Result
	Err   error
}

func (s *FakeStore) Retrieve(_ context.Context, uid string) (job.Result, error) {
	s.record("retrieve", uid, nil)
	if s.Err != nil {
		return job.Result{}, s.Err
	}
	res, ok := s.Items[uid]
	if !ok {
		return job.Result{}, fmt.Errorf("testsupport: uid %q not found", uid)
	}
	return res, nil
}

// Put keeps the payload in Items under a sequential uid.
func (s *FakeStore) Put(_ context.Context, obj *content.Object, meta job.Meta) (string, error) {
	s.record("put", obj.Name(), nil)
	if s.Err != nil {
		return "", s.Err
	}
	data, err := obj.Bytes()
	if err != nil {
		return "", err
	}
	if s.Items == nil {
		s.Items = map[string]job.Result{}
	}
	uid := fmt.Sprintf("fake/%d-%s", len(s.Items)+1, obj.Name())
	s.Items[uid] = job.Result{Content: slices.Clone(data), Name: obj.Name(), Meta: meta.Clone()}
	return uid, nil
}

func (s *FakeStore) Destroy(_ context.Context, uid string) error {
	s.record("destroy", uid, nil)
	delete(s.Items, uid)
	return nil
}

// FakeProcessor runs registered ContentFuncs.
type FakeProcessor struct {
	Recorder
	Funcs map[string]ContentFunc
}

func (p *FakeProcessor) Process(_ context.Context, obj *content.Object, name string, args []any) (job.Result, error) {
	p.record("process", name, args)
	return runContentFunc(p.Funcs, "processor", obj, name, args)
}

// FakeEncoder runs registered ContentFuncs keyed by format.
type FakeEncoder struct {
	Recorder
	Funcs map[string]ContentFunc
}

func (e *FakeEncoder) Encode(_ context.Context, obj *content.Object, format string, args []any) (job.Result, error) {
	e.record("encode", format, args)
	return runContentFunc(e.Funcs, "encoder", obj, format, args)
}

func runContentFunc(funcs map[string]ContentFunc, kind string, obj *content.Object, name string, args []any) (job.Result, error) {
	fn, ok := funcs[name]
	if !ok {
		return job.Result{}, fmt.Errorf("testsupport: no %s %q", kind, name)
	}
	data, err := obj.Bytes()
	if err != nil {
		return job.Result{}, err
	}
	return fn(data, args)
}

// FakeGenerator runs registered generator funcs.
type FakeGenerator struct {
	Recorder
	Funcs map[string]func(args []any) (job.Result, error)
}

func (g *FakeGenerator) Generate(_ context.Context, name string, args []any) (job.Result, error) {
	g.record("generate", name, args)
	fn, ok := g.Funcs[name]
	if !ok {
		return job.Result{}, fmt.Errorf("testsupport: no generator %q", name)
	}
	return fn(args)
}

// FakeURLFetcher serves canned responses keyed by full URL.
type FakeURLFetcher struct {
	Recorder
	Responses map[string]job.Result
}

func (f *FakeURLFetcher) FetchURL(_ context.Context, url string) (job.Result, error) {
	f.record("fetch_url", url, nil)
	res, ok := f.Responses[url]
	if !ok {
		return job.Result{}, fmt.Errorf("testsupport: no response for %s", url)
	}
	return res, nil
}

// FakeAnalyser resolves analysers from a map and counts lookups that run.
type FakeAnalyser struct {
	Recorder
	Funcs map[string]job.AnalyserFunc
}

func (a *FakeAnalyser) Lookup(name string) (job.AnalyserFunc, bool) {
	fn, ok := a.Funcs[name]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, obj *content.Object, args ...any) (any, error) {
		a.record("analyse", name, args)
		return fn(ctx, obj, args...)
	}, true
}

// Fakes bundles the collaborators wired into an App by NewJobApp.
type Fakes struct {
	Store      *FakeStore
	Processor  *FakeProcessor
	Encoder    *FakeEncoder
	Generator  *FakeGenerator
	URLFetcher *FakeURLFetcher
	Analyser   *FakeAnalyser
}

// NewJobApp returns an App wired to empty fakes and a fixed secret.
func NewJobApp() (*job.App, *Fakes) {
	fakes := &Fakes{
		Store:      &FakeStore{Items: map[string]job.Result{}},
		Processor:  &FakeProcessor{Funcs: map[string]ContentFunc{}},
		Encoder:    &FakeEncoder{Funcs: map[string]ContentFunc{}},
		Generator:  &FakeGenerator{Funcs: map[string]func([]any) (job.Result, error){}},
		URLFetcher: &FakeURLFetcher{Responses: map[string]job.Result{}},
		Analyser:   &FakeAnalyser{Funcs: map[string]job.AnalyserFunc{}},
	}
	app := job.NewApp()
	app.Store = fakes.Store
	app.Processor = fakes.Processor
	app.Encoder = fakes.Encoder
	app.Generator = fakes.Generator
	app.URLFetcher = fakes.URLFetcher
	app.Analyser = fakes.Analyser
	app.Secret = []byte(TestSecret)
	return app, fakes
}
