package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"mediajob/internal/content"
	"mediajob/internal/job"
)

// ErrUnknownFunction reports a lookup of a name that is not registered.
var ErrUnknownFunction = errors.New("registry: unknown function")

// UnknownFunctionError names the table and function that could not be found.
type UnknownFunctionError struct {
	Kind string
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("registry: %s %q not registered", e.Kind, e.Name)
}

// Is lets errors.Is match UnknownFunctionError against ErrUnknownFunction.
func (e *UnknownFunctionError) Is(target error) bool {
	return target == ErrUnknownFunction
}

// ProcessFunc transforms content.
type ProcessFunc func(ctx context.Context, obj *content.Object, args ...any) (job.Result, error)

// EncodeFunc converts content to format.
type EncodeFunc func(ctx context.Context, obj *content.Object, format string, args ...any) (job.Result, error)

// GenerateFunc creates content from arguments alone.
type GenerateFunc func(ctx context.Context, args ...any) (job.Result, error)

type table[F any] struct {
	kind  string
	mu    sync.RWMutex
	funcs map[string]F
}

// Add registers fn under name, replacing any previous registration.
func (t *table[F]) Add(name string, fn F) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.funcs == nil {
		t.funcs = make(map[string]F)
	}
	t.funcs[name] = fn
}

// Delete removes name.
func (t *table[F]) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.funcs, name)
}

// Get returns the function registered under name.
func (t *table[F]) Get(name string) (F, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.funcs[name]
	return fn, ok
}

// Has reports whether name is registered.
func (t *table[F]) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Names lists registered names in sorted order.
func (t *table[F]) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *table[F]) unknown(name string) error {
	return &UnknownFunctionError{Kind: t.kind, Name: name}
}

// Processors is a table of named processors.
type Processors struct {
	table[ProcessFunc]
}

// NewProcessors returns an empty processor table.
func NewProcessors() *Processors {
	return &Processors{table: table[ProcessFunc]{kind: "processor"}}
}

// Process runs the processor registered under name.
func (p *Processors) Process(ctx context.Context, obj *content.Object, name string, args []any) (job.Result, error) {
	fn, ok := p.Get(name)
	if !ok {
		return job.Result{}, p.unknown(name)
	}
	return fn(ctx, obj, args...)
}

// Encoders is a table of encoders keyed by target format.
type Encoders struct {
	table[EncodeFunc]

	defaultMu sync.RWMutex
	fallback  EncodeFunc
}

// NewEncoders returns an empty encoder table.
func NewEncoders() *Encoders {
	return &Encoders{table: table[EncodeFunc]{kind: "encoder"}}
}

// SetDefault sets the encoder used for formats with no registration of
// their own. A nil fn removes it.
func (e *Encoders) SetDefault(fn EncodeFunc) {
	e.defaultMu.Lock()
	defer e.defaultMu.Unlock()
	e.fallback = fn
}

// Encode runs the encoder for format, or the default encoder.
func (e *Encoders) Encode(ctx context.Context, obj *content.Object, format string, args []any) (job.Result, error) {
	fn, ok := e.Get(format)
	if !ok {
		e.defaultMu.RLock()
		fn = e.fallback
		e.defaultMu.RUnlock()
		if fn == nil {
			return job.Result{}, e.unknown(format)
		}
	}
	return fn(ctx, obj, format, args...)
}

// Generators is a table of named generators.
type Generators struct {
	table[GenerateFunc]
}

// NewGenerators returns an empty generator table.
func NewGenerators() *Generators {
	return &Generators{table: table[GenerateFunc]{kind: "generator"}}
}

// Generate runs the generator registered under name.
func (g *Generators) Generate(ctx context.Context, name string, args []any) (job.Result, error) {
	fn, ok := g.Get(name)
	if !ok {
		return job.Result{}, g.unknown(name)
	}
	return fn(ctx, args...)
}

// Analysers is a table of named analysers.
type Analysers struct {
	table[job.AnalyserFunc]
}

// NewAnalysers returns an empty analyser table.
func NewAnalysers() *Analysers {
	return &Analysers{table: table[job.AnalyserFunc]{kind: "analyser"}}
}

// Lookup returns the analyser registered under name.
func (a *Analysers) Lookup(name string) (job.AnalyserFunc, bool) {
	return a.Get(name)
}

// Analyse runs the analyser registered under name directly on obj.
func (a *Analysers) Analyse(ctx context.Context, obj *content.Object, name string, args ...any) (any, error) {
	fn, ok := a.Get(name)
	if !ok {
		return nil, a.unknown(name)
	}
	return fn(ctx, obj, args...)
}

// Registry groups one table of each kind.
type Registry struct {
	Processors *Processors
	Encoders   *Encoders
	Generators *Generators
	Analysers  *Analysers
}

// New returns a Registry with empty tables.
func New() *Registry {
	return &Registry{
		Processors: NewProcessors(),
		Encoders:   NewEncoders(),
		Generators: NewGenerators(),
		Analysers:  NewAnalysers(),
	}
}

// Bind installs the registry's tables as the app's collaborators.
func (r *Registry) Bind(app *job.App) {
	app.Processor = r.Processors
	app.Encoder = r.Encoders
	app.Generator = r.Generators
	app.Analyser = r.Analysers
}
