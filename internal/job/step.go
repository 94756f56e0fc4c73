package job

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"mediajob/internal/rubymarshal"
)

// Kind identifies the type of a step.
type Kind uint8

const (
	KindFetch Kind = iota
	KindProcess
	KindEncode
	KindGenerate
	KindFetchFile
	KindFetchURL
)

var kindNames = [...]string{
	KindFetch:     "fetch",
	KindProcess:   "process",
	KindEncode:    "encode",
	KindGenerate:  "generate",
	KindFetchFile: "fetch_file",
	KindFetchURL:  "fetch_url",
}

var kindAbbreviations = [...]string{
	KindFetch:     "f",
	KindProcess:   "p",
	KindEncode:    "e",
	KindGenerate:  "g",
	KindFetchFile: "ff",
	KindFetchURL:  "fu",
}

// Kinds lists every step kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindFetch, KindProcess, KindEncode, KindGenerate, KindFetchFile, KindFetchURL}
}

// String returns the step name, e.g. "fetch_file".
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Abbreviation returns the short tag used in serialized step arrays.
func (k Kind) Abbreviation() string {
	if int(k) < len(kindAbbreviations) {
		return kindAbbreviations[k]
	}
	return ""
}

// KindFromAbbreviation resolves a serialized tag such as "ff".
func KindFromAbbreviation(abbr string) (Kind, bool) {
	for i, candidate := range kindAbbreviations {
		if candidate == abbr {
			return Kind(i), true
		}
	}
	return 0, false
}

// KindFromName resolves a step name such as "fetch_url".
func KindFromName(name string) (Kind, bool) {
	for i, candidate := range kindNames {
		if candidate == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Options carries keyword arguments for a step. Keys are strings; values
// follow the same rules as positional arguments.
type Options map[string]any

// Step is one pending or applied stage of a job.
type Step struct {
	kind    Kind
	args    []any
	applied bool
}

// NewStep validates args for kind and returns an unapplied step.
func NewStep(kind Kind, args ...any) (Step, error) {
	normalized := make([]any, 0, len(args))
	for i, arg := range args {
		value, err := normalizeArg(arg)
		if err != nil {
			return Step{}, fmt.Errorf("%s argument %d: %w", kind, i, err)
		}
		normalized = append(normalized, value)
	}
	if err := validateArgs(kind, normalized); err != nil {
		return Step{}, err
	}
	return Step{kind: kind, args: normalized}, nil
}

func validateArgs(kind Kind, args []any) error {
	switch kind {
	case KindFetch, KindFetchFile, KindFetchURL:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s takes exactly one argument, got %d", ErrInvalidArgument, kind, len(args))
		}
	case KindGenerate, KindProcess, KindEncode:
		if len(args) == 0 {
			return fmt.Errorf("%w: %s needs at least one argument", ErrInvalidArgument, kind)
		}
	default:
		return fmt.Errorf("%w: unknown step kind %d", ErrInvalidArgument, kind)
	}
	first, ok := args[0].(string)
	if !ok || strings.TrimSpace(first) == "" {
		return fmt.Errorf("%w: %s first argument must be a non-empty string", ErrInvalidArgument, kind)
	}
	return nil
}

// normalizeArg converts an argument to its canonical representation:
// integers become int64, floats become float64 and maps become Options.
func normalizeArg(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case rubymarshal.Symbol:
		return string(x), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return uintArg(uint64(x))
	case uint64:
		return uintArg(x)
	case float32:
		return float64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrInvalidArgument, x.String())
		}
		return f, nil
	case Options:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	case map[string]string:
		opts := make(Options, len(x))
		for k, val := range x {
			opts[k] = val
		}
		return opts, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			value, err := normalizeArg(item)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported argument type %T", ErrInvalidArgument, v)
	}
}

func uintArg(v uint64) (any, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%w: integer %d overflows int64", ErrInvalidArgument, v)
	}
	return int64(v), nil
}

func normalizeMap(m map[string]any) (Options, error) {
	opts := make(Options, len(m))
	for k, val := range m {
		value, err := normalizeArg(val)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", k, err)
		}
		opts[k] = value
	}
	return opts, nil
}

// Kind reports the step type.
func (s Step) Kind() Kind { return s.kind }

// Name returns the step name, e.g. "process".
func (s Step) Name() string { return s.kind.String() }

// Abbreviation returns the serialized step tag.
func (s Step) Abbreviation() string { return s.kind.Abbreviation() }

// Applied reports whether the step has already run.
func (s Step) Applied() bool { return s.applied }

// Args returns a copy of the normalized arguments.
func (s Step) Args() []any { return slices.Clone(s.args) }

func (s Step) first() string {
	if len(s.args) == 0 {
		return ""
	}
	value, _ := s.args[0].(string)
	return value
}

// UID is the storage identifier of a fetch step.
func (s Step) UID() string {
	if s.kind != KindFetch {
		return ""
	}
	return s.first()
}

// Path is the filesystem path of a fetch_file step.
func (s Step) Path() string {
	if s.kind != KindFetchFile {
		return ""
	}
	return s.first()
}

// URL is the address of a fetch_url step. A scheme-less address gets "http://".
func (s Step) URL() string {
	if s.kind != KindFetchURL {
		return ""
	}
	raw := s.first()
	if !strings.Contains(raw, "://") {
		return "http://" + raw
	}
	return raw
}

// Format is the target format of an encode step.
func (s Step) Format() string {
	if s.kind != KindEncode {
		return ""
	}
	return s.first()
}

// Operation is the function name of a process, encode or generate step.
// For encode steps it equals Format.
func (s Step) Operation() string {
	switch s.kind {
	case KindProcess, KindEncode, KindGenerate:
		return s.first()
	default:
		return ""
	}
}

// Params returns the arguments after the operation name.
func (s Step) Params() []any {
	if len(s.args) < 2 {
		return nil
	}
	return slices.Clone(s.args[1:])
}

// Options returns the trailing Options argument, or nil when there is none.
func (s Step) Options() Options {
	if len(s.args) == 0 {
		return nil
	}
	opts, _ := s.args[len(s.args)-1].(Options)
	return opts
}

func (s Step) String() string {
	parts := make([]string, 0, len(s.args))
	for _, arg := range s.args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}
	return s.Name() + "(" + strings.Join(parts, ", ") + ")"
}
