package job

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mediajob/internal/codec"
	"mediajob/internal/rubymarshal"
)

// ToArray returns the serialized form of the steps: one record per step,
// the abbreviation followed by its arguments.
func (j *Job) ToArray() [][]any {
	out := make([][]any, 0, len(j.steps))
	for _, step := range j.steps {
		record := make([]any, 0, len(step.args)+1)
		record = append(record, step.Abbreviation())
		record = append(record, step.args...)
		out = append(out, record)
	}
	return out
}

// FromArray builds a job from a step array as produced by ToArray or by
// decoding a token. Any unknown abbreviation or malformed record yields
// ErrInvalidArray.
func (a *App) FromArray(v any) (*Job, error) {
	records, err := arrayRecords(v)
	if err != nil {
		return nil, err
	}
	j, err := a.NewJob(nil)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if len(record) == 0 {
			return nil, fmt.Errorf("%w: step %d is empty", ErrInvalidArray, i)
		}
		abbr, ok := stringish(record[0])
		if !ok {
			return nil, fmt.Errorf("%w: step %d has no abbreviation", ErrInvalidArray, i)
		}
		kind, ok := KindFromAbbreviation(abbr)
		if !ok {
			return nil, fmt.Errorf("%w: step %d has unknown abbreviation %q", ErrInvalidArray, i, abbr)
		}
		if err := j.Append(kind, record[1:]...); err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidArray, i, err)
		}
	}
	return j, nil
}

func arrayRecords(v any) ([][]any, error) {
	switch x := v.(type) {
	case [][]any:
		return x, nil
	case []any:
		out := make([][]any, 0, len(x))
		for i, item := range x {
			switch record := item.(type) {
			case []any:
				out = append(out, record)
			case []string:
				converted := make([]any, len(record))
				for k, s := range record {
					converted[k] = s
				}
				out = append(out, converted)
			default:
				return nil, fmt.Errorf("%w: step %d is %T, not an array", ErrInvalidArray, i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected an array of steps, got %T", ErrInvalidArray, v)
	}
}

func stringish(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case rubymarshal.Symbol:
		return string(s), true
	default:
		return "", false
	}
}

// Serialize encodes the step array as a URL-safe token.
func (j *Job) Serialize() (string, error) {
	data, err := codec.Marshal(j.ToArray())
	if err != nil {
		return "", fmt.Errorf("job: serialize: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Deserialize rebuilds a job from a token. Both base64 alphabets are
// accepted with or without padding, and legacy Ruby Marshal payloads are
// decoded as well as the current CBOR form.
func (a *App) Deserialize(token string) (*Job, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArray, err)
	}
	var decoded any
	if rubymarshal.IsMarshal(raw) {
		decoded, err = rubymarshal.Decode(raw)
	} else {
		err = codec.Unmarshal(raw, &decoded)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArray, err)
	}
	return a.FromArray(decoded)
}

func decodeToken(token string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, token)
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return nil, fmt.Errorf("empty token")
	}
	enc := base64.RawURLEncoding
	if strings.ContainsAny(cleaned, "+/") {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

// UniqueString concatenates every step's abbreviation and flattened
// arguments. Option keys are visited in sorted order so equal jobs always
// give equal strings.
func (j *Job) UniqueString() string {
	var b strings.Builder
	for _, step := range j.steps {
		b.WriteString(step.Abbreviation())
		for _, arg := range step.args {
			flatten(&b, arg)
		}
	}
	return b.String()
}

func flatten(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		b.WriteString(x)
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case Options:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			flatten(b, x[k])
		}
	case []any:
		for _, item := range x {
			flatten(b, item)
		}
	default:
		fmt.Fprint(b, x)
	}
}
