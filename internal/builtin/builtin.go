package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/registry"
)

// Config tunes the default functions.
type Config struct {
	// TempDir is where encoders and processors write their output.
	TempDir string
	// MaxGeneratedBytes caps the size accepted by the pattern generator.
	MaxGeneratedBytes int64
}

const defaultMaxGeneratedBytes = 64 << 20

type functions struct {
	tempDir  string
	maxBytes int64
}

// Register installs every default function into reg.
func Register(reg *registry.Registry, cfg Config) {
	fns := &functions{tempDir: cfg.TempDir, maxBytes: cfg.MaxGeneratedBytes}
	if fns.maxBytes <= 0 {
		fns.maxBytes = defaultMaxGeneratedBytes
	}

	reg.Processors.Add("compress", fns.compress)
	reg.Processors.Add("decompress", fns.decompress)

	for _, alg := range []Algorithm{Zstd, LZ4, Gzip} {
		reg.Encoders.Add(alg.Ext(), fns.encoder(alg))
	}

	reg.Generators.Add("text", fns.text)
	reg.Generators.Add("pattern", fns.pattern)

	reg.Analysers.Add("size", analyseSize)
	reg.Analysers.Add("digest", analyseDigest)
	reg.Analysers.Add("format", analyseFormat)
	reg.Analysers.Add("mime_type", analyseMimeType)
	reg.Analysers.Add("width", analyseWidth)
	reg.Analysers.Add("height", analyseHeight)
	reg.Analysers.Add("num_bytes_matching", analyseBytesMatching)
}

// transform streams obj through fn into a new temp file owned by the result.
func (f *functions) transform(ctx context.Context, obj *content.Object, fn func(io.Writer, io.Reader) error) (content.TempFile, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := obj.Reader()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(f.tempDir, "mediajob-*")
	if err != nil {
		return "", fmt.Errorf("builtin: create temp file: %w", err)
	}
	if err := fn(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("builtin: close temp file: %w", err)
	}
	return content.TempFile(dst.Name()), nil
}

func (f *functions) compress(ctx context.Context, obj *content.Object, args ...any) (job.Result, error) {
	alg, err := ParseAlgorithm(stringArg(args, 0))
	if err != nil {
		return job.Result{}, err
	}
	out, err := f.transform(ctx, obj, compressStream(alg, levelOption(args)))
	if err != nil {
		return job.Result{}, err
	}
	return job.Result{Content: out, Format: alg.Ext(), Meta: job.Meta{"compression": string(alg)}}, nil
}

func (f *functions) decompress(ctx context.Context, obj *content.Object, args ...any) (job.Result, error) {
	var (
		alg Algorithm
		err error
	)
	if name := stringArg(args, 0); name != "" {
		alg, err = ParseAlgorithm(name)
	} else {
		alg, err = detectObject(obj)
	}
	if err != nil {
		return job.Result{}, err
	}
	out, err := f.transform(ctx, obj, decompressStream(alg))
	if err != nil {
		return job.Result{}, err
	}
	res := job.Result{Content: out}
	if name := obj.Name(); strings.HasSuffix(name, "."+alg.Ext()) {
		res.Name = strings.TrimSuffix(name, "."+alg.Ext())
	}
	return res, nil
}

func detectObject(obj *content.Object) (Algorithm, error) {
	header, err := readHeader(obj, 4)
	if err != nil {
		return "", err
	}
	alg, ok := DetectAlgorithm(header)
	if !ok {
		return "", errors.New("builtin: content is not a recognised compressed stream")
	}
	return alg, nil
}

func (f *functions) encoder(alg Algorithm) registry.EncodeFunc {
	return func(ctx context.Context, obj *content.Object, format string, args ...any) (job.Result, error) {
		out, err := f.transform(ctx, obj, compressStream(alg, levelOption(args)))
		if err != nil {
			return job.Result{}, err
		}
		res := job.Result{Content: out, Format: format}
		if name := obj.Name(); name != "" {
			res.Name = name + "." + format
		}
		return res, nil
	}
}

func (f *functions) text(_ context.Context, args ...any) (job.Result, error) {
	text, ok := firstString(args)
	if !ok {
		return job.Result{}, errors.New("builtin: text generator needs a string")
	}
	opts := optionsArg(args)
	repeat := int64(1)
	if n, ok := intValue(opts["repeat"]); ok {
		repeat = n
	}
	if repeat < 0 || (len(text) > 0 && repeat > f.maxBytes/int64(len(text))) {
		return job.Result{}, fmt.Errorf("builtin: text generator output exceeds %d bytes", f.maxBytes)
	}
	name := "text.txt"
	if s, ok := opts["name"].(string); ok && s != "" {
		name = s
	}
	return job.Result{Content: strings.Repeat(text, int(repeat)), Name: name, Format: "txt"}, nil
}

func (f *functions) pattern(_ context.Context, args ...any) (job.Result, error) {
	if len(args) == 0 {
		return job.Result{}, errors.New("builtin: pattern generator needs a size")
	}
	size, ok := intValue(args[0])
	if !ok || size < 0 {
		return job.Result{}, fmt.Errorf("builtin: pattern size must be a non-negative integer, got %v", args[0])
	}
	if size > f.maxBytes {
		return job.Result{}, fmt.Errorf("builtin: pattern size %d exceeds %d bytes", size, f.maxBytes)
	}
	seed, _ := intValue(optionsArg(args)["seed"])
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((int64(i) + seed) % 256)
	}
	return job.Result{Content: data, Name: "pattern.bin", Format: "bin"}, nil
}

func stringArg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}

func optionsArg(args []any) job.Options {
	if len(args) == 0 {
		return nil
	}
	switch opts := args[len(args)-1].(type) {
	case job.Options:
		return opts
	case map[string]any:
		return opts
	default:
		return nil
	}
}

func levelOption(args []any) int {
	n, _ := intValue(optionsArg(args)["level"])
	return int(n)
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}
