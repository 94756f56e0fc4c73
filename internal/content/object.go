package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"mediajob/internal/fileutil"
)

// DefaultBlockSize is the chunk size used by Chunks when no block size is configured.
const DefaultBlockSize = 8192

const tempPattern = "mediajob-*"

// ErrInvalidSource reports an Object constructed from an unsupported value.
var ErrInvalidSource = errors.New("invalid content source")

// InvalidSourceError names the type that could not be used as a content source.
type InvalidSourceError struct {
	Type string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("content: object must be initialized with bytes, a string, a file or a temp file, got %s", e.Type)
}

// Is lets errors.Is match InvalidSourceError against ErrInvalidSource.
func (e *InvalidSourceError) Is(target error) bool {
	return target == ErrInvalidSource
}

// TempFile is the path of a temp file whose ownership passes to the Object:
// Close removes it.
type TempFile string

// FilePath is the path of an external file. The Object reads it but never
// modifies or removes it.
type FilePath string

// Option customizes an Object at construction.
type Option func(*Object)

// WithBlockSize sets the chunk size used by Chunks.
func WithBlockSize(size int) Option {
	return func(o *Object) {
		if size > 0 {
			o.blockSize = size
		}
	}
}

// WithTempDir sets the directory temp files are materialized in.
func WithTempDir(dir string) Option {
	return func(o *Object) {
		o.tempDir = strings.TrimSpace(dir)
	}
}

// WithName sets the display name, overriding any name derived from the source.
func WithName(name string) Option {
	return func(o *Object) {
		o.name = name
	}
}

type source struct {
	data    []byte
	hasData bool
	temp    string
	file    string
	name    string
}

// Object is a lazily materialized binary payload.
type Object struct {
	blockSize int
	tempDir   string
	name      string

	src source

	data       []byte
	dataCached bool
	tempPath   string
}

// New builds an Object from src, which must be one of []byte, string,
// TempFile, FilePath, *os.File or *Object. Copying from another *Object
// duplicates the temp file it owns.
func New(src any, opts ...Option) (*Object, error) {
	o := &Object{blockSize: DefaultBlockSize}
	for _, opt := range opts {
		opt(o)
	}
	explicitName := o.name
	s, err := o.sourceFrom(src)
	if err != nil {
		return nil, err
	}
	o.src = s
	if explicitName == "" {
		o.name = s.name
	}
	return o, nil
}

// Must is New for sources known to be valid; it panics otherwise.
func Must(src any, opts ...Option) *Object {
	o, err := New(src, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Object) sourceFrom(src any) (source, error) {
	switch v := src.(type) {
	case []byte:
		return source{data: v, hasData: true}, nil
	case string:
		return source{data: []byte(v), hasData: true}, nil
	case TempFile:
		if strings.TrimSpace(string(v)) == "" {
			return source{}, &InvalidSourceError{Type: "empty content.TempFile"}
		}
		return source{temp: string(v)}, nil
	case FilePath:
		if strings.TrimSpace(string(v)) == "" {
			return source{}, &InvalidSourceError{Type: "empty content.FilePath"}
		}
		return source{file: string(v), name: filepath.Base(string(v))}, nil
	case *os.File:
		if v == nil {
			return source{}, &InvalidSourceError{Type: "nil *os.File"}
		}
		return source{file: v.Name(), name: filepath.Base(v.Name())}, nil
	case *Object:
		if v == nil {
			return source{}, &InvalidSourceError{Type: "nil *content.Object"}
		}
		s := source{
			data:    v.src.data,
			hasData: v.src.hasData,
			file:    v.src.file,
			name:    v.name,
		}
		if v.src.temp != "" {
			copied, err := fileutil.CopyToTemp(v.src.temp, o.tempDir, tempPattern)
			if err != nil {
				return source{}, fmt.Errorf("content: duplicate temp file: %w", err)
			}
			s.temp = copied
		}
		return s, nil
	default:
		return source{}, &InvalidSourceError{Type: fmt.Sprintf("%T", src)}
	}
}

// Name returns the display name, or "" when unset.
func (o *Object) Name() string {
	return o.name
}

// SetName replaces the display name.
func (o *Object) SetName(name string) {
	o.name = name
}

// BlockSize reports the chunk size used by Chunks.
func (o *Object) BlockSize() int {
	return o.blockSize
}

// Ext returns the text after the last "." in the name, or "" when there is none.
func (o *Object) Ext() string {
	idx := strings.LastIndex(o.name, ".")
	if idx < 0 {
		return ""
	}
	return o.name[idx+1:]
}

// backingFile is the file the payload currently lives in, if any.
func (o *Object) backingFile() string {
	switch {
	case o.src.temp != "":
		return o.src.temp
	case o.src.file != "":
		return o.src.file
	default:
		return ""
	}
}

// Bytes returns the whole payload, reading it at most once until Replace.
// The returned slice must not be modified.
func (o *Object) Bytes() ([]byte, error) {
	if o.dataCached {
		return o.data, nil
	}
	if o.src.hasData {
		o.data = o.src.data
		o.dataCached = true
		return o.data, nil
	}
	path := o.backingFile()
	if path == "" {
		return nil, errors.New("content: object has no source")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	o.data = data
	o.dataCached = true
	return o.data, nil
}

// Size reports the payload length without reading a file-backed payload.
func (o *Object) Size() (int64, error) {
	if o.src.hasData {
		return int64(len(o.src.data)), nil
	}
	if o.dataCached {
		return int64(len(o.data)), nil
	}
	path := o.backingFile()
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("content: stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Chunks yields the payload in BlockSize pieces. File-backed payloads are
// streamed from disk. Each call starts again from the beginning; iteration
// stops at the first error.
func (o *Object) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if o.src.hasData {
			data := o.src.data
			for start := 0; start < len(data); start += o.blockSize {
				end := min(start+o.blockSize, len(data))
				if !yield(data[start:end], nil) {
					return
				}
			}
			return
		}
		file, err := os.Open(o.backingFile())
		if err != nil {
			yield(nil, fmt.Errorf("content: open backing file: %w", err))
			return
		}
		defer file.Close()
		for {
			buf := make([]byte, o.blockSize)
			n, err := io.ReadFull(file, buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("content: read backing file: %w", err))
				return
			}
		}
	}
}

// Reader opens a fresh reader over the payload. The caller closes it.
func (o *Object) Reader() (io.ReadCloser, error) {
	if o.src.hasData {
		return io.NopCloser(bytes.NewReader(o.src.data)), nil
	}
	file, err := os.Open(o.backingFile())
	if err != nil {
		return nil, fmt.Errorf("content: open backing file: %w", err)
	}
	return file, nil
}

// Path returns a filesystem path holding the payload. In-memory payloads are
// written to a temp file on first call; file-backed payloads return their
// backing file.
func (o *Object) Path() (string, error) {
	if o.tempPath != "" {
		return o.tempPath, nil
	}
	switch {
	case o.src.temp != "":
		o.tempPath = o.src.temp
	case o.src.file != "":
		return o.src.file, nil
	case o.src.hasData:
		path, err := fileutil.WriteTemp(o.src.data, o.tempDir, tempPattern)
		if err != nil {
			return "", fmt.Errorf("content: materialize temp file: %w", err)
		}
		o.tempPath = path
	default:
		return "", errors.New("content: object has no source")
	}
	return o.tempPath, nil
}

// ToFile writes the payload to dest and returns dest opened for reading.
// In-memory payloads are written directly; file-backed payloads are copied.
func (o *Object) ToFile(dest string) (*os.File, error) {
	if o.src.hasData {
		if err := os.WriteFile(dest, o.src.data, 0o644); err != nil {
			return nil, fmt.Errorf("content: write %s: %w", dest, err)
		}
	} else if err := fileutil.CopyFile(o.backingFile(), dest); err != nil {
		return nil, fmt.Errorf("content: copy to %s: %w", dest, err)
	}
	file, err := os.Open(dest)
	if err != nil {
		return nil, fmt.Errorf("content: open %s: %w", dest, err)
	}
	return file, nil
}

// Replace drops every cached and materialized artifact, then adopts src.
// Replacing an Object with itself does nothing.
func (o *Object) Replace(src any) error {
	if other, ok := src.(*Object); ok && other == o {
		return nil
	}
	s, err := o.sourceFrom(src)
	if err != nil {
		return err
	}
	// A source pointing at a file o owns takes over that file.
	if s.file != "" && (s.file == o.tempPath || s.file == o.src.temp) {
		s.temp, s.file = s.file, ""
	}
	o.removeOwned(s.temp)
	o.src = s
	o.name = s.name
	o.data = nil
	o.dataCached = false
	o.tempPath = ""
	return nil
}

// Clone returns an independent copy. A temp file owned by o is duplicated.
func (o *Object) Clone() (*Object, error) {
	return New(o, WithBlockSize(o.blockSize), WithTempDir(o.tempDir))
}

// Close removes temp files owned by the Object. It is safe to call more than once.
func (o *Object) Close() error {
	err := o.removeOwned("")
	o.tempPath = ""
	o.src.temp = ""
	return err
}

// removeOwned deletes the temp files o owns, except keep.
func (o *Object) removeOwned(keep string) error {
	var errs []error
	for _, path := range []string{o.tempPath, o.src.temp} {
		if path == "" || path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
