package builtin

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a streaming compression format.
type Algorithm string

const (
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
	Gzip Algorithm = "gzip"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	gzipMagic = []byte{0x1f, 0x8b}
)

// ParseAlgorithm accepts an algorithm name or its file extension.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "zstd", "zst", "":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	case "gzip", "gz":
		return Gzip, nil
	default:
		return "", fmt.Errorf("builtin: unknown compression algorithm %q", name)
	}
}

// Ext is the format name used for output of the algorithm.
func (a Algorithm) Ext() string {
	switch a {
	case Zstd:
		return "zst"
	case LZ4:
		return "lz4"
	case Gzip:
		return "gz"
	default:
		return ""
	}
}

// DetectAlgorithm identifies a compressed stream from its first bytes.
func DetectAlgorithm(header []byte) (Algorithm, bool) {
	switch {
	case bytes.HasPrefix(header, zstdMagic):
		return Zstd, true
	case bytes.HasPrefix(header, lz4Magic):
		return LZ4, true
	case bytes.HasPrefix(header, gzipMagic):
		return Gzip, true
	default:
		return "", false
	}
}

// newWriter wraps w with a compressor. A level of 0 uses the algorithm default.
func newWriter(alg Algorithm, w io.Writer, level int) (io.WriteCloser, error) {
	switch alg {
	case Zstd:
		opts := []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault)}
		if level > 0 {
			opts = []zstd.EOption{zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level))}
		}
		return zstd.NewWriter(w, opts...)
	case LZ4:
		zw := lz4.NewWriter(w)
		if level > 0 {
			if err := zw.Apply(lz4.CompressionLevelOption(lz4CompressionLevel(level))); err != nil {
				return nil, fmt.Errorf("builtin: lz4 level: %w", err)
			}
		}
		return zw, nil
	case Gzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		return gzip.NewWriterLevel(w, level)
	default:
		return nil, fmt.Errorf("builtin: unknown compression algorithm %q", alg)
	}
}

func lz4CompressionLevel(level int) lz4.CompressionLevel {
	levels := []lz4.CompressionLevel{
		lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
		lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
	}
	return levels[min(max(level, 0), len(levels)-1)]
}

// newReader wraps r with a decompressor.
func newReader(alg Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch alg {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Gzip:
		return gzip.NewReader(r)
	default:
		return nil, fmt.Errorf("builtin: unknown compression algorithm %q", alg)
	}
}

func compressStream(alg Algorithm, level int) func(dst io.Writer, src io.Reader) error {
	return func(dst io.Writer, src io.Reader) error {
		zw, err := newWriter(alg, dst, level)
		if err != nil {
			return err
		}
		if _, err := io.Copy(zw, src); err != nil {
			zw.Close()
			return fmt.Errorf("builtin: %s compress: %w", alg, err)
		}
		return zw.Close()
	}
}

func decompressStream(alg Algorithm) func(dst io.Writer, src io.Reader) error {
	return func(dst io.Writer, src io.Reader) error {
		zr, err := newReader(alg, src)
		if err != nil {
			return fmt.Errorf("builtin: %s reader: %w", alg, err)
		}
		defer zr.Close()
		if _, err := io.Copy(dst, zr); err != nil {
			return fmt.Errorf("builtin: %s decompress: %w", alg, err)
		}
		return nil
	}
}
