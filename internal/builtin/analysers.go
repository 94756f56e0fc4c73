package builtin

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/zeebo/blake3"

	"mediajob/internal/content"
	"mediajob/internal/mimetype"
)

const sniffLen = 512

func readHeader(obj *content.Object, n int) ([]byte, error) {
	r, err := obj.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("builtin: read header: %w", err)
	}
	return buf[:read], nil
}

// sniffMime reports the content's mime type, or "" when it is unrecognised.
func sniffMime(obj *content.Object) (string, error) {
	header, err := readHeader(obj, sniffLen)
	if err != nil {
		return "", err
	}
	if alg, ok := DetectAlgorithm(header); ok {
		mime, _ := mimetype.ForFormat(alg.Ext())
		return mime, nil
	}
	mime := http.DetectContentType(header)
	if mime == mimetype.Default {
		return "", nil
	}
	return mime, nil
}

func analyseSize(_ context.Context, obj *content.Object, _ ...any) (any, error) {
	return obj.Size()
}

func analyseDigest(ctx context.Context, obj *content.Object, _ ...any) (any, error) {
	hasher := blake3.New()
	for chunk, err := range obj.Chunks() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hasher.Write(chunk)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func analyseMimeType(_ context.Context, obj *content.Object, _ ...any) (any, error) {
	mime, err := sniffMime(obj)
	if err != nil || mime == "" {
		return nil, err
	}
	return mime, nil
}

func analyseFormat(_ context.Context, obj *content.Object, _ ...any) (any, error) {
	mime, err := sniffMime(obj)
	if err != nil || mime == "" {
		return nil, err
	}
	format, ok := mimetype.FormatFor(mime)
	if !ok {
		return nil, nil
	}
	return format, nil
}

func imageConfig(obj *content.Object) (image.Config, bool, error) {
	r, err := obj.Reader()
	if err != nil {
		return image.Config{}, false, err
	}
	defer r.Close()
	cfg, _, err := image.DecodeConfig(r)
	if errors.Is(err, image.ErrFormat) {
		return image.Config{}, false, nil
	}
	if err != nil {
		return image.Config{}, false, fmt.Errorf("builtin: decode image header: %w", err)
	}
	return cfg, true, nil
}

func analyseWidth(_ context.Context, obj *content.Object, _ ...any) (any, error) {
	cfg, ok, err := imageConfig(obj)
	if err != nil || !ok {
		return nil, err
	}
	return int64(cfg.Width), nil
}

func analyseHeight(_ context.Context, obj *content.Object, _ ...any) (any, error) {
	cfg, ok, err := imageConfig(obj)
	if err != nil || !ok {
		return nil, err
	}
	return int64(cfg.Height), nil
}

// analyseBytesMatching counts payload bytes that occur in the first argument.
func analyseBytesMatching(_ context.Context, obj *content.Object, args ...any) (any, error) {
	set, ok := firstString(args)
	if !ok || set == "" {
		return nil, errors.New("builtin: num_bytes_matching needs a non-empty string of bytes")
	}
	match := []byte(set)
	var total int64
	for chunk, err := range obj.Chunks() {
		if err != nil {
			return nil, err
		}
		for _, b := range chunk {
			if bytes.IndexByte(match, b) >= 0 {
				total++
			}
		}
	}
	return total, nil
}
