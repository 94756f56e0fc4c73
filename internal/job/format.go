package job

import (
	"context"
	"encoding/base64"
	"fmt"

	"mediajob/internal/mimetype"
)

// Format returns the job's format. When the answer is already determined
// (a caller-set format, or a pending encode that no later step can
// override) no steps are applied. Otherwise pending steps run, and if the
// format is still unknown the "format" analyser is consulted.
func (j *Job) Format(ctx context.Context) (string, error) {
	format, err := j.knownFormat(ctx)
	if err != nil || format != "" {
		return format, err
	}
	if !j.hasAnalyser("format") {
		return "", nil
	}
	value, err := j.Analyse(ctx, "format")
	if err != nil {
		return "", err
	}
	return stringValue(value), nil
}

// knownFormat is Format without the analyser fallback.
func (j *Job) knownFormat(ctx context.Context) (string, error) {
	if format, ok := j.formatWithoutApply(); ok {
		return format, nil
	}
	if _, err := j.Apply(ctx); err != nil {
		return "", err
	}
	return j.format, nil
}

func (j *Job) formatWithoutApply() (string, bool) {
	pending := j.firstPending()
	if pending == len(j.steps) {
		return j.format, j.format != ""
	}
	for i := len(j.steps) - 1; i >= pending; i-- {
		if j.steps[i].kind != KindEncode {
			continue
		}
		// steps after the encode could still report a format of their own
		if j.formatSet || i == len(j.steps)-1 {
			return j.steps[i].Format(), true
		}
		return "", false
	}
	if j.formatSet {
		return j.format, true
	}
	return "", false
}

// MimeType resolves the content's mime type: the known format first, then
// the name's extension when inference is enabled, then the "mime_type"
// analyser, then the "format" analyser, then the App's fallback.
func (j *Job) MimeType(ctx context.Context) (string, error) {
	format, err := j.knownFormat(ctx)
	if err != nil {
		return "", err
	}
	if mime, ok := mimetype.ForFormat(format); ok {
		return mime, nil
	}
	if j.app.InferMimeTypeFromFileExt {
		ext, err := j.Ext(ctx)
		if err != nil {
			return "", err
		}
		if mime, ok := mimetype.ForExt(ext); ok {
			return mime, nil
		}
	}
	if j.hasAnalyser("mime_type") {
		value, err := j.Analyse(ctx, "mime_type")
		if err != nil {
			return "", err
		}
		if mime := stringValue(value); mime != "" {
			return mime, nil
		}
	}
	if j.hasAnalyser("format") {
		value, err := j.Analyse(ctx, "format")
		if err != nil {
			return "", err
		}
		if mime, ok := mimetype.ForFormat(stringValue(value)); ok {
			return mime, nil
		}
	}
	return j.app.fallbackMimeType(), nil
}

// DataURI renders the payload as a base64 data URI.
func (j *Job) DataURI(ctx context.Context) (string, error) {
	mime, err := j.MimeType(ctx)
	if err != nil {
		return "", err
	}
	data, err := j.Data(ctx)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
