package mimetype

import (
	"strings"

	"golang.org/x/text/cases"
)

// Default is returned when nothing more specific is known.
const Default = "application/octet-stream"

var byFormat = map[string]string{
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"ico":  "image/vnd.microsoft.icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"psd":  "image/vnd.adobe.photoshop",
	"heic": "image/heic",

	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",

	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",

	"pdf":  "application/pdf",
	"json": "application/json",
	"xml":  "application/xml",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"gzip": "application/gzip",
	"zst":  "application/zstd",
	"zstd": "application/zstd",
	"lz4":  "application/x-lz4",
	"tar":  "application/x-tar",
	"cbor": "application/cbor",
	"bin":  "application/octet-stream",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",

	"txt":  "text/plain",
	"text": "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"csv":  "text/csv",
	"js":   "text/javascript",
	"md":   "text/markdown",
	"srt":  "application/x-subrip",
	"vtt":  "text/vtt",
}

// byMIME is the reverse of byFormat, preferring the first-listed canonical format.
var byMIME = map[string]string{
	"image/jpeg":               "jpeg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
	"image/tiff":               "tiff",
	"image/svg+xml":            "svg",
	"image/vnd.microsoft.icon": "ico",
	"image/x-icon":             "ico",
	"audio/mpeg":               "mp3",
	"audio/ogg":                "ogg",
	"audio/wav":                "wav",
	"audio/wave":               "wav",
	"video/mp4":                "mp4",
	"video/webm":               "webm",
	"video/avi":                "avi",
	"application/pdf":          "pdf",
	"application/json":         "json",
	"application/xml":          "xml",
	"text/xml":                 "xml",
	"application/zip":          "zip",
	"application/gzip":         "gz",
	"application/x-gzip":       "gz",
	"application/zstd":         "zst",
	"application/x-lz4":        "lz4",
	"text/plain":               "txt",
	"text/html":                "html",
	"text/css":                 "css",
	"text/csv":                 "csv",
}

// key folds case with a fresh Caser per call; Casers are stateful.
func key(s string) string {
	return cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(s), "."))
}

// ForFormat returns the MIME type for a job format such as "png".
func ForFormat(format string) (string, bool) {
	mime, ok := byFormat[key(format)]
	return mime, ok
}

// ForExt returns the MIME type for a filename extension, with or without the dot.
func ForExt(ext string) (string, bool) {
	return ForFormat(ext)
}

// FormatFor returns the canonical format for a MIME type. Parameters such as
// "; charset=utf-8" are ignored.
func FormatFor(mime string) (string, bool) {
	base, _, _ := strings.Cut(mime, ";")
	format, ok := byMIME[key(base)]
	return format, ok
}
