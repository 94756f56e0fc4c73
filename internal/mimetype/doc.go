// Package mimetype maps job formats and filename extensions to MIME types.
//
// The tables are static so lookups never depend on the host's mime.types
// files. Keys are case-folded, so "PNG", "png" and ".Png" resolve alike.
package mimetype
