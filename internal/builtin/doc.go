// Package builtin registers the default processors, encoders, generators
// and analysers that ship with mediajob.
//
// Processors:
//   - compress [algorithm]: zstd (default), lz4 or gzip
//   - decompress [algorithm]: detects the algorithm from magic bytes when omitted
//
// Encoders: zst, lz4, gz. Each accepts an optional Options{"level": n}.
//
// Generators:
//   - text <string> [Options{"repeat": n, "name": s}]
//   - pattern <size> [Options{"seed": n}]
//
// Analysers: size, digest, format, mime_type, width, height,
// num_bytes_matching <bytes>.
package builtin
