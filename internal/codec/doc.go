// Package codec wraps CBOR encoding for job tokens.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// shortest integer forms, no indefinite lengths. The same logical value
// always yields the same bytes, which is what makes token signatures stable.
// Decoding into interface values produces map[string]any for maps.
package codec
