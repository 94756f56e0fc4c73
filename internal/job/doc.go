// Package job implements lazily evaluated media jobs.
//
// A Job is an ordered list of steps (fetch, fetch_file, fetch_url, generate,
// process, encode) plus the content object, name, format and meta produced
// by applying them. Appending a step never does work; reading data, size,
// format, mime type or an analysis result applies every pending step in
// order first. Each step is applied at most once.
//
// Jobs serialize to a compact URL-safe token (base64 over deterministic
// CBOR) that can be signed with an app secret and later rebuilt with
// App.Deserialize. Tokens produced by older deployments in the Ruby Marshal
// format are still accepted.
//
// Jobs are not safe for concurrent use. Fork gives an independent copy that
// can be used on another goroutine.
package job
