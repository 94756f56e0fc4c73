// Package jobcache keeps the applied output of jobs on disk so repeated runs
// of the same step list skip the work.
//
// Entries are keyed by the BLAKE3 digest of a job's canonical CBOR step array. Each entry
// is a directory holding the payload as "data" and its name, format, MIME type
// and meta as "attrs.json".
//
// # Size Management
//
// The cache enforces two constraints: a configurable size budget (cache.max_mib)
// and a 20% free-space floor on the underlying volume. After every store the
// manager prunes oldest entries first until both hold again. Manual pruning is
// available via `mediajob cache prune`; `mediajob cache stats` shows usage.
package jobcache
