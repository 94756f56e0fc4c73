// Package datastore persists content for fetch steps.
//
// Three backends share one contract: a FileStore writing payloads under a
// directory tree with JSON sidecars, a SQLiteStore keeping payloads as blobs,
// and an S3Store talking to any S3-compatible endpoint. Every backend hands
// out uids of the form yyyy/mm/dd/<uuid>-<slug>.<ext> so fetched jobs keep a
// readable basename and extension. Open selects the backend named in config.
package datastore
