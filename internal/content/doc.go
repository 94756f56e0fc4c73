// Package content normalizes the three places a job payload can live (an
// in-memory buffer, a temp file owned by the payload, or an external file on
// disk) behind one lazily materialized Object.
//
// An Object never writes a temp file unless a caller asks for a filesystem
// path via Path. Reads from a file-backed Object stream from the backing file
// in fixed-size blocks (8 KiB unless WithBlockSize says otherwise). Cloning an
// Object duplicates any temp file it owns so two Objects never share one.
//
// Objects carry no internal locking; confine each one to a single goroutine.
package content
