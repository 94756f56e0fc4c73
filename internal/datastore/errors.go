package datastore

import "errors"

var (
	// ErrNotFound reports a uid with no stored content.
	ErrNotFound = errors.New("datastore: content not found")
	// ErrInvalidUID reports a uid that cannot name stored content.
	ErrInvalidUID = errors.New("datastore: invalid uid")
	// ErrSchemaMismatch indicates the sqlite schema version differs from the expected one.
	ErrSchemaMismatch = errors.New("datastore: schema version mismatch")
)
