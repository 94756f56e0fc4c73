package testsupport

import (
	"context"
	"testing"

	"mediajob/internal/config"
	"mediajob/internal/content"
	"mediajob/internal/datastore"
)

// MustOpenStore opens the configured datastore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) datastore.Store {
	t.Helper()

	store, err := datastore.Open(cfg, nil)
	if err != nil {
		t.Fatalf("datastore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustPut stores data under name and returns the new uid.
func MustPut(t testing.TB, store datastore.Store, name string, data []byte) string {
	t.Helper()

	uid, err := store.Put(context.Background(), content.Must(data, content.WithName(name)), nil)
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	return uid
}
