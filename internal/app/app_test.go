package app

import (
	"context"
	"errors"
	"testing"

	"mediajob/internal/config"
	"mediajob/internal/registry"
	"mediajob/internal/testsupport"
)

func TestNewWiresDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	if string(rt.Jobs.Secret) != testsupport.TestSecret {
		t.Fatalf("secret not wired: %q", rt.Jobs.Secret)
	}
	if rt.Cache == nil {
		t.Fatal("expected cache manager with default config")
	}
	if !rt.Registry.Encoders.Has("zst") || !rt.Registry.Analysers.Has("digest") {
		t.Fatal("expected builtin functions registered")
	}
}

func TestRuntimeRunsStoredJobEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	rt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	uid := testsupport.MustPut(t, rt.Store, "poem.txt", []byte("roses are red"))

	j, err := rt.Jobs.Fetch(uid)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if j, err = j.Encode("gz"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	token, err := j.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	sha, err := j.SHA()
	if err != nil {
		t.Fatalf("SHA: %v", err)
	}

	restored, err := rt.Jobs.Deserialize(token)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if _, err := restored.ValidateSHA(sha); err != nil {
		t.Fatalf("ValidateSHA: %v", err)
	}
	defer restored.Close()

	format, err := restored.Format(ctx)
	if err != nil || format != "gz" {
		t.Fatalf("format = %q, %v", format, err)
	}
	name, err := restored.Name(ctx)
	if err != nil || name != "poem.txt.gz" {
		t.Fatalf("name = %q, %v", name, err)
	}
	if got, err := restored.Analyse(ctx, "format"); err != nil || got != "gz" {
		t.Fatalf("format analyser = %v, %v", got, err)
	}
}

func TestUnknownProcessorSurfacesRegistryError(t *testing.T) {
	rt, err := New(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	j, err := rt.Jobs.NewJob("data")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if j, err = j.Process("sharpen"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := j.Apply(context.Background()); !errors.Is(err, registry.ErrUnknownFunction) {
		t.Fatalf("Apply = %v, want ErrUnknownFunction", err)
	}
}
