package content_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediajob/internal/content"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func collect(t *testing.T, obj *content.Object) []string {
	t.Helper()
	var parts []string
	for chunk, err := range obj.Chunks() {
		if err != nil {
			t.Fatalf("Chunks: %v", err)
		}
		parts = append(parts, string(chunk))
	}
	return parts
}

func TestNewRejectsUnsupportedSource(t *testing.T) {
	_, err := content.New(42)
	if !errors.Is(err, content.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
	var invalid *content.InvalidSourceError
	if !errors.As(err, &invalid) || invalid.Type != "int" {
		t.Fatalf("expected InvalidSourceError naming int, got %#v", err)
	}
}

func TestSources(t *testing.T) {
	dir := t.TempDir()
	external := writeFile(t, dir, "egg.png", "HELLO")
	temp := writeFile(t, dir, "owned.tmp", "HELLO")

	file, err := os.Open(external)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	cases := []struct {
		name     string
		src      any
		wantName string
	}{
		{"bytes", []byte("HELLO"), ""},
		{"string", "HELLO", ""},
		{"temp file", content.TempFile(temp), ""},
		{"file path", content.FilePath(external), "egg.png"},
		{"os file", file, "egg.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := content.New(tc.src, content.WithBlockSize(2))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			data, err := obj.Bytes()
			if err != nil || string(data) != "HELLO" {
				t.Fatalf("Bytes = %q, %v", data, err)
			}
			size, err := obj.Size()
			if err != nil || size != 5 {
				t.Fatalf("Size = %d, %v", size, err)
			}
			if got := strings.Join(collect(t, obj), "|"); got != "HE|LL|O" {
				t.Fatalf("chunks = %q", got)
			}
			if obj.Name() != tc.wantName {
				t.Fatalf("Name = %q, want %q", obj.Name(), tc.wantName)
			}
		})
	}
}

func TestChunksRestartable(t *testing.T) {
	obj := content.Must("abcdef", content.WithBlockSize(4))
	first := collect(t, obj)
	second := collect(t, obj)
	if strings.Join(first, "|") != "abcd|ef" || strings.Join(second, "|") != "abcd|ef" {
		t.Fatalf("unexpected chunks %q / %q", first, second)
	}
}

func TestDefaultBlockSize(t *testing.T) {
	obj := content.Must(strings.Repeat("x", content.DefaultBlockSize+1))
	chunks := collect(t, obj)
	if len(chunks) != 2 || len(chunks[0]) != content.DefaultBlockSize || len(chunks[1]) != 1 {
		t.Fatalf("unexpected chunk layout: %d chunks", len(chunks))
	}
}

func TestPathIsLazyForBytes(t *testing.T) {
	dir := t.TempDir()
	obj := content.Must("HELLO", content.WithTempDir(dir))

	if _, err := obj.Bytes(); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no temp file before Path, found %d", len(entries))
	}

	path, err := obj.Path()
	if err != nil {
		t.Fatal(err)
	}
	again, err := obj.Path()
	if err != nil || again != path {
		t.Fatalf("Path not stable: %q vs %q (%v)", path, again, err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "HELLO" {
		t.Fatalf("temp file holds %q, %v", data, err)
	}
	if err := obj.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, stat err=%v", err)
	}
}

func TestPathForExternalFileDoesNotCopy(t *testing.T) {
	dir := t.TempDir()
	external := writeFile(t, dir, "a.txt", "data")
	obj := content.Must(content.FilePath(external))
	path, err := obj.Path()
	if err != nil {
		t.Fatal(err)
	}
	if path != external {
		t.Fatalf("Path = %q, want %q", path, external)
	}
	if err := obj.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(external); err != nil {
		t.Fatalf("external file must survive Close: %v", err)
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	external := writeFile(t, dir, "src.bin", "from file")

	for name, obj := range map[string]*content.Object{
		"bytes": content.Must("from bytes"),
		"file":  content.Must(content.FilePath(external)),
	} {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(dir, name+".out")
			f, err := obj.ToFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			want, _ := obj.Bytes()
			got, err := os.ReadFile(dest)
			if err != nil || string(got) != string(want) {
				t.Fatalf("dest holds %q, want %q (%v)", got, want, err)
			}
		})
	}
}

func TestExt(t *testing.T) {
	cases := map[string]string{
		"hello.there.mate": "mate",
		"hello":            "",
		"":                 "",
	}
	for name, want := range cases {
		obj := content.Must("x", content.WithName(name))
		if got := obj.Ext(); got != want {
			t.Errorf("Ext(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCloneDuplicatesTempFile(t *testing.T) {
	dir := t.TempDir()
	temp := writeFile(t, dir, "owned.tmp", "shared?")
	orig := content.Must(content.TempFile(temp), content.WithTempDir(dir))

	clone, err := orig.Clone()
	if err != nil {
		t.Fatal(err)
	}
	clonePath, err := clone.Path()
	if err != nil {
		t.Fatal(err)
	}
	if clonePath == temp {
		t.Fatal("clone must not share the temp file")
	}
	if err := orig.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := clone.Bytes()
	if err != nil || string(data) != "shared?" {
		t.Fatalf("clone data = %q, %v", data, err)
	}
	if err := clone.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceClearsCachedState(t *testing.T) {
	dir := t.TempDir()
	obj := content.Must("first", content.WithTempDir(dir))
	oldPath, err := obj.Path()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Bytes(); err != nil {
		t.Fatal(err)
	}

	if err := obj.Replace("second"); err != nil {
		t.Fatal(err)
	}
	data, err := obj.Bytes()
	if err != nil || string(data) != "second" {
		t.Fatalf("Bytes after Replace = %q, %v", data, err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected materialized temp file removed, stat err=%v", err)
	}
	newPath, err := obj.Path()
	if err != nil || newPath == oldPath {
		t.Fatalf("expected fresh temp path, got %q (%v)", newPath, err)
	}
}

func TestReplaceWithSelfIsNoop(t *testing.T) {
	obj := content.Must("same", content.WithName("a.txt"))
	if err := obj.Replace(obj); err != nil {
		t.Fatal(err)
	}
	data, _ := obj.Bytes()
	if string(data) != "same" || obj.Name() != "a.txt" {
		t.Fatalf("unexpected state after self replace: %q %q", data, obj.Name())
	}
}

func TestReplaceRejectsInvalidSource(t *testing.T) {
	obj := content.Must("keep")
	if err := obj.Replace(3.5); !errors.Is(err, content.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
	data, _ := obj.Bytes()
	if string(data) != "keep" {
		t.Fatalf("failed Replace must keep the old source, got %q", data)
	}
}

func TestReplaceWithOwnMaterializedPathKeepsPayload(t *testing.T) {
	sources := map[string]func(string) any{
		"file path": func(p string) any { return content.FilePath(p) },
		"temp file": func(p string) any { return content.TempFile(p) },
	}
	for name, wrap := range sources {
		t.Run(name, func(t *testing.T) {
			obj := content.Must([]byte("payload"), content.WithTempDir(t.TempDir()))
			path, err := obj.Path()
			if err != nil {
				t.Fatalf("Path: %v", err)
			}
			if err := obj.Replace(wrap(path)); err != nil {
				t.Fatalf("Replace: %v", err)
			}
			data, err := obj.Bytes()
			if err != nil || string(data) != "payload" {
				t.Fatalf("Bytes after Replace = %q, %v", data, err)
			}

			if err := obj.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("expected the adopted file to be owned and removed, stat err = %v", err)
			}
		})
	}
}

func TestReplaceWithAdoptedTempFileKeepsIt(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.tmp", "one")
	obj := content.Must(content.TempFile(first))
	if err := obj.Replace(content.TempFile(first)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if data, err := obj.Bytes(); err != nil || string(data) != "one" {
		t.Fatalf("Bytes = %q, %v", data, err)
	}
	_ = obj.Close()
}

func TestCloseForgetsRemovedFiles(t *testing.T) {
	obj := content.Must(content.TempFile(writeFile(t, t.TempDir(), "owned.tmp", "x")))
	path, err := obj.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := obj.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := obj.Path(); err == nil {
		t.Fatalf("Path after Close = %q, want error (removed %q)", got, path)
	}

	mem := content.Must([]byte("again"), content.WithTempDir(t.TempDir()))
	old, _ := mem.Path()
	if err := mem.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	fresh, err := mem.Path()
	if err != nil {
		t.Fatalf("Path after Close: %v", err)
	}
	t.Cleanup(func() { _ = mem.Close() })
	if fresh == old {
		t.Fatalf("Path after Close reused removed file %q", old)
	}
	if data, err := os.ReadFile(fresh); err != nil || string(data) != "again" {
		t.Fatalf("rematerialized file = %q, %v", data, err)
	}
}
