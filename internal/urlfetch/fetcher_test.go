package urlfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/testsupport"
)

func TestFetchURLStreamsBody(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report.txt"`)
		_, _ = w.Write([]byte("remote body"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "mediajob-test", TempDir: t.TempDir()}, nil)
	res, err := f.FetchURL(context.Background(), srv.URL+"/files/r")
	if err != nil {
		t.Fatalf("FetchURL: %v", err)
	}
	if gotAgent != "mediajob-test" {
		t.Fatalf("user agent = %q", gotAgent)
	}
	if res.Name != "report.txt" {
		t.Fatalf("name = %q", res.Name)
	}
	if res.Meta["content_type"] != "text/plain; charset=utf-8" {
		t.Fatalf("meta = %v", res.Meta)
	}
	obj := content.Must(res.Content)
	defer obj.Close()
	data, err := obj.Bytes()
	if err != nil || string(data) != "remote body" {
		t.Fatalf("data = %q, %v", data, err)
	}
}

func TestFetchURLRejectsLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing first hides Content-Length so the streaming limit is exercised.
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := New(Options{MaxBodyBytes: 16, TempDir: t.TempDir()}, nil)
	if _, err := f.FetchURL(context.Background(), srv.URL); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("FetchURL = %v, want ErrBodyTooLarge", err)
	}
}

func TestFetchURLReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := New(Options{TempDir: t.TempDir()}, nil)
	_, err := f.FetchURL(context.Background(), srv.URL+"/missing.png")
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("FetchURL = %v, want 404 StatusError", err)
	}
}

func TestBreakerOpensAfterServerFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(Options{BreakerMaxFailures: 2, BreakerOpen: time.Minute, TempDir: t.TempDir()}, nil)
	ctx := context.Background()
	for range 2 {
		if _, err := f.FetchURL(ctx, srv.URL); err == nil {
			t.Fatal("expected failure")
		}
	}
	if _, err := f.FetchURL(ctx, srv.URL); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("third FetchURL = %v, want ErrCircuitOpen", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hits = %d, want 2", hits.Load())
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := New(Options{BreakerMaxFailures: 1, TempDir: t.TempDir()}, nil)
	for range 3 {
		_, err := f.FetchURL(context.Background(), srv.URL)
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatal("404 responses should not open the breaker")
		}
	}
}

func TestFetchURLRejectsOtherSchemes(t *testing.T) {
	f := New(Options{}, nil)
	if _, err := f.FetchURL(context.Background(), "ftp://example.com/a"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("FetchURL = %v, want ErrUnsupportedScheme", err)
	}
}

func TestFetcherServesFetchURLSteps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	app := job.NewApp()
	app.URLFetcher = NewFromConfig(cfg, nil)

	j, err := app.FetchURL(srv.URL + "/images/cat.gif")
	if err != nil {
		t.Fatalf("FetchURL: %v", err)
	}
	defer j.Close()
	name, err := j.Name(context.Background())
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "cat.gif" {
		t.Fatalf("name = %q", name)
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	cases := map[string]string{
		"":                                 "",
		"inline":                           "",
		`attachment; filename="a b.png"`:   "a b.png",
		`attachment; filename="../../x.t"`: "x.t",
		"attachment; filename*=UTF-8''caf%C3%A9.txt": "café.txt",
	}
	for header, want := range cases {
		if got := filenameFromDisposition(header); got != want {
			t.Errorf("filenameFromDisposition(%q) = %q, want %q", header, got, want)
		}
	}
}
