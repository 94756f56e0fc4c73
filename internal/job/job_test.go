package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/testsupport"
)

func upcase(data []byte, _ []any) (job.Result, error) {
	return job.Result{Content: strings.ToUpper(string(data))}, nil
}

func newJob(t *testing.T, app *job.App, src any, opts ...job.Option) *job.Job {
	t.Helper()
	j, err := app.NewJob(src, opts...)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func mustData(t *testing.T, j *job.Job) string {
	t.Helper()
	data, err := j.Data(context.Background())
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	return string(data)
}

func TestNewJobFromContent(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "GUNGLE", job.WithName("gungle.txt"))
	ctx := context.Background()

	if got := mustData(t, j); got != "GUNGLE" {
		t.Fatalf("Data = %q", got)
	}
	if size, err := j.Size(ctx); err != nil || size != 6 {
		t.Fatalf("Size = %d, %v", size, err)
	}
	if ext, _ := j.Ext(ctx); ext != "txt" {
		t.Fatalf("Ext = %q", ext)
	}
	if base, _ := j.Basename(ctx); base != "gungle" {
		t.Fatalf("Basename = %q", base)
	}
	if len(j.Steps()) != 0 {
		t.Fatalf("expected no steps, got %v", j.Steps())
	}
	meta, err := j.Meta(ctx)
	if err != nil || len(meta) != 0 || meta == nil {
		t.Fatalf("Meta = %#v, %v", meta, err)
	}
}

func TestNewJobWithoutContent(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, nil)
	if _, err := j.Data(context.Background()); !errors.Is(err, job.ErrNoContent) {
		t.Fatalf("Data error = %v, want ErrNoContent", err)
	}
}

func TestWithMetaRejectsNonMapping(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	if _, err := app.NewJob("x", job.WithMeta("nope")); !errors.Is(err, job.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
	j := newJob(t, app, "x", job.WithMeta(map[string]any{"a": 1}))
	meta, _ := j.Meta(context.Background())
	if meta["a"] != 1 {
		t.Fatalf("meta = %#v", meta)
	}
}

func TestUpdateAttributes(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "x", job.WithMeta(job.Meta{"keep": true}))
	if err := j.UpdateAttributes(map[string]any{"name": "a.png", "meta": map[string]any{"b": "c"}}); err != nil {
		t.Fatalf("UpdateAttributes: %v", err)
	}
	ctx := context.Background()
	name, _ := j.Name(ctx)
	meta, _ := j.Meta(ctx)
	if name != "a.png" || meta["keep"] != true || meta["b"] != "c" {
		t.Fatalf("name=%q meta=%#v", name, meta)
	}
	if err := j.UpdateAttributes(map[string]any{"meta": []string{"x"}}); !errors.Is(err, job.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
	if err := j.UpdateAttributes(map[string]any{"colour": "red"}); !errors.Is(err, job.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestStepsAreLazy(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Store.Items["some_uid"] = job.Result{Content: "hello", Name: "hello.txt"}
	fakes.Processor.Funcs["upcase"] = upcase

	j, err := app.Fetch("some_uid")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := j.AddProcess("upcase"); err != nil {
		t.Fatalf("AddProcess: %v", err)
	}
	if n := len(fakes.Store.Calls()) + len(fakes.Processor.Calls()); n != 0 {
		t.Fatalf("expected no collaborator calls before reading, got %d", n)
	}
	if got := mustData(t, j); got != "HELLO" {
		t.Fatalf("Data = %q", got)
	}
	mustData(t, j)
	if fakes.Store.Count("some_uid") != 1 || fakes.Processor.Count("upcase") != 1 {
		t.Fatalf("steps ran more than once: store=%v processor=%v", fakes.Store.Calls(), fakes.Processor.Calls())
	}
	if !j.Applied() || len(j.PendingSteps()) != 0 || len(j.AppliedSteps()) != 2 {
		t.Fatalf("unexpected step state %v", j.Steps())
	}
}

func TestApplyRunsOnlyNewSteps(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["append"] = func(data []byte, args []any) (job.Result, error) {
		return job.Result{Content: string(data) + args[0].(string)}, nil
	}
	j := newJob(t, app, "a")
	if err := j.AddProcess("append", "b"); err != nil {
		t.Fatal(err)
	}
	if got := mustData(t, j); got != "ab" {
		t.Fatalf("Data = %q", got)
	}
	if err := j.AddProcess("append", "c"); err != nil {
		t.Fatal(err)
	}
	if got := mustData(t, j); got != "abc" {
		t.Fatalf("Data = %q", got)
	}
	if calls := fakes.Processor.Count("append"); calls != 2 {
		t.Fatalf("append ran %d times, want 2", calls)
	}
}

func TestProcessAndEncodeNeedContent(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["upcase"] = upcase
	fakes.Encoder.Funcs["gif"] = upcase
	ctx := context.Background()

	j := newJob(t, app, nil)
	if err := j.AddProcess("upcase"); err != nil {
		t.Fatal(err)
	}
	_, err := j.Apply(ctx)
	if !errors.Is(err, job.ErrNothingToProcess) {
		t.Fatalf("Apply error = %v, want ErrNothingToProcess", err)
	}
	var stepErr *job.StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 0 || stepErr.Step != "process" {
		t.Fatalf("expected StepError for step 0, got %#v", err)
	}
	if j.Steps()[0].Applied() {
		t.Fatal("failed step must stay pending")
	}

	e := newJob(t, app, nil)
	if err := e.AddEncode("gif"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(ctx); !errors.Is(err, job.ErrNothingToEncode) {
		t.Fatalf("Apply error = %v, want ErrNothingToEncode", err)
	}
}

func TestFailedStepStopsLaterSteps(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Store.Err = errors.New("disk on fire")
	fakes.Processor.Funcs["upcase"] = upcase
	j, _ := app.Fetch("uid")
	_ = j.AddProcess("upcase")
	if _, err := j.Apply(context.Background()); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("Apply error = %v", err)
	}
	if fakes.Processor.Count("upcase") != 0 {
		t.Fatal("process step ran after failed fetch")
	}
}

func TestForkIsIndependent(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["upcase"] = upcase
	original := newJob(t, app, "abc", job.WithName("a.txt"), job.WithMeta(job.Meta{"k": "v"}))

	forked, err := original.Process("upcase")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer forked.Close()
	if len(original.Steps()) != 0 || len(forked.Steps()) != 1 {
		t.Fatalf("original steps=%v forked steps=%v", original.Steps(), forked.Steps())
	}
	if got := mustData(t, forked); got != "ABC" {
		t.Fatalf("forked Data = %q", got)
	}
	if got := mustData(t, original); got != "abc" {
		t.Fatalf("original Data = %q", got)
	}
	forked.SetName("b.txt")
	if err := forked.UpdateAttributes(map[string]any{"meta": map[string]any{"k": "changed"}}); err != nil {
		t.Fatal(err)
	}
	name, _ := original.Name(context.Background())
	meta, _ := original.Meta(context.Background())
	if name != "a.txt" || meta["k"] != "v" {
		t.Fatalf("fork leaked into original: name=%q meta=%#v", name, meta)
	}
}

func TestForkKeepsAppliedSteps(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["upcase"] = upcase
	j := newJob(t, app, "abc")
	_ = j.AddProcess("upcase")
	mustData(t, j)

	fork, err := j.Fork()
	if err != nil {
		t.Fatal(err)
	}
	defer fork.Close()
	if got := mustData(t, fork); got != "ABC" {
		t.Fatalf("Data = %q", got)
	}
	if fakes.Processor.Count("upcase") != 1 {
		t.Fatalf("applied step re-ran in fork")
	}
}

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "egg.txt")
	if err := os.WriteFile(path, []byte("eggs"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _ := testsupport.NewJobApp()
	j, err := app.FetchFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if got := mustData(t, j); got != "eggs" {
		t.Fatalf("Data = %q", got)
	}
	name, _ := j.Name(context.Background())
	if name != "egg.txt" {
		t.Fatalf("Name = %q", name)
	}
	obj, _ := j.Content(context.Background())
	if p, _ := obj.Path(); p != path {
		t.Fatalf("Path = %q, want the original file", p)
	}

	missing, _ := app.FetchFile(filepath.Join(dir, "missing.txt"))
	if _, err := missing.Apply(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Apply error = %v, want not exist", err)
	}
}

func TestFetchURL(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.URLFetcher.Responses["http://some.place.com/dung.beetle"] = job.Result{Content: "beetle"}
	fakes.URLFetcher.Responses["https://some.place.com"] = job.Result{Content: "home"}

	j, _ := app.FetchURL("some.place.com/dung.beetle")
	if got := mustData(t, j); got != "beetle" {
		t.Fatalf("Data = %q", got)
	}
	if name, _ := j.Name(context.Background()); name != "dung.beetle" {
		t.Fatalf("Name = %q", name)
	}
	step, _ := j.FetchURLStep()
	if step.URL() != "http://some.place.com/dung.beetle" {
		t.Fatalf("URL = %q", step.URL())
	}

	root, _ := app.FetchURL("https://some.place.com")
	mustData(t, root)
	if name, _ := root.Name(context.Background()); name != "" {
		t.Fatalf("Name = %q, want empty", name)
	}
}

func TestMergeRules(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Store.Items["uid"] = job.Result{Content: "x", Name: "stored.png", Format: "png", Meta: job.Meta{"a": 1}}
	fakes.Processor.Funcs["thumb"] = func(data []byte, _ []any) (job.Result, error) {
		return job.Result{Content: data, Format: "jpg", Meta: job.Meta{"b": 2}}, nil
	}
	fakes.Encoder.Funcs["gif"] = func(data []byte, _ []any) (job.Result, error) {
		return job.Result{Content: data, Format: "tiff", Name: "out.gif"}, nil
	}
	ctx := context.Background()

	j, _ := app.Fetch("uid")
	if _, err := j.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if name, _ := j.Name(ctx); name != "stored.png" {
		t.Fatalf("Name = %q", name)
	}
	if format, _ := j.Format(ctx); format != "" {
		t.Fatalf("fetch must not set format, got %q", format)
	}

	_ = j.AddProcess("thumb")
	if format, _ := j.Format(ctx); format != "jpg" {
		t.Fatalf("Format after process = %q", format)
	}
	meta, _ := j.Meta(ctx)
	if !reflect.DeepEqual(meta, job.Meta{"a": 1, "b": 2}) {
		t.Fatalf("Meta = %#v", meta)
	}

	_ = j.AddEncode("gif")
	if format, _ := j.Format(ctx); format != "gif" {
		t.Fatalf("encode must set its own format, got %q", format)
	}
	if name, _ := j.Name(ctx); name != "out.gif" {
		t.Fatalf("Name = %q", name)
	}
}

func TestCallerFormatIsKept(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["thumb"] = func(data []byte, _ []any) (job.Result, error) {
		return job.Result{Content: data, Format: "jpg"}, nil
	}
	j := newJob(t, app, "x", job.WithFormat("png"))
	_ = j.AddProcess("thumb")
	if format, _ := j.Format(context.Background()); format != "png" {
		t.Fatalf("Format = %q", format)
	}
	if fakes.Processor.Count("thumb") != 0 {
		t.Fatal("caller-set format must not apply steps")
	}
	if _, err := j.Apply(context.Background()); err != nil {
		t.Fatal(err)
	}
	if format, _ := j.Format(context.Background()); format != "png" {
		t.Fatalf("Format after apply = %q", format)
	}
}

func TestFormatWithoutApplying(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Encoder.Funcs["gif"] = upcase
	fakes.Processor.Funcs["thumb"] = func(data []byte, _ []any) (job.Result, error) {
		return job.Result{Content: data, Format: "jpg"}, nil
	}
	ctx := context.Background()

	j := newJob(t, app, "x")
	_ = j.AddEncode("gif")
	if format, _ := j.Format(ctx); format != "gif" {
		t.Fatalf("Format = %q", format)
	}
	if fakes.Encoder.Count("gif") != 0 {
		t.Fatal("pending trailing encode must not be applied to read its format")
	}

	_ = j.AddProcess("thumb")
	if format, _ := j.Format(ctx); format != "jpg" {
		t.Fatalf("Format = %q", format)
	}
	if fakes.Encoder.Count("gif") != 1 || fakes.Processor.Count("thumb") != 1 {
		t.Fatal("a step after encode must force application")
	}
}

func TestFormatFallsBackToAnalyser(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	j := newJob(t, app, "x")
	if format, err := j.Format(context.Background()); err != nil || format != "" {
		t.Fatalf("Format = %q, %v", format, err)
	}
	fakes.Analyser.Funcs["format"] = func(context.Context, *content.Object, ...any) (any, error) {
		return "egg", nil
	}
	if format, _ := j.Format(context.Background()); format != "egg" {
		t.Fatalf("Format = %q", format)
	}
}

func TestMimeType(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func()
		opts  []job.Option
		want  string
	}{
		{name: "format wins over ext", opts: []job.Option{job.WithName("test.pdf"), job.WithFormat("tiff")}, want: "image/tiff"},
		{name: "ext", opts: []job.Option{job.WithName("test.pdf")}, want: "application/pdf"},
		{
			name: "mime analyser when ext inference is off",
			setup: func() {
				app.InferMimeTypeFromFileExt = false
				fakes.Analyser.Funcs["mime_type"] = func(context.Context, *content.Object, ...any) (any, error) {
					return "image/jpeg", nil
				}
			},
			opts: []job.Option{job.WithName("test.pdf")},
			want: "image/jpeg",
		},
		{
			name: "format analyser",
			setup: func() {
				delete(fakes.Analyser.Funcs, "mime_type")
				fakes.Analyser.Funcs["format"] = func(context.Context, *content.Object, ...any) (any, error) {
					return "png", nil
				}
			},
			want: "image/png",
		},
		{
			name:  "fallback",
			setup: func() { delete(fakes.Analyser.Funcs, "format") },
			want:  "application/octet-stream",
		},
		{
			name:  "configured fallback",
			setup: func() { app.FallbackMimeType = "text/plain" },
			want:  "text/plain",
		},
	}
	for _, tc := range cases {
		if tc.setup != nil {
			tc.setup()
		}
		j := newJob(t, app, "content", tc.opts...)
		got, err := j.MimeType(ctx)
		if err != nil {
			t.Fatalf("%s: MimeType: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: MimeType = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDataURI(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "HELLO", job.WithName("hello.txt"))
	uri, err := j.DataURI(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if uri != "data:text/plain;base64,SEVMTE8=" {
		t.Fatalf("DataURI = %q", uri)
	}
}

func TestAnalyse(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Analyser.Funcs["num_letters"] = func(_ context.Context, obj *content.Object, args ...any) (any, error) {
		data, err := obj.Bytes()
		if err != nil {
			return nil, err
		}
		return strings.Count(string(data), args[0].(string)), nil
	}
	ctx := context.Background()

	empty := newJob(t, app, nil)
	if _, err := empty.Analyse(ctx, "num_letters", "L"); !errors.Is(err, job.ErrNothingToAnalyse) {
		t.Fatalf("error = %v, want ErrNothingToAnalyse", err)
	}
	if _, err := empty.Call(ctx, "num_letters", "L"); !errors.Is(err, job.ErrNothingToAnalyse) {
		t.Fatalf("Call error = %v, want ErrNothingToAnalyse", err)
	}

	j := newJob(t, app, "HELLO")
	got, err := j.Analyse(ctx, "num_letters", "L")
	if err != nil || got != 2 {
		t.Fatalf("Analyse = %v, %v", got, err)
	}
	if got, err := j.Analyse(ctx, "unregistered"); got != nil || err != nil {
		t.Fatalf("unregistered analyser = %v, %v", got, err)
	}
	if got, err := j.Call(ctx, "num_letters", "L"); err != nil || got != 2 {
		t.Fatalf("Call = %v, %v", got, err)
	}
}

func TestCall(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "HELLO", job.WithName("hello.txt"))
	ctx := context.Background()

	if got, err := j.Call(ctx, "size"); err != nil || got != int64(5) {
		t.Fatalf("Call(size) = %v, %v", got, err)
	}
	if got, _ := j.Call(ctx, "ext"); got != "txt" {
		t.Fatalf("Call(ext) = %v", got)
	}
	encoded, err := app.Fetch("2024/a/b.jpeg")
	if err != nil {
		t.Fatal(err)
	}
	encoded, err = encoded.Encode("gif")
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]any{
		"uid":             "2024/a/b.jpeg",
		"uid_basename":    "b",
		"uid_extname":     ".jpeg",
		"encoded_format":  "gif",
		"encoded_extname": ".gif",
		"unique_s":        encoded.UniqueString(),
	} {
		if got, err := encoded.Call(ctx, name); err != nil || got != want {
			t.Fatalf("Call(%s) = %v, %v; want %v", name, got, err, want)
		}
	}
	sha, _ := encoded.SHA()
	if got, _ := encoded.Call(ctx, "sha"); got != sha {
		t.Fatalf("Call(sha) = %v, want %v", got, sha)
	}
	_, err = j.Call(ctx, "frobnicate")
	var nsm *job.NoSuchMethodError
	if !errors.As(err, &nsm) || nsm.Name != "frobnicate" || !errors.Is(err, job.ErrNoSuchMethod) {
		t.Fatalf("error = %v, want NoSuchMethodError", err)
	}
	if j.RespondsTo("frobnicate") || !j.RespondsTo("mime_type") {
		t.Fatal("RespondsTo mismatch")
	}
}

func TestUIDHelpers(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j, _ := app.Fetch("2024/01/some_uid.jpg")
	_ = j.AddEncode("png")
	_ = j.AddEncode("gif")

	if j.UID() != "2024/01/some_uid.jpg" {
		t.Fatalf("UID = %q", j.UID())
	}
	if j.UIDBasename() != "some_uid" || j.UIDExtname() != ".jpg" {
		t.Fatalf("basename=%q ext=%q", j.UIDBasename(), j.UIDExtname())
	}
	if j.EncodedFormat() != "gif" || j.EncodedExtname() != ".gif" {
		t.Fatalf("encoded=%q ext=%q", j.EncodedFormat(), j.EncodedExtname())
	}

	bare := newJob(t, app, "x")
	if bare.UID() != "" || bare.UIDBasename() != "" || bare.EncodedExtname() != "" {
		t.Fatal("expected empty helpers without steps")
	}
}

func TestToFetchedJob(t *testing.T) {
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["upcase"] = upcase
	j := newJob(t, app, "abc", job.WithMeta(job.Meta{"k": "v"}))
	_ = j.AddProcess("upcase")
	mustData(t, j)

	fetched, err := j.ToFetchedJob("stored_uid")
	if err != nil {
		t.Fatal(err)
	}
	defer fetched.Close()
	steps := fetched.Steps()
	if len(steps) != 1 || steps[0].Kind() != job.KindFetch || !steps[0].Applied() {
		t.Fatalf("steps = %v", steps)
	}
	if got := mustData(t, fetched); got != "ABC" {
		t.Fatalf("Data = %q", got)
	}
	meta, _ := fetched.Meta(context.Background())
	if meta["k"] != "v" {
		t.Fatalf("Meta = %#v", meta)
	}
	if fakes.Store.Count("stored_uid") != 0 {
		t.Fatal("fetched job must not reload")
	}
}

func TestStepValidation(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "x")
	cases := []struct {
		kind job.Kind
		args []any
	}{
		{job.KindFetch, nil},
		{job.KindFetch, []any{""}},
		{job.KindFetch, []any{"a", "b"}},
		{job.KindFetchFile, []any{42}},
		{job.KindProcess, nil},
		{job.KindEncode, []any{""}},
		{job.KindProcess, []any{"thumb", struct{}{}}},
		{job.KindProcess, []any{"thumb", map[string]any{"x": make(chan int)}}},
	}
	for _, tc := range cases {
		if err := j.Append(tc.kind, tc.args...); !errors.Is(err, job.ErrInvalidArgument) {
			t.Fatalf("Append(%s, %v) error = %v, want ErrInvalidArgument", tc.kind, tc.args, err)
		}
	}
	if len(j.Steps()) != 0 {
		t.Fatalf("invalid steps were appended: %v", j.Steps())
	}
}

func TestStepArgumentsAreNormalized(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	j := newJob(t, app, "x")
	if err := j.AddProcess("resize", 270, float32(1.5), map[string]any{"w": uint8(3)}); err != nil {
		t.Fatal(err)
	}
	step := j.Steps()[0]
	want := []any{"resize", int64(270), float64(1.5), job.Options{"w": int64(3)}}
	if !reflect.DeepEqual(step.Args(), want) {
		t.Fatalf("Args = %#v", step.Args())
	}
	if step.Operation() != "resize" || !reflect.DeepEqual(step.Options(), job.Options{"w": int64(3)}) {
		t.Fatalf("Operation=%q Options=%#v", step.Operation(), step.Options())
	}
}

func TestMissingCollaborator(t *testing.T) {
	app := job.NewApp()
	j, _ := app.Fetch("uid")
	if _, err := j.Apply(context.Background()); !errors.Is(err, job.ErrNoCollaborator) {
		t.Fatalf("error = %v, want ErrNoCollaborator", err)
	}
}

func TestStoreWritesAppliedContent(t *testing.T) {
	ctx := context.Background()
	app, fakes := testsupport.NewJobApp()
	fakes.Processor.Funcs["upcase"] = upcase

	j, err := app.NewJob("quiet", job.WithName("word.txt"), job.WithMeta(map[string]any{"lang": "en"}))
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	j, err = j.Process("upcase")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	uid, err := j.Store(ctx, fakes.Store)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if fakes.Processor.Count("upcase") != 1 {
		t.Fatalf("expected the pending step to run once")
	}

	fetched, err := app.Fetch(uid)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := fetched.Data(ctx)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(data) != "QUIET" {
		t.Fatalf("data = %q", data)
	}
	meta, _ := fetched.Meta(ctx)
	if meta["lang"] != "en" {
		t.Fatalf("meta = %v", meta)
	}
	if _, err := j.Store(ctx, nil); !errors.Is(err, job.ErrNoCollaborator) {
		t.Fatalf("Store(nil) = %v, want ErrNoCollaborator", err)
	}
}

// pathProcessor hands the object's own backing path back as the result.
type pathProcessor struct{}

func (pathProcessor) Process(_ context.Context, obj *content.Object, _ string, _ []any) (job.Result, error) {
	path, err := obj.Path()
	if err != nil {
		return job.Result{}, err
	}
	return job.Result{Content: content.FilePath(path)}, nil
}

func TestProcessReturningOwnPathKeepsContent(t *testing.T) {
	app, _ := testsupport.NewJobApp()
	app.Processor = pathProcessor{}
	app.TempDir = t.TempDir()
	ctx := context.Background()

	j := newJob(t, app, "payload", job.WithName("p.txt"))
	j, err := j.Process("noop")
	if err != nil {
		t.Fatal(err)
	}
	data, err := j.Data(ctx)
	if err != nil || string(data) != "payload" {
		t.Fatalf("Data = %q, %v", data, err)
	}
	if name, _ := j.Name(ctx); name != "p.txt" {
		t.Fatalf("Name = %q", name)
	}
}
