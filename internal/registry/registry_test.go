package registry

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"mediajob/internal/content"
	"mediajob/internal/job"
)

func TestProcessorsDispatch(t *testing.T) {
	procs := NewProcessors()
	procs.Add("echo", func(_ context.Context, obj *content.Object, args ...any) (job.Result, error) {
		data, err := obj.Bytes()
		if err != nil {
			return job.Result{}, err
		}
		return job.Result{Content: string(data) + args[0].(string)}, nil
	})

	res, err := procs.Process(context.Background(), content.Must("a"), "echo", []any{"b"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Content != "ab" {
		t.Fatalf("Content = %v", res.Content)
	}

	_, err = procs.Process(context.Background(), content.Must("a"), "missing", nil)
	var unknown *UnknownFunctionError
	if !errors.As(err, &unknown) || unknown.Kind != "processor" || unknown.Name != "missing" {
		t.Fatalf("error = %v, want UnknownFunctionError", err)
	}
	if !errors.Is(err, ErrUnknownFunction) {
		t.Fatal("UnknownFunctionError should match ErrUnknownFunction")
	}
}

func TestEncodersDefault(t *testing.T) {
	encs := NewEncoders()
	ctx := context.Background()
	if _, err := encs.Encode(ctx, content.Must("x"), "gif", nil); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("error = %v, want ErrUnknownFunction", err)
	}
	encs.SetDefault(func(_ context.Context, _ *content.Object, format string, _ ...any) (job.Result, error) {
		return job.Result{Content: "default:" + format}, nil
	})
	encs.Add("png", func(context.Context, *content.Object, string, ...any) (job.Result, error) {
		return job.Result{Content: "png"}, nil
	})
	if res, _ := encs.Encode(ctx, content.Must("x"), "gif", nil); res.Content != "default:gif" {
		t.Fatalf("Content = %v", res.Content)
	}
	if res, _ := encs.Encode(ctx, content.Must("x"), "png", nil); res.Content != "png" {
		t.Fatalf("Content = %v", res.Content)
	}
}

func TestNamesAndDelete(t *testing.T) {
	gens := NewGenerators()
	noop := func(context.Context, ...any) (job.Result, error) { return job.Result{}, nil }
	gens.Add("b", noop)
	gens.Add("a", noop)
	if got := gens.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Names = %v", got)
	}
	gens.Delete("a")
	if gens.Has("a") || !gens.Has("b") {
		t.Fatalf("Names after delete = %v", gens.Names())
	}
}

func TestConcurrentRegistration(t *testing.T) {
	analysers := NewAnalysers()
	fn := func(context.Context, *content.Object, ...any) (any, error) { return 1, nil }
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			analysers.Add(name, fn)
			analysers.Lookup(name)
		}(i)
	}
	wg.Wait()
	if n := len(analysers.Names()); n != 16 {
		t.Fatalf("registered %d analysers, want 16", n)
	}
}

func TestBindDrivesJobs(t *testing.T) {
	reg := New()
	reg.Processors.Add("double", func(_ context.Context, obj *content.Object, _ ...any) (job.Result, error) {
		data, err := obj.Bytes()
		if err != nil {
			return job.Result{}, err
		}
		return job.Result{Content: string(data) + string(data)}, nil
	})
	reg.Analysers.Add("len", func(_ context.Context, obj *content.Object, _ ...any) (any, error) {
		return obj.Size()
	})
	app := job.NewApp()
	reg.Bind(app)

	j, err := app.NewJob("ab")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if err := j.AddProcess("double"); err != nil {
		t.Fatal(err)
	}
	got, err := j.Analyse(context.Background(), "len")
	if err != nil || got != int64(4) {
		t.Fatalf("Analyse = %v, %v", got, err)
	}
}
