package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	cases := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"plain string", slog.StringValue("gz"), "gz"},
		{"empty string", slog.StringValue(""), `""`},
		{"spaced string", slog.StringValue("two words"), `"two words"`},
		{"int", slog.Int64Value(-3), "-3"},
		{"float", slog.Float64Value(0.25), "0.25"},
		{"bytes", slog.AnyValue([]byte("hello")), "<5 bytes>"},
		{"error", slog.AnyValue(errors.New("boom")), "boom"},
		{"meta", slog.AnyValue(map[string]any{"a": 1}), `{"a":1}`},
		{"slow duration", slog.DurationValue(1500*time.Millisecond + 123*time.Microsecond), "1.5s"},
		{"nil", slog.AnyValue(nil), "<nil>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatValue(tc.value); got != tc.want {
				t.Fatalf("formatValue = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatValueTruncatesLongTokens(t *testing.T) {
	token := strings.Repeat("A", maxConsoleValue+40)
	got := formatValue(slog.StringValue(token))
	if !strings.HasSuffix(got, "…(+40)") {
		t.Fatalf("expected truncation marker, got %q", got[len(got)-12:])
	}
	if !strings.HasPrefix(got, strings.Repeat("A", maxConsoleValue)) {
		t.Fatal("expected the head of the value to be kept")
	}
}

func TestSubjectStringDoesNotQuote(t *testing.T) {
	if got := subjectString(slog.StringValue("2024/01/02/a b.txt")); got != "2024/01/02/a b.txt" {
		t.Fatalf("subjectString = %q", got)
	}
}
