package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	consoleTimeLayout = "2006-01-02 15:04:05.000"
	// maxConsoleValue caps how much of a single value the console shows.
	// Serialized job tokens and data URIs easily run to kilobytes.
	maxConsoleValue = 160
)

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// subjectString renders a header value without quoting.
func subjectString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return formatValue(v)
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(truncate(v.String()))
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		return formatAny(v.Any())
	default:
		return quoteIfNeeded(truncate(v.String()))
	}
}

func formatAny(value any) string {
	switch x := value.(type) {
	case nil:
		return "<nil>"
	case error:
		return quoteIfNeeded(truncate(x.Error()))
	case []byte:
		return "<" + strconv.Itoa(len(x)) + " bytes>"
	case fmt.Stringer:
		return quoteIfNeeded(truncate(x.String()))
	case map[string]any, []any:
		encoded, err := json.Marshal(x)
		if err != nil {
			return quoteIfNeeded(truncate(fmt.Sprint(x)))
		}
		return truncate(string(encoded))
	default:
		return quoteIfNeeded(truncate(fmt.Sprint(x)))
	}
}

// roundDuration trims sub-millisecond noise from step timings.
func roundDuration(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(time.Millisecond)
	}
	if d >= time.Millisecond {
		return d.Round(10 * time.Microsecond)
	}
	return d
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxConsoleValue {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxConsoleValue]) + "…(+" + strconv.Itoa(len(runes)-maxConsoleValue) + ")"
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '"' || r == '=' }) {
		return strconv.Quote(s)
	}
	return s
}
