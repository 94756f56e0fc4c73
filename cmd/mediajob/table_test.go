package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"mediajob/internal/jobcache"
)

func TestStepTable(t *testing.T) {
	views := []stepView{
		{Index: 1, Step: "generate", Abbreviation: "g", Args: []any{"plasma"}},
		{Index: 2, Step: "encode", Abbreviation: "e", Args: []any{strings.Repeat("x", 200)}},
	}

	plain := stepTable(views, false)
	requireContains(t, plain, "generate")
	requireContains(t, plain, "2 steps")
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("plain table contains escape codes:\n%s", plain)
	}
	if strings.Contains(plain, strings.Repeat("x", maxArgsWidth+1)) {
		t.Fatalf("args column not trimmed:\n%s", plain)
	}

	text.EnableColors()
	colored := stepTable(views, true)
	if !strings.Contains(colored, "\x1b[") {
		t.Fatalf("colored table has no escape codes:\n%s", colored)
	}
}

func TestCacheTable(t *testing.T) {
	entries := []jobcache.EntrySummary{
		{Key: strings.Repeat("a", 64), Name: "one.png", Format: "png", SizeBytes: 1024, ModifiedAt: time.Now()},
		{Key: "short", SizeBytes: 2048},
	}
	out := cacheTable(entries)
	requireContains(t, out, "one.png")
	requireContains(t, out, "(unnamed)")
	requireContains(t, out, "unknown")
	requireContains(t, out, strings.Repeat("a", cacheKeyWidth))
	requireContains(t, out, humanBytes(3072))
	if strings.Contains(out, strings.Repeat("a", cacheKeyWidth+1)) {
		t.Fatalf("key not shortened:\n%s", out)
	}
}
