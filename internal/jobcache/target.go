package jobcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResolveEntryArg resolves either a 1-based entry number from Stats (newest
// first) or a full cache key into an entry.
func ResolveEntryArg(ctx context.Context, manager *Manager, arg string) (Entry, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Entry{}, errors.New("cache entry number or key is required")
	}
	if manager == nil {
		return Entry{}, errors.New("jobcache: cache disabled")
	}

	key := strings.ToLower(arg)
	if entryNum, err := strconv.Atoi(arg); err == nil && !validKey(key) {
		if entryNum < 1 {
			return Entry{}, fmt.Errorf("invalid cache entry number: %d", entryNum)
		}
		stats, err := manager.Stats(ctx)
		if err != nil {
			return Entry{}, err
		}
		if entryNum > len(stats.EntrySummaries) {
			return Entry{}, fmt.Errorf("cache entry %d out of range (only %d entries exist)", entryNum, len(stats.EntrySummaries))
		}
		key = stats.EntrySummaries[entryNum-1].Key
	}

	entry, ok, err := manager.Lookup(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("no cache entry for %q", arg)
	}
	return entry, nil
}
