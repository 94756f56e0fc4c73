package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mediajob/internal/jobcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the job output cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))

	return cacheCmd
}

func cacheManager(ctx *commandContext) (*jobcache.Manager, string, error) {
	rt, err := ctx.ensureRuntime()
	if err != nil {
		return nil, "", err
	}
	if rt.Cache == nil {
		return nil, "Job cache is disabled (set cache.enabled = true in config)", nil
	}
	return rt.Cache, "", nil
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, warn, err := cacheManager(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || manager == nil {
				return err
			}

			stats, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:   %s / %s\n", humanBytes(stats.TotalBytes), humanBytes(stats.MaxBytes))
			fmt.Fprintf(out, "Disk:   %s free (%.1f%%)\n", humanBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)
			printCacheEntries(out, stats.EntrySummaries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output stats as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []jobcache.EntrySummary) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached jobs: none")
		return
	}
	fmt.Fprintln(out, cacheTable(entries))
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune cached output to fit the size budget and free-space floor",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, warn, err := cacheManager(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || manager == nil {
				return err
			}
			before, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if err := manager.Prune(cmd.Context(), ""); err != nil {
				return err
			}
			after, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries (%s freed)\n",
				before.Entries-after.Entries, humanBytes(before.TotalBytes-after.TotalBytes))
			return nil
		},
	}
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <entry|key>",
		Short: "Show one cached entry by number (from stats) or key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, warn, err := cacheManager(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || manager == nil {
				return err
			}
			entry, err := jobcache.ResolveEntryArg(cmd.Context(), manager, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entry)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key:       %s\n", entry.Key)
			fmt.Fprintf(out, "Name:      %s\n", entry.Attrs.Name)
			fmt.Fprintf(out, "Format:    %s\n", entry.Attrs.Format)
			fmt.Fprintf(out, "Mime type: %s\n", entry.Attrs.MimeType)
			fmt.Fprintf(out, "Size:      %s\n", humanBytes(entry.SizeBytes))
			fmt.Fprintf(out, "Data:      %s\n", entry.DataPath())
			fmt.Fprintf(out, "Steps:     %s\n", entry.Attrs.UniqueString)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the entry as JSON")
	return cmd
}
