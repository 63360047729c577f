package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"av1clip/internal/clipcache"
	"av1clip/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached intermediates",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached intermediates",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cacheManager(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			stats, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s\n", manager.Root())
			fmt.Fprintf(out, "Entries: %d (%d in progress)\n", stats.Entries, stats.Orphans)
			fmt.Fprintf(out, "Size:    %s\n", humanize.IBytes(uint64(max(stats.TotalBytes, 0))))
			printCacheEntries(out, stats.Summaries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []clipcache.EntrySummary) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached clips: none")
		return
	}
	const stampLayout = "2006-01-02 15:04"
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		kind := "ready"
		if entry.InProgress {
			kind = "processing"
		}
		updated := "unknown"
		if !entry.ModifiedAt.IsZero() {
			updated = fmt.Sprintf("%s (%s)", entry.ModifiedAt.Local().Format(stampLayout), humanize.Time(entry.ModifiedAt))
		}
		rows = append(rows, []string{
			entry.Fingerprint.String(),
			kind,
			humanize.IBytes(uint64(max(entry.SizeBytes, 0))),
			updated,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Fingerprint", "State", "Size", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <fingerprint-prefix>",
		Aliases: []string{"rm"},
		Short:   "Remove cached intermediates by fingerprint prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cacheManager(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			removed, err := manager.Remove(cmd.Context(), args[0])
			if err != nil {
				return services.Wrap(services.ErrInput, "cache", "remove", args[0], err)
			}
			if removed == 0 {
				return services.Wrap(services.ErrInput, "cache", "remove", fmt.Sprintf("no cache entry matches %q", args[0]), nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache file(s)\n", removed)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached intermediate",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cacheManager(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			before, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := manager.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache file(s), freed %s\n", removed, humanize.IBytes(uint64(max(before.TotalBytes, 0))))
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove processing files left by interrupted extractions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager, err := cacheManager(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			age := cfg.OrphanMaxAge()
			if cmd.Flags().Changed("max-age") {
				age = maxAge
			}
			removed, err := manager.PruneOrphans(cmd.Context(), age)
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orphaned processing files")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d orphaned processing file(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Minimum age of processing files to prune (default cache.orphan_max_age_hours)")
	return cmd
}

// cacheManager builds a manager over cache_dir. With beside_source enabled
// intermediates live next to their sources and only cache_dir is inspected.
func cacheManager(ctx *commandContext, warn io.Writer) (*clipcache.Manager, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.BesideSource {
		fmt.Fprintln(warn, "cache.beside_source is enabled; only intermediates in cache_dir are listed")
	}
	return clipcache.NewManager(cfg, logger), nil
}
