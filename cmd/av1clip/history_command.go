package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"av1clip/internal/history"
	"av1clip/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var fingerprint string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent clip runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				var (
					runs []history.Run
					err  error
				)
				if fp := strings.TrimSpace(fingerprint); fp != "" {
					runs, err = store.ForFingerprint(cmd.Context(), fp)
				} else {
					runs, err = store.List(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Only show runs for this fingerprint")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	})

	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ctx.openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return services.Wrap(services.ErrConfiguration, "history", "", "run history is disabled (set history.enabled = true)", nil)
	}
	defer store.Close()
	return fn(store)
}

func printRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		source := filepath.Base(run.SourcePath)
		if run.SourceRange != "" {
			source += " [" + run.SourceRange + "]"
		}
		cache := "miss"
		if run.CacheHit {
			cache = "hit"
		}
		rows = append(rows, []string{
			humanize.Time(run.StartedAt),
			source,
			run.State,
			cache,
			formatElapsed(run.Duration()),
			shortFingerprint(run.Fingerprint),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Started", "Source", "State", "Cache", "Duration", "Fingerprint"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
