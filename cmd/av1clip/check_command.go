package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"av1clip/internal/preflight"
	"av1clip/internal/services"
	"av1clip/internal/tools"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools and cache directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cfg)
			found := tools.DiscoverVersions(cmd.Context(), cfg.Tools, logger)
			versions := map[string]string{
				"mpv":     found.MPV,
				"ffmpeg":  found.FFmpeg,
				"SVT-AV1": found.SvtAV1,
			}

			for _, line := range renderSectionHeader("Tools", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range dependencyLines(statuses, versions, colorize) {
				fmt.Fprintln(out, line)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if len(results) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Directories", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range preflightLines(results, colorize) {
					fmt.Fprintln(out, line)
				}
			}

			var missing []string
			for _, status := range statuses {
				if !status.Available && !status.Optional {
					missing = append(missing, status.Name)
				}
			}
			if len(missing) > 0 {
				return services.Wrap(services.ErrExternalTool, "check", "tools", "missing "+strings.Join(missing, ", "), nil)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "check", failed[0].Name, failed[0].Detail, nil)
			}
			return nil
		},
	}
}
