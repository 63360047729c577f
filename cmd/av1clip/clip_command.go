package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"av1clip/internal/clip"
	"av1clip/internal/config"
	"av1clip/internal/logging"
	"av1clip/internal/pipeline"
	"av1clip/internal/preflight"
	"av1clip/internal/services"
)

type clipOptions struct {
	start        string
	end          string
	video        string
	audio        string
	subtitle     string
	width        int
	height       int
	audioBitrate string
	crf          int
	preset       int
	tileRows     int
	tileColumns  int
	filmGrain    int
	scd          bool
	output       string
	keep         bool
	discard      bool
	toolOutput   bool
	skipChecks   bool
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	opts := &clipOptions{}

	cmd := &cobra.Command{
		Use:   "clip <input>",
		Short: "Extract, encode, and mux a clip of the input video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			req, err := opts.request(cmd, cfg, args[0])
			if err != nil {
				return err
			}

			// Input and setting errors outrank environment problems.
			if err := req.Validate(); err != nil {
				return err
			}
			if !opts.skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					return services.Wrap(services.ErrConfiguration, "preflight", failed[0].Name, failed[0].Detail, nil)
				}
			}

			store, err := ctx.openHistory(cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			options := []pipeline.Option{
				pipeline.WithLogger(logger),
				pipeline.WithDisposition(opts.disposition(cfg)),
				pipeline.WithHistory(store),
			}
			if opts.toolOutput {
				options = append(options, pipeline.WithConsole(os.Stderr, cmd.ErrOrStderr()))
			}

			coordinator := pipeline.New(cfg, options...)
			result, runErr := coordinator.Run(cmd.Context(), req)
			if result.Fingerprint != "" {
				printRunSummary(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
			}
			if runErr != nil {
				logger.Debug("clip run failed", logging.Error(runErr))
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.start, "start", "s", "", "Clip start time, passed to mpv --start")
	flags.StringVarP(&opts.end, "end", "e", "", "Clip end time, passed to mpv --end")
	flags.StringVar(&opts.video, "vid", "auto", "Video track id, auto, or no")
	flags.StringVar(&opts.audio, "aid", "auto", "Audio track id, auto, or no")
	flags.StringVar(&opts.subtitle, "sid", "auto", "Subtitle track id to burn in, auto, or no")
	flags.IntVar(&opts.width, "width", 0, "Output width; height follows the display aspect ratio")
	flags.IntVar(&opts.height, "height", 0, "Output height; width follows the display aspect ratio")
	flags.StringVarP(&opts.audioBitrate, "audio-bitrate", "b", "", "Opus bitrate such as 128k (default encode.audio_bitrate)")
	flags.IntVar(&opts.crf, "crf", 0, "SVT-AV1 constant rate factor, 0-63")
	flags.IntVar(&opts.preset, "preset", 0, "SVT-AV1 preset, 0-8")
	flags.IntVar(&opts.tileRows, "tile-rows", 0, "log2 tile rows, 0-6")
	flags.IntVar(&opts.tileColumns, "tile-columns", 0, "log2 tile columns, 0-4")
	flags.IntVarP(&opts.filmGrain, "film-grain", "g", 0, "Film grain synthesis level, 0-50")
	flags.BoolVar(&opts.scd, "scd", false, "Enable scene change detection")
	flags.StringVarP(&opts.output, "output", "o", "", "Destination path (default: beside the input)")
	flags.BoolVar(&opts.keep, "keep", false, "Keep the cached intermediate after a successful run")
	flags.BoolVar(&opts.discard, "discard", false, "Delete the cached intermediate after a successful run")
	flags.BoolVar(&opts.toolOutput, "tool-output", false, "Show mpv, ffmpeg, and SvtAv1EncApp output on stderr")
	flags.BoolVar(&opts.skipChecks, "skip-checks", false, "Skip cache directory preflight checks")
	cmd.MarkFlagsMutuallyExclusive("keep", "discard")

	return cmd
}

// request builds the clip request from flags, falling back to the [encode]
// defaults for anything not given on the command line.
func (o *clipOptions) request(cmd *cobra.Command, cfg *config.Config, input string) (clip.Request, error) {
	var req clip.Request
	tracks := []struct {
		flag  string
		value string
		dst   *clip.Track
	}{
		{"vid", o.video, &req.Video},
		{"aid", o.audio, &req.Audio},
		{"sid", o.subtitle, &req.Subtitle},
	}
	for _, track := range tracks {
		parsed, err := clip.ParseTrack(track.value)
		if err != nil {
			return clip.Request{}, services.Wrap(services.ErrConfiguration, "request", track.flag, "", err)
		}
		*track.dst = parsed
	}

	bitrate := strings.TrimSpace(o.audioBitrate)
	if bitrate == "" {
		bitrate = cfg.Encode.AudioBitrate
	}
	bps, err := clip.ParseAudioBitrate(bitrate)
	if err != nil {
		return clip.Request{}, err
	}

	tuning := cfg.DefaultTuning()
	flags := cmd.Flags()
	if flags.Changed("crf") {
		tuning.CRF = o.crf
	}
	if flags.Changed("preset") {
		tuning.Preset = o.preset
	}
	if flags.Changed("tile-rows") {
		tuning.TileRows = o.tileRows
	}
	if flags.Changed("tile-columns") {
		tuning.TileColumns = o.tileColumns
	}
	if flags.Changed("film-grain") {
		tuning.FilmGrain = o.filmGrain
	}
	if flags.Changed("scd") {
		tuning.SceneChangeDetection = o.scd
	}

	output := strings.TrimSpace(o.output)
	if output != "" {
		expanded, err := config.ExpandPath(output)
		if err != nil {
			return clip.Request{}, services.Wrap(services.ErrConfiguration, "request", "output", "", err)
		}
		output = expanded
	}

	req.Source = input
	req.Start = strings.TrimSpace(o.start)
	req.End = strings.TrimSpace(o.end)
	req.Width = o.width
	req.Height = o.height
	req.AudioBitrate = bps
	req.Tuning = tuning
	req.Output = output
	return req, nil
}

func (o *clipOptions) disposition(cfg *config.Config) pipeline.Disposition {
	keep := cfg.Cache.KeepIntermediate
	switch {
	case o.keep:
		keep = true
	case o.discard:
		keep = false
	}
	return func(pipeline.Result) bool { return keep }
}

func printRunSummary(out io.Writer, result pipeline.Result, colorize bool) {
	kind := statusOK
	message := result.OutputPath
	if !result.Succeeded() {
		kind = statusError
		message = result.State.String()
	}
	fmt.Fprintln(out, renderStatusLine("Clip", kind, message, colorize))
	fmt.Fprintln(out, renderStatusLine("Fingerprint", statusInfo, result.Fingerprint.String(), colorize))
	intermediate := "discarded"
	if result.Kept {
		intermediate = result.ArtifactPath
	}
	if result.CacheHit {
		intermediate += " (cache hit)"
	}
	fmt.Fprintln(out, renderStatusLine("Intermediate", statusInfo, intermediate, colorize))
	if result.Geometry.Width > 0 {
		fmt.Fprintln(out, renderStatusLine("Geometry", statusInfo,
			fmt.Sprintf("%dx%d scale=%s", result.Geometry.Width, result.Geometry.Height, yesNo(result.Geometry.NeedsScaling)), colorize))
	}
	if len(result.Stages) > 0 {
		fmt.Fprintln(out, stageTable(result))
	}
}
