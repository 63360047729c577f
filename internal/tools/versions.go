package tools

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"av1clip/internal/config"
	"av1clip/internal/deps"
	"av1clip/internal/logging"
)

// Versions holds the tool versions recorded in the output comment.
type Versions struct {
	MPV    string
	FFmpeg string
	SvtAV1 string
}

// DiscoverVersions queries mpv, ffmpeg, and SvtAv1EncApp concurrently. A tool
// whose version cannot be read is reported as "unknown" and logged; discovery
// never fails the run.
func DiscoverVersions(ctx context.Context, binaries config.Tools, logger *slog.Logger) Versions {
	logger = logging.NewComponentLogger(logger, "tools")
	reqs := deps.Requirements(binaries)
	byName := make(map[string]deps.Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}

	out := Versions{}
	targets := []struct {
		name string
		dest *string
	}{
		{"mpv", &out.MPV},
		{"ffmpeg", &out.FFmpeg},
		{"SVT-AV1", &out.SvtAV1},
	}
	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			version, err := deps.Version(ctx, byName[target.name])
			if err != nil {
				logger.Debug("tool version unavailable",
					logging.String("tool", target.name),
					logging.Error(err),
				)
			}
			*target.dest = version
			return nil
		})
	}
	_ = g.Wait()
	return out
}
