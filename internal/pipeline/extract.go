package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"av1clip/internal/clipcache"
	"av1clip/internal/logging"
	"av1clip/internal/services"
	"av1clip/internal/stage"
	"av1clip/internal/tools"
)

const stageExtract = "extract"

// extract runs mpv into a per-run processing file and promotes it to the
// stable artifact name only after a zero exit.
func (r *run) extract(ctx context.Context) error {
	dir := r.cache.Dir(r.req.Source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrStageFailure, stageExtract, "prepare", "create cache directory", err)
	}
	processing := r.cache.ProcessingPath(r.result.Fingerprint, r.req.Source, r.result.RunID)
	spec := stage.Spec{
		Name:   stageExtract,
		Binary: r.cfg.Tools.MPV,
		Args:   tools.ExtractionArgs(r.req, processing),
	}

	stageCtx := services.WithStage(ctx, stageExtract)
	logger := logging.WithContext(stageCtx, r.Coordinator.logger)
	logger.Info("extracting intermediate with burned subtitles and opus audio",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("command", spec.CommandLine()),
	)

	tail := stage.NewTail(stderrTailBytes)
	handle, err := stage.Start(ctx, spec, stage.IO{
		Stdout: r.stdout,
		Stderr: io.MultiWriter(r.stderr, tail),
	})
	if err != nil {
		return services.Wrap(services.ErrStageFailure, stageExtract, "start", "launch mpv", err)
	}
	status := handle.Wait(ctx, 0)
	if ctx.Err() != nil {
		// The context kill is asynchronous; let mpv exit before removing its file.
		<-handle.Done()
	}
	r.result.Stages = append(r.result.Stages, status)

	if !status.Success() {
		r.discardProcessing(ctx, processing)
		return services.Wrap(services.ErrStageFailure, stageExtract, "mpv", describe(status, tail), status.Err)
	}
	if !clipcache.Exists(processing) {
		return services.Wrap(services.ErrStageFailure, stageExtract, "mpv", "exited cleanly without writing "+processing, nil)
	}
	if err := r.cache.Commit(ctx, processing, r.result.ArtifactPath); err != nil {
		r.discardProcessing(ctx, processing)
		return services.Wrap(services.ErrStageFailure, stageExtract, "commit", "promote intermediate", err)
	}
	logger.Info("intermediate ready",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("artifact", r.result.ArtifactPath),
		logging.Duration("elapsed", status.Duration),
	)
	return nil
}

func (r *run) discardProcessing(ctx context.Context, processing string) {
	if err := r.cache.Discard(ctx, processing); err != nil {
		r.Coordinator.logger.Warn("failed to remove processing file",
			logging.String("artifact", processing),
			logging.Error(err),
		)
	}
}

// describe renders a failed status with the stage's last stderr line.
func describe(status stage.ExitStatus, tail *stage.Tail) string {
	msg := status.String()
	if tail != nil {
		if line := tail.LastLine(); line != "" {
			msg = fmt.Sprintf("%s (%s)", msg, line)
		}
	}
	return msg
}
