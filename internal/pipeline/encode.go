package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"av1clip/internal/logging"
	"av1clip/internal/services"
	"av1clip/internal/stage"
	"av1clip/internal/tools"
)

const (
	stageFrames = "frames"
	stageEncode = "encode"
	stageMux    = "mux"

	// reapTimeout bounds the wait for a killed stage to be reaped.
	reapTimeout = 5 * time.Second
)

type chainStage struct {
	spec   stage.Spec
	handle *stage.Handle
	tail   *stage.Tail
}

// encodeAndMux runs frames | encode | mux. All three stages are started
// before any wait, and the parent's copy of each pipe end is closed as soon
// as the child holding it exists, so end-of-stream propagates while upstream
// stages are still running.
func (r *run) encodeAndMux(ctx context.Context, versions tools.Versions) ([]stage.ExitStatus, error) {
	artifact := r.result.ArtifactPath
	encoderArgs := tools.EncoderArgs(r.req.Tuning, r.result.Descriptor, r.result.Geometry)
	chain := []*chainStage{
		{spec: stage.Spec{Name: stageFrames, Binary: r.cfg.Tools.FFmpeg, Args: tools.FramePipeArgs(artifact, r.result.Geometry)}},
		{spec: stage.Spec{Name: stageEncode, Binary: r.cfg.Tools.SvtAV1, Args: encoderArgs}},
		{spec: stage.Spec{Name: stageMux, Binary: r.cfg.Tools.FFmpeg, Args: tools.MuxArgs(artifact, r.result.OutputPath, tools.MuxMetadata{
			Source:       r.req.Source,
			Range:        r.req.RangeTag(),
			Versions:     versions,
			EncoderArgs:  encoderArgs,
			Audio:        r.result.AudioStreams > 0,
			AudioBitrate: r.req.AudioBitrate,
			Now:          r.now(),
		})}},
	}

	frames, err := stage.NewPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrStageFailure, stageFrames, "pipe", "", err)
	}
	defer frames.Close()
	encoded, err := stage.NewPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrStageFailure, stageEncode, "pipe", "", err)
	}
	defer encoded.Close()

	wiring := []struct {
		io    stage.IO
		after func()
	}{
		{stage.IO{Stdout: frames.Writer}, frames.CloseWriter},
		{stage.IO{Stdin: frames.Reader, Stdout: encoded.Writer}, func() {
			frames.CloseReader()
			encoded.CloseWriter()
		}},
		{stage.IO{Stdin: encoded.Reader}, encoded.CloseReader},
	}

	for i, cs := range chain {
		cs.tail = stage.NewTail(stderrTailBytes)
		streams := wiring[i].io
		streams.Stderr = io.MultiWriter(r.stderr, cs.tail)
		r.logger.Info("starting stage",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldStage, cs.spec.Name),
			logging.String("command", cs.spec.CommandLine()),
		)
		handle, err := stage.Start(ctx, cs.spec, streams)
		wiring[i].after()
		if err != nil {
			statuses := r.abortChain(chain[:i])
			return statuses, services.Wrap(services.ErrStageFailure, cs.spec.Name, "start", "launch "+cs.spec.Binary, err)
		}
		cs.handle = handle
	}

	statuses := r.join(ctx, chain)
	return statuses, r.classify(statuses, chain)
}

// join waits on the muxer without bound, then gives the upstream stages the
// grace period to exit. Hung stages are killed when configured to be.
func (r *run) join(ctx context.Context, chain []*chainStage) []stage.ExitStatus {
	statuses := make([]stage.ExitStatus, len(chain))
	last := len(chain) - 1
	statuses[last] = chain[last].handle.Wait(ctx, 0)

	var g errgroup.Group
	for i, cs := range chain[:last] {
		g.Go(func() error {
			status := cs.handle.Wait(ctx, r.grace)
			if status.Hung || ctx.Err() != nil {
				status = r.settle(cs, status)
			}
			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

// settle applies the hung-stage policy and reaps the process when it was
// killed.
func (r *run) settle(cs *chainStage, status stage.ExitStatus) stage.ExitStatus {
	if status.Hung && !r.cfg.Pipeline.KillHung {
		logging.WarnWithContext(r.logger, "stage still running after grace period", "stage_hung",
			logging.String(logging.FieldStage, cs.spec.Name),
			logging.Int("pid", cs.handle.Pid()),
			logging.String(logging.FieldErrorHint, "set pipeline.kill_hung to terminate hung stages"),
		)
		return status
	}
	if err := cs.handle.Kill(); err != nil {
		r.logger.Warn("failed to kill stage",
			logging.String(logging.FieldStage, cs.spec.Name),
			logging.Error(err),
		)
	}
	reaped := cs.handle.Wait(context.Background(), reapTimeout)
	if status.Hung {
		reaped.Hung = true
		reaped.Err = errors.Join(stage.ErrHung, reaped.Err)
	}
	reaped.Killed = true
	return reaped
}

// abortChain kills and reaps stages already started when a later one fails to
// launch.
func (r *run) abortChain(started []*chainStage) []stage.ExitStatus {
	statuses := make([]stage.ExitStatus, 0, len(started))
	for _, cs := range started {
		_ = cs.handle.Kill()
		status := cs.handle.Wait(context.Background(), reapTimeout)
		statuses = append(statuses, status)
	}
	return statuses
}

// classify maps the collected statuses to the run outcome. Any failed or hung
// stage fails the run; all of them are named in the error.
func (r *run) classify(statuses []stage.ExitStatus, chain []*chainStage) error {
	var (
		failures    []string
		failedStage string
		hung        bool
	)
	for i, status := range statuses {
		if status.Success() {
			r.logger.Info("stage complete",
				logging.String(logging.FieldEventType, "stage_complete"),
				logging.String(logging.FieldStage, status.Stage),
				logging.Duration("elapsed", status.Duration),
			)
			continue
		}
		if failedStage == "" {
			failedStage = status.Stage
		}
		hung = hung || status.Hung
		failures = append(failures, describe(status, chain[i].tail))
		r.logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldStage, status.Stage),
			logging.Int("exit_code", status.Code),
			logging.Bool("hung", status.Hung),
			logging.Bool("killed", status.Killed),
			logging.String("stderr_tail", chain[i].tail.LastLine()),
		)
	}
	if len(failures) == 0 {
		return nil
	}
	var cause error
	if hung {
		cause = services.ErrTimeout
	}
	return services.Wrap(services.ErrStageFailure, failedStage, "", strings.Join(failures, "; "), cause)
}
