package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"av1clip/internal/clip"
	"av1clip/internal/clipcache"
	"av1clip/internal/config"
	"av1clip/internal/geometry"
	"av1clip/internal/history"
	"av1clip/internal/logging"
	"av1clip/internal/media/ffprobe"
	"av1clip/internal/services"
	"av1clip/internal/tools"
)

// stderrTailBytes is how much of each stage's stderr is kept for failure messages.
const stderrTailBytes = 4096

// Disposition decides, after a successful run, whether the intermediate stays
// in the cache.
type Disposition func(Result) bool

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithDisposition overrides cache.keep_intermediate with a caller decision.
func WithDisposition(fn Disposition) Option {
	return func(c *Coordinator) { c.disposition = fn }
}

// WithClock replaces time.Now for timestamps and output metadata.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithConsole forwards tool output. stdout receives mpv's terminal status and
// stderr receives every stage's diagnostics. Both default to discarded.
func WithConsole(stdout *os.File, stderr io.Writer) Option {
	return func(c *Coordinator) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithHistory records every terminal run in store.
func WithHistory(store *history.Store) Option {
	return func(c *Coordinator) { c.history = store }
}

// WithGracePeriod overrides pipeline.grace_period_seconds.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Coordinator) { c.grace = d }
}

// WithObserver is called on every state transition.
func WithObserver(fn func(from, to State)) Option {
	return func(c *Coordinator) { c.observe = fn }
}

// Coordinator runs clip requests against one configuration. It holds no
// per-run state and may be reused.
type Coordinator struct {
	cfg         *config.Config
	cache       *clipcache.Manager
	base        *slog.Logger
	logger      *slog.Logger
	disposition Disposition
	now         func() time.Time
	stdout      *os.File
	stderr      io.Writer
	history     *history.Store
	grace       time.Duration
	observe     func(from, to State)
}

// New builds a coordinator from an explicit configuration.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		now:    time.Now,
		stderr: io.Discard,
		grace:  cfg.GracePeriod(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base = c.logger
	if c.base == nil {
		c.base = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.base, "pipeline")
	c.cache = clipcache.NewManager(cfg, c.base)
	if c.disposition == nil {
		keep := cfg.Cache.KeepIntermediate
		c.disposition = func(Result) bool { return keep }
	}
	if c.stderr == nil {
		c.stderr = io.Discard
	}
	return c
}

// Cache exposes the coordinator's cache manager.
func (c *Coordinator) Cache() *clipcache.Manager {
	return c.cache
}

// run carries the mutable state of one invocation.
type run struct {
	*Coordinator
	req    clip.Request
	result Result
	logger *slog.Logger
}

// Run executes req to a terminal state. Request validation happens before any
// process starts. The returned Result is populated as far as the run got,
// even on error.
func (c *Coordinator) Run(ctx context.Context, req clip.Request) (Result, error) {
	r := &run{Coordinator: c, req: req}
	r.result = Result{
		RunID:       uuid.NewString(),
		SourcePath:  req.AbsSource(),
		SourceRange: req.SourceRange(),
		OutputPath:  req.OutputPath(),
		State:       StateIdle,
		StartedAt:   c.now(),
	}
	if err := req.Validate(); err != nil {
		return r.finish(ctx, err)
	}

	fp := clipcache.Compute(req)
	r.result.Fingerprint = fp
	r.result.ArtifactPath = c.cache.ArtifactPath(fp, req.Source)
	ctx = services.WithRunID(ctx, r.result.RunID)
	ctx = services.WithFingerprint(ctx, fp.String())
	r.logger = logging.WithContext(ctx, c.logger)

	r.logger.Info("clip run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source_file", r.result.SourcePath),
		logging.String("source_range", req.RangeTag()),
		logging.String("output", r.result.OutputPath),
	)

	versions := make(chan tools.Versions, 1)
	go func() {
		versions <- tools.DiscoverVersions(ctx, c.cfg.Tools, c.base)
	}()

	if err := r.ensureArtifact(ctx); err != nil {
		return r.finish(ctx, err)
	}

	r.transition(StateProbing)
	desc, err := r.probe(ctx)
	if err != nil {
		return r.finish(ctx, err)
	}
	r.result.Descriptor = desc

	r.transition(StateResolving)
	r.result.Geometry = geometry.Resolve(desc, req.Width, req.Height)
	r.logger.Info("resolved output geometry",
		logging.Int("width", r.result.Geometry.Width),
		logging.Int("height", r.result.Geometry.Height),
		logging.Bool("scale", r.result.Geometry.NeedsScaling),
		logging.String("frame_rate", desc.FrameRate.String()),
		logging.Int("bit_depth", desc.BitDepth),
	)

	var found tools.Versions
	select {
	case found = <-versions:
	case <-ctx.Done():
		return r.finish(ctx, services.Wrap(services.ErrStageFailure, "pipeline", "versions", "cancelled", ctx.Err()))
	}

	r.transition(StateEncodingAndMuxing)
	statuses, err := r.encodeAndMux(ctx, found)
	r.result.Stages = append(r.result.Stages, statuses...)
	return r.finish(ctx, err)
}

// ensureArtifact leaves a committed intermediate at the stable cache path,
// running extraction only when none exists.
func (r *run) ensureArtifact(ctx context.Context) error {
	artifact := r.result.ArtifactPath
	if clipcache.Exists(artifact) {
		r.cacheHit()
		return nil
	}

	release, err := r.cache.Lock(ctx, r.result.Fingerprint, r.req.Source)
	if err != nil {
		return services.Wrap(services.ErrStageFailure, "extract", "lock", "acquire cache lock", err)
	}
	defer release()

	// Another run may have produced the artifact while this one waited.
	if clipcache.Exists(artifact) {
		r.cacheHit()
		return nil
	}

	r.transition(StateExtracting)
	return r.extract(ctx)
}

func (r *run) cacheHit() {
	r.result.CacheHit = true
	r.logger.Info("reusing cached intermediate",
		logging.String(logging.FieldEventType, "cache_hit"),
		logging.String("artifact", r.result.ArtifactPath),
	)
}

func (r *run) probe(ctx context.Context) (ffprobe.StreamDescriptor, error) {
	probed, err := ffprobe.Inspect(ctx, r.cfg.Tools.FFprobe, r.result.ArtifactPath)
	if err != nil {
		return ffprobe.StreamDescriptor{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "inspect intermediate", err)
	}
	desc, err := probed.VideoDescriptor()
	if err != nil {
		return ffprobe.StreamDescriptor{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "read video stream", err)
	}
	r.result.AudioStreams = probed.AudioStreamCount()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "probe_complete"),
		logging.Int("video_streams", probed.VideoStreamCount()),
		logging.Int("audio_streams", r.result.AudioStreams),
		logging.Int64("size_bytes", probed.SizeBytes()),
	}
	if duration := probed.DurationSeconds(); duration > 0 {
		attrs = append(attrs, logging.Float64("duration_seconds", duration))
	}
	r.logger.Info("probed intermediate", logging.Args(attrs...)...)
	return desc, nil
}

func (r *run) transition(to State) {
	from := r.result.State
	r.result.State = to
	if r.logger != nil {
		r.logger.Debug("pipeline state",
			logging.String(logging.FieldEventType, "state_transition"),
			logging.String("from", from.String()),
			logging.String("to", to.String()),
		)
	}
	if r.observe != nil {
		r.observe(from, to)
	}
}

// finish moves the run to its terminal state, applies the artifact
// disposition, and records history.
func (r *run) finish(ctx context.Context, runErr error) (Result, error) {
	logger := r.logger
	if logger == nil {
		logger = r.Coordinator.logger
	}
	if runErr != nil {
		r.transition(StateFailed)
		r.removePartialOutput(ctx)
		r.result.Kept = clipcache.Exists(r.result.ArtifactPath)
		details := services.Details(runErr)
		logger.Error("clip run failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.String("error_kind", details.Kind),
			logging.String("error_message", details.Message),
			logging.String(logging.FieldErrorHint, failureHint(runErr, r.result)),
		)
	} else {
		r.transition(StateSucceeded)
		r.result.Kept = true
		if !r.disposition(r.result) {
			if err := r.cache.Discard(ctx, r.result.ArtifactPath); err != nil {
				logging.WarnWithContext(logger, "failed to remove intermediate", "cache_discard_failed",
					logging.String("artifact", r.result.ArtifactPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "remove it with 'av1clip cache remove'"),
				)
			} else {
				r.result.Kept = false
			}
		}
	}
	r.result.FinishedAt = r.now()
	if r.result.State == StateSucceeded {
		logger.Info("clip run complete",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("output", r.result.OutputPath),
			logging.Bool("cache_hit", r.result.CacheHit),
			logging.Bool("intermediate_kept", r.result.Kept),
			logging.Duration("elapsed", r.result.FinishedAt.Sub(r.result.StartedAt)),
		)
	}
	r.recordHistory(ctx, runErr)
	return r.result, runErr
}

// removePartialOutput deletes a destination the muxer started but did not
// finish. The destination is only touched once the muxer has started.
func (r *run) removePartialOutput(ctx context.Context) {
	started := false
	for _, status := range r.result.Stages {
		if status.Stage == stageMux {
			started = true
		}
	}
	if !started {
		return
	}
	if err := os.Remove(r.result.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.Coordinator.logger.WarnContext(ctx, "failed to remove partial output",
			logging.String("output", r.result.OutputPath),
			logging.Error(err),
		)
	}
}

func (r *run) recordHistory(ctx context.Context, runErr error) {
	if r.history == nil || r.result.Fingerprint == "" {
		return
	}
	if _, err := r.history.Record(context.WithoutCancel(ctx), r.result.historyRecord(runErr)); err != nil {
		r.Coordinator.logger.Warn("failed to record run history",
			logging.String("run_id", r.result.RunID),
			logging.Error(err),
		)
	}
}

func failureHint(err error, result Result) string {
	switch {
	case errors.Is(err, services.ErrInput):
		return "check the source path"
	case errors.Is(err, services.ErrConfiguration):
		return "adjust the encode settings"
	case errors.Is(err, services.ErrTimeout):
		return fmt.Sprintf("a stage kept running after the muxer exited; raise pipeline.grace_period_seconds or inspect %s", result.ArtifactPath)
	case result.Kept:
		return "the intermediate is cached; rerun with new settings to skip extraction"
	default:
		return "rerun with --log-level debug for tool output"
	}
}
