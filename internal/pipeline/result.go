package pipeline

import (
	"time"

	"av1clip/internal/clipcache"
	"av1clip/internal/geometry"
	"av1clip/internal/history"
	"av1clip/internal/media/ffprobe"
	"av1clip/internal/stage"
)

// Result is the outcome of one run.
type Result struct {
	RunID        string
	Fingerprint  clipcache.Fingerprint
	SourcePath   string
	SourceRange  string
	ArtifactPath string
	OutputPath   string
	CacheHit     bool
	Descriptor   ffprobe.StreamDescriptor
	// AudioStreams is the number of audio streams in the intermediate.
	AudioStreams int
	Geometry     geometry.Target
	// Stages holds every collected exit status in start order.
	Stages []stage.ExitStatus
	State  State
	// Kept reports whether the intermediate remains in the cache.
	Kept       bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run reached StateSucceeded.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// FailedStages returns the statuses that did not succeed.
func (r Result) FailedStages() []stage.ExitStatus {
	var failed []stage.ExitStatus
	for _, status := range r.Stages {
		if !status.Success() {
			failed = append(failed, status)
		}
	}
	return failed
}

func (r Result) historyRecord(runErr error) history.Run {
	record := history.Run{
		RunID:       r.RunID,
		SourcePath:  r.SourcePath,
		SourceRange: r.SourceRange,
		Fingerprint: r.Fingerprint.String(),
		OutputPath:  r.OutputPath,
		State:       r.State.String(),
		CacheHit:    r.CacheHit,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if runErr != nil {
		record.ErrorMessage = runErr.Error()
	}
	for _, status := range r.Stages {
		record.Stages = append(record.Stages, history.StageRecord{
			Name:       status.Stage,
			Code:       status.Code,
			Hung:       status.Hung,
			Killed:     status.Killed,
			DurationMS: status.Duration.Milliseconds(),
		})
	}
	return record
}
