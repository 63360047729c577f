package preflight

import (
	"context"

	"av1clip/internal/config"
)

// MinCacheFreeBytes is the free space below which the cache check fails.
// Lossless intermediates run to several gigabytes for a few minutes of 1080p.
const MinCacheFreeBytes = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks applicable to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if !cfg.Cache.BesideSource {
		results = append(results,
			CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
			CheckFreeSpace(ctx, "Cache free space", cfg.Paths.CacheDir, MinCacheFreeBytes),
		)
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
