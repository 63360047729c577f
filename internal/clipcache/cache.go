package clipcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"av1clip/internal/config"
	"av1clip/internal/logging"
)

const (
	artifactPrefix   = "av1clip-"
	artifactSuffix   = "-temp.mkv"
	processingSuffix = ".processing.mkv"
	lockSuffix       = ".lock"
	lockRetryDelay   = 250 * time.Millisecond
)

// Manager resolves artifact locations and maintains the cache directory.
type Manager struct {
	root         string
	besideSource bool
	lockEnabled  bool
	logger       *slog.Logger
	now          func() time.Time
}

// EntrySummary describes one file in the cache directory.
type EntrySummary struct {
	Path        string      `json:"path"`
	Fingerprint Fingerprint `json:"fingerprint"`
	SizeBytes   int64       `json:"size_bytes"`
	ModifiedAt  time.Time   `json:"modified_at"`
	// InProgress marks a processing file left by a running or crashed extraction.
	InProgress bool `json:"in_progress"`
}

// Stats summarises cache usage.
type Stats struct {
	Entries    int            `json:"entries"`
	Orphans    int            `json:"orphans"`
	TotalBytes int64          `json:"total_bytes"`
	Summaries  []EntrySummary `json:"summaries"`
}

// NewManager builds a cache manager from configuration.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	m := &Manager{now: time.Now}
	if cfg != nil {
		m.root = strings.TrimSpace(cfg.Paths.CacheDir)
		m.besideSource = cfg.Cache.BesideSource
		m.lockEnabled = cfg.Cache.Lock
	}
	m.SetLogger(logger)
	return m
}

// SetLogger refreshes the manager's logging destination.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if m == nil {
		return
	}
	m.logger = logging.NewComponentLogger(logger, "clipcache")
}

// Root returns the configured cache directory.
func (m *Manager) Root() string {
	if m == nil {
		return ""
	}
	return m.root
}

// Dir returns the directory holding artifacts for source.
func (m *Manager) Dir(source string) string {
	if m.besideSource || m.root == "" {
		abs, err := filepath.Abs(source)
		if err != nil {
			abs = source
		}
		return filepath.Dir(abs)
	}
	return m.root
}

// ArtifactPath maps a fingerprint to its stable cache location.
func (m *Manager) ArtifactPath(fp Fingerprint, source string) string {
	return filepath.Join(m.Dir(source), artifactPrefix+fp.String()+artifactSuffix)
}

// ProcessingPath is the in-progress name used by one extraction run.
func (m *Manager) ProcessingPath(fp Fingerprint, source, runID string) string {
	return filepath.Join(m.Dir(source), artifactPrefix+fp.String()+"-"+runID+processingSuffix)
}

// Exists reports whether path names a regular file. No validation beyond
// existence is attempted.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Commit atomically promotes a finished processing file to its stable name.
// When two runs race, the later rename wins.
func (m *Manager) Commit(ctx context.Context, processing, final string) error {
	if err := os.Rename(processing, final); err != nil {
		return fmt.Errorf("clipcache: commit %q: %w", final, err)
	}
	m.logger.DebugContext(ctx, "committed intermediate artifact",
		logging.String("artifact", final),
	)
	return nil
}

// Discard removes path, ignoring a missing file.
func (m *Manager) Discard(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clipcache: remove %q: %w", path, err)
	}
	m.logger.DebugContext(ctx, "removed cache file", logging.String("artifact", path))
	return nil
}

// Lock takes the advisory extraction lock for fp, blocking until it is
// acquired or ctx ends. The returned function releases it. Lock files are left
// in place since unlinking one can hand a waiter a lock on a dead inode. With
// locking disabled a no-op release is returned.
func (m *Manager) Lock(ctx context.Context, fp Fingerprint, source string) (func(), error) {
	if !m.lockEnabled {
		return func() {}, nil
	}
	dir := m.Dir(source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("clipcache: create lock directory: %w", err)
	}
	path := filepath.Join(dir, artifactPrefix+fp.String()+lockSuffix)
	lock := flock.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("clipcache: acquire lock %q: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("clipcache: lock %q not acquired", path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release cache lock",
				logging.String("lock", path),
				logging.Error(err),
			)
		}
	}, nil
}

// Stats lists the artifacts and processing files in the cache directory,
// newest first.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	entries, err := m.scan()
	if err != nil {
		return s, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		s.Summaries = append(s.Summaries, entry)
		s.TotalBytes += entry.SizeBytes
		if entry.InProgress {
			s.Orphans++
		} else {
			s.Entries++
		}
	}
	if len(entries) == 0 {
		m.logger.DebugContext(ctx, "clip cache empty", logging.String("cache_dir", m.root))
	}
	return s, nil
}

// Remove deletes every cache file belonging to the fingerprints matching
// prefix. It returns the number of files removed.
func (m *Manager) Remove(ctx context.Context, prefix string) (int, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return 0, errors.New("clipcache: empty fingerprint")
	}
	entries, err := m.scan()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Fingerprint.String(), prefix) {
			continue
		}
		if err := m.Discard(ctx, entry.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Clear removes every artifact and processing file.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	entries, err := m.scan()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := m.Discard(ctx, entry.Path); err != nil {
			return removed, err
		}
		removed++
	}
	m.logger.InfoContext(ctx, "cleared clip cache",
		logging.String("cache_dir", m.root),
		logging.Int("removed", removed),
	)
	return removed, nil
}

// PruneOrphans deletes processing files older than maxAge, which are left
// behind when an extraction is interrupted.
func (m *Manager) PruneOrphans(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := m.scan()
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.InProgress || entry.ModifiedAt.After(cutoff) {
			continue
		}
		if err := m.Discard(ctx, entry.Path); err != nil {
			return removed, err
		}
		m.logger.InfoContext(ctx, "pruned orphaned processing file",
			logging.String("artifact", entry.Path),
			logging.Int64("size_bytes", entry.SizeBytes),
		)
		removed++
	}
	return removed, nil
}

func (m *Manager) scan() ([]EntrySummary, error) {
	entries := make([]EntrySummary, 0)
	if m.root == "" {
		return entries, nil
	}
	dirEntries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("clipcache: list root: %w", err)
	}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		fp, inProgress, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			m.logger.Warn("clipcache: skip entry",
				logging.String("artifact", entry.Name()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "clipcache_entry_skipped"),
				logging.String(logging.FieldErrorHint, "inspect cache directory permissions"),
			)
			continue
		}
		entries = append(entries, EntrySummary{
			Path:        filepath.Join(m.root, entry.Name()),
			Fingerprint: fp,
			SizeBytes:   info.Size(),
			ModifiedAt:  info.ModTime(),
			InProgress:  inProgress,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedAt.Before(entries[j].ModifiedAt)
	})
	return entries, nil
}

// parseName recognises "av1clip-<fp>-temp.mkv" and
// "av1clip-<fp>-<run>.processing.mkv".
func parseName(name string) (Fingerprint, bool, bool) {
	if !strings.HasPrefix(name, artifactPrefix) {
		return "", false, false
	}
	rest := strings.TrimPrefix(name, artifactPrefix)
	switch {
	case strings.HasSuffix(rest, processingSuffix):
		rest = strings.TrimSuffix(rest, processingSuffix)
		fp, _, found := strings.Cut(rest, "-")
		if !found || fp == "" {
			return "", false, false
		}
		return Fingerprint(fp), true, true
	case strings.HasSuffix(rest, artifactSuffix):
		fp := strings.TrimSuffix(rest, artifactSuffix)
		if fp == "" || strings.Contains(fp, "-") {
			return "", false, false
		}
		return Fingerprint(fp), false, true
	}
	return "", false, false
}
