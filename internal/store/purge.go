package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/grainstore/internal/ctxlog"
)

// PurgeReport summarizes one cache purge.
type PurgeReport struct {
	Scanned int
	Removed int
	Failed  int
}

// PurgeCache deletes entries of the resource cache. With ttl 0 every entry
// is deleted; otherwise an entry is deleted only when both its change time
// and its access time are older than ttl. A missing cache directory is not
// an error. Failures on single entries are logged and counted but do not
// stop the scan. label tags the log records of this purge.
func (s *Store) PurgeCache(ctx context.Context, ttl time.Duration, label string) (PurgeReport, error) {
	logger := ctxlog.FromContext(ctx).With("purge", label)
	var report PurgeReport

	dir := s.CacheDirPath()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("Cache directory does not exist, nothing to purge.", "dir", dir)
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to read cache directory %s: %w", dir, err)
	}

	cutoff := time.Now().Add(-ttl)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		path := filepath.Join(dir, entry.Name())

		if ttl > 0 {
			times, err := statEntry(path)
			if err != nil {
				report.Failed++
				logger.Warn("Failed to stat cache entry.", "path", path, "error", err)
				continue
			}
			if !times.access.Before(cutoff) || !times.change.Before(cutoff) {
				continue
			}
		}

		if err := os.RemoveAll(path); err != nil {
			report.Failed++
			logger.Warn("Failed to remove cache entry.", "path", path, "error", err)
			continue
		}
		report.Removed++
		logger.Debug("Removed cache entry.", "path", path)
	}

	logger.Info("Cache purged.", "dir", dir, "scanned", report.Scanned, "removed", report.Removed, "failed", report.Failed)
	return report, nil
}

// statEntry reads the purge timestamps of a cache entry.
var statEntry = statTimes

// entryTimes are the timestamps purge decisions are based on.
type entryTimes struct {
	access time.Time
	change time.Time
}
