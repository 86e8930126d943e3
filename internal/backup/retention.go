package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RetentionPolicy bounds how many archives are kept. Zero values disable
// the corresponding limit.
type RetentionPolicy struct {
	// KeepCount keeps at most this many archives, newest first.
	KeepCount int
	// KeepDays deletes archives older than this many days.
	KeepDays int
}

// EnforceRetention deletes archives that fall outside the policy. The
// archive timestamp in the filename drives age, not filesystem mtime, so
// copied or restored-from-elsewhere archives age correctly.
func (c *Coordinator) EnforceRetention(policy RetentionPolicy) (int, error) {
	if policy.KeepCount <= 0 && policy.KeepDays <= 0 {
		return 0, nil
	}

	names, err := c.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	cutoff := c.now().AddDate(0, 0, -policy.KeepDays)
	for i, name := range names {
		stale := policy.KeepCount > 0 && i >= policy.KeepCount
		if !stale && policy.KeepDays > 0 {
			if ts, ok := archiveTime(name); ok && ts.Before(cutoff) {
				stale = true
			}
		}
		if !stale {
			continue
		}

		path := filepath.Join(c.backupDir, name)
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to delete expired backup", "archive", name, "error", err)
			continue
		}
		slog.Info("expired backup deleted", "archive", name)
		deleted++
	}
	return deleted, nil
}

// archiveTime recovers the creation timestamp from an archive name.
func archiveTime(name string) (time.Time, bool) {
	trimmed := name
	if len(trimmed) <= len(archivePrefix)+len(archiveExt) {
		return time.Time{}, false
	}
	trimmed = trimmed[len(archivePrefix) : len(trimmed)-len(archiveExt)]
	ts, err := time.ParseInLocation(timestampLayout, trimmed, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// String describes the policy for log output.
func (p RetentionPolicy) String() string {
	return fmt.Sprintf("keep_count=%d keep_days=%d", p.KeepCount, p.KeepDays)
}
