package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minemanage/minemanage/internal/config"
)

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	c := NewCoordinator(nil, nil, t.TempDir(), 0)
	s := NewScheduler(c, RetentionPolicy{})

	err := s.Start("not a cron line")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid backup schedule")
}

func TestSchedulerStartAndStop(t *testing.T) {
	c := NewCoordinator(nil, nil, t.TempDir(), 0)
	s := NewScheduler(c, RetentionPolicy{KeepCount: 3})

	require.NoError(t, s.Start("0 4 * * *"))
	s.Stop()
}

func TestSchedulerRunOnceEnforcesRetention(t *testing.T) {
	sessions := &mockSessions{}
	root := t.TempDir()
	store := config.NewStore(root)

	global := config.DefaultGlobal()
	global.CurrentInstance = "alpha"
	require.NoError(t, store.SaveGlobal(global))

	worldDir := filepath.Join(store.InstanceDir("alpha"), "world")
	require.NoError(t, os.MkdirAll(worldDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "level.dat"), []byte("level"), 0644))

	backupDir := filepath.Join(root, "backups")
	c := NewCoordinator(store, sessions, backupDir, 0)

	// Pre-seed archives so a keep-count of 1 forces deletions after the run.
	require.NoError(t, os.MkdirAll(backupDir, 0755))
	for _, name := range []string{
		"backup_2025-01-01_00-00-00.zip",
		"backup_2025-02-01_00-00-00.zip",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0644))
	}

	s := NewScheduler(c, RetentionPolicy{KeepCount: 1})
	s.runOnce()

	names, err := c.List()
	require.NoError(t, err)
	require.Len(t, names, 1, "only the fresh archive should survive retention")
	require.True(t, len(names[0]) > len("backup_.zip"))
}
