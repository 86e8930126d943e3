// Package backup snapshots instance working directories into immutable
// timestamped archives and restores them. A live instance is quiesced, not
// locked: autosave is suspended and flushed before reading, and restore
// simply refuses to run against a live instance.
package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minemanage/minemanage/internal/config"
)

var (
	// ErrBackupFailed wraps archive creation failures.
	ErrBackupFailed = errors.New("backup failed")
	// ErrRestoreConflict means restore was attempted on a live instance.
	ErrRestoreConflict = errors.New("cannot restore while the server is running")
	// ErrRestoreIncomplete means extraction failed partway; the working
	// directory may hold a mix of old and restored files.
	ErrRestoreIncomplete = errors.New("restore incomplete")
)

const (
	archivePrefix = "backup_"
	archiveExt    = ".zip"
	// timestampLayout names archives with second resolution.
	timestampLayout = "2006-01-02_15-04-05"
	worldDir        = "world"
)

// Sessions is the slice of the session registry the coordinator needs.
type Sessions interface {
	IsAlive(instance, instanceDir string) bool
	SendCommand(instance, command string) error
}

// Record is persisted into the catalog for every completed backup.
type Record struct {
	ID        string
	Instance  string
	Archive   string
	SizeBytes int64
	FileCount int
	Trigger   string // "manual" or "scheduled"
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder persists backup history. Optional.
type Recorder interface {
	Add(rec Record) error
}

// Destination receives a copy of every completed archive. Optional.
type Destination interface {
	Upload(filename string, r io.Reader, sizeBytes int64) error
	Type() string
}

// Coordinator implements backup and restore against the shared backup
// directory.
type Coordinator struct {
	store        *config.Store
	sessions     Sessions
	backupDir    string
	quiesceDelay time.Duration
	catalog      Recorder
	destinations []Destination
	now          func() time.Time
}

// NewCoordinator creates a backup coordinator.
func NewCoordinator(store *config.Store, sessions Sessions, backupDir string, quiesceDelay time.Duration) *Coordinator {
	return &Coordinator{
		store:        store,
		sessions:     sessions,
		backupDir:    backupDir,
		quiesceDelay: quiesceDelay,
		now:          time.Now,
	}
}

// SetCatalog attaches a backup history recorder.
func (c *Coordinator) SetCatalog(rec Recorder) { c.catalog = rec }

// AddDestination attaches an offsite copy destination.
func (c *Coordinator) AddDestination(dest Destination) {
	c.destinations = append(c.destinations, dest)
}

// resolve pins down the instance name and directory; empty targets the
// active instance.
func (c *Coordinator) resolve(instance string) (string, string, error) {
	if instance == "" {
		global, err := c.store.LoadGlobal()
		if err != nil {
			return "", "", err
		}
		instance = global.CurrentInstance
	}
	return instance, c.store.InstanceDir(instance), nil
}

// Backup snapshots the instance working directory into a new timestamped
// archive and returns its path. A running instance is quiesced first and
// autosave is always re-enabled afterwards, even when archiving fails.
func (c *Coordinator) Backup(instance, trigger string, progress Progress) (string, error) {
	instance, dir, err := c.resolve(instance)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(dir, worldDir)); err != nil {
		return "", fmt.Errorf("%w: world directory not found in %s (has the server run yet?)", ErrBackupFailed, dir)
	}

	if err := os.MkdirAll(c.backupDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	started := c.now()
	archiveName := archivePrefix + started.Format(timestampLayout) + archiveExt
	archivePath := filepath.Join(c.backupDir, archiveName)

	running := c.sessions.IsAlive(instance, dir)
	if running {
		if err := c.quiesce(instance); err != nil {
			return "", err
		}
		defer func() {
			// Guaranteed re-enable: a failed backup must not leave
			// autosave off.
			if err := c.sessions.SendCommand(instance, "save-on"); err != nil {
				slog.Warn("failed to re-enable autosave", "instance", instance, "error", err)
			}
		}()
	}

	slog.Info("creating backup", "instance", instance, "archive", archiveName)
	fileCount, err := writeArchive(archivePath, dir, progress)
	if err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	c.record(Record{
		Instance:  instance,
		Archive:   archiveName,
		SizeBytes: info.Size(),
		FileCount: fileCount,
		Trigger:   trigger,
		StartedAt: started,
		Duration:  c.now().Sub(started),
	})
	c.replicate(archiveName, archivePath, info.Size())

	slog.Info("backup created", "instance", instance, "archive", archivePath,
		"files", fileCount, "size_bytes", info.Size())
	return archivePath, nil
}

// quiesce suspends autosave and forces a flush so no world file is captured
// mid-write, then waits a short grace period before any file is read.
func (c *Coordinator) quiesce(instance string) error {
	if err := c.sessions.SendCommand(instance, "save-off"); err != nil {
		return fmt.Errorf("%w: failed to suspend autosave: %v", ErrBackupFailed, err)
	}
	if err := c.sessions.SendCommand(instance, "save-all"); err != nil {
		return fmt.Errorf("%w: failed to flush world data: %v", ErrBackupFailed, err)
	}
	time.Sleep(c.quiesceDelay)
	return nil
}

// Restore replaces the instance's world subtree wholesale from a named
// archive. It refuses while the instance is running; the caller layer is
// responsible for explicit user confirmation before invoking this.
func (c *Coordinator) Restore(instance, archiveName string) error {
	instance, dir, err := c.resolve(instance)
	if err != nil {
		return err
	}

	if c.sessions.IsAlive(instance, dir) {
		return fmt.Errorf("%w: stop instance %s first", ErrRestoreConflict, instance)
	}

	if filepath.Base(archiveName) != archiveName || !strings.HasSuffix(archiveName, archiveExt) {
		return fmt.Errorf("invalid backup name %q", archiveName)
	}
	archivePath := filepath.Join(c.backupDir, archiveName)
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("backup %s not found", archiveName)
	}

	world := filepath.Join(dir, worldDir)
	if err := os.RemoveAll(world); err != nil {
		return fmt.Errorf("failed to remove current world: %w", err)
	}

	slog.Info("restoring backup", "instance", instance, "archive", archiveName)
	if err := extractArchive(archivePath, dir); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreIncomplete, err)
	}
	slog.Info("restore complete", "instance", instance, "archive", archiveName)
	return nil
}

// List returns the available archives, newest first.
func (c *Coordinator) List() ([]string, error) {
	entries, err := os.ReadDir(c.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), archivePrefix) && strings.HasSuffix(entry.Name(), archiveExt) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (c *Coordinator) record(rec Record) {
	if c.catalog == nil {
		return
	}
	if err := c.catalog.Add(rec); err != nil {
		slog.Warn("failed to record backup in catalog", "archive", rec.Archive, "error", err)
	}
}

// replicate uploads the archive to every configured destination. Offsite
// copies are best effort; the local archive is the source of truth.
func (c *Coordinator) replicate(name, path string, size int64) {
	for _, dest := range c.destinations {
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("failed to open archive for replication", "archive", name, "error", err)
			return
		}
		if err := dest.Upload(name, f, size); err != nil {
			slog.Warn("failed to replicate backup", "archive", name, "destination", dest.Type(), "error", err)
		}
		f.Close()
	}
}
