package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsDefaults(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Logging.Level)
	}
	if cfg.Supervisor.StopWaitSeconds != 30 {
		t.Fatalf("expected default stop wait, got %d", cfg.Supervisor.StopWaitSeconds)
	}
	if !filepath.IsAbs(cfg.Storage.RootDir) {
		t.Fatalf("expected root dir to be absolute, got %q", cfg.Storage.RootDir)
	}
	if cfg.Storage.BackupDir != filepath.Join(cfg.Storage.RootDir, "backups") {
		t.Fatalf("expected backup dir under root, got %q", cfg.Storage.BackupDir)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
storage:
  root_dir: ` + dir + `
  backup_dir: archives
logging:
  level: debug
supervisor:
  stop_wait_seconds: 10
backup:
  schedule: "0 4 * * *"
  keep_count: 7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Supervisor.StopWaitSeconds != 10 {
		t.Fatalf("expected stop wait 10, got %d", cfg.Supervisor.StopWaitSeconds)
	}
	if cfg.Backup.Schedule != "0 4 * * *" || cfg.Backup.KeepCount != 7 {
		t.Fatalf("backup settings not loaded: %+v", cfg.Backup)
	}
	if cfg.Storage.BackupDir != filepath.Join(dir, "archives") {
		t.Fatalf("expected relative backup dir anchored at root, got %q", cfg.Storage.BackupDir)
	}
}

func TestLoadSettingsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MINEMANAGE_ROOT", dir)
	t.Setenv("MINEMANAGE_LOG_LEVEL", "warn")

	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if cfg.Storage.RootDir != dir {
		t.Fatalf("expected env root dir, got %q", cfg.Storage.RootDir)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadTiming(t *testing.T) {
	cfg := &Settings{Supervisor: SupervisorSettings{StopWaitSeconds: 0, StopPollSeconds: 1}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero stop wait")
	}
}

func TestValidateDestinations(t *testing.T) {
	base := SupervisorSettings{StopWaitSeconds: 30, StopPollSeconds: 1}

	cases := []struct {
		name string
		dest DestinationSettings
		ok   bool
	}{
		{"local with path", DestinationSettings{Type: "local", Path: "/mnt/backups"}, true},
		{"local without path", DestinationSettings{Type: "local"}, false},
		{"s3 with bucket", DestinationSettings{Type: "s3", S3Bucket: "worlds"}, true},
		{"s3 without bucket", DestinationSettings{Type: "s3"}, false},
		{"sftp complete", DestinationSettings{Type: "sftp", SFTPHost: "host", SFTPUsername: "u"}, true},
		{"sftp without host", DestinationSettings{Type: "sftp", SFTPUsername: "u"}, false},
		{"unknown type", DestinationSettings{Type: "ftp"}, false},
	}
	for _, tc := range cases {
		cfg := &Settings{
			Supervisor: base,
			Backup:     BackupSettings{Destinations: []DestinationSettings{tc.dest}},
		}
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSupervisorDurations(t *testing.T) {
	s := SupervisorSettings{StopWaitSeconds: 30, StopPollSeconds: 1, KillGraceSeconds: 2, QuiesceDelaySeconds: 3}
	if s.StopWait().Seconds() != 30 || s.StopPoll().Seconds() != 1 ||
		s.KillGrace().Seconds() != 2 || s.QuiesceDelay().Seconds() != 3 {
		t.Fatalf("duration accessors inconsistent: %+v", s)
	}
}
