package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds manager-level configuration loaded from settings.yaml.
// This is distinct from the layered instance configuration managed by Store:
// settings describe how the manager itself behaves, the store describes the
// servers it manages.
type Settings struct {
	Storage    StorageSettings    `yaml:"storage" json:"storage"`
	Logging    LoggingSettings    `yaml:"logging" json:"logging"`
	Supervisor SupervisorSettings `yaml:"supervisor" json:"supervisor"`
	Backup     BackupSettings     `yaml:"backup" json:"backup"`
}

// StorageSettings contains the on-disk layout roots.
type StorageSettings struct {
	// RootDir anchors config.json, instances/ and backups/. Defaults to
	// the current working directory so the tool can be dropped into an
	// existing server folder.
	RootDir   string `yaml:"root_dir" json:"root_dir"`
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`
}

// LoggingSettings contains logging configuration.
type LoggingSettings struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// SupervisorSettings tunes process lifecycle timing.
type SupervisorSettings struct {
	StopWaitSeconds     int `yaml:"stop_wait_seconds" json:"stop_wait_seconds"`
	StopPollSeconds     int `yaml:"stop_poll_seconds" json:"stop_poll_seconds"`
	KillGraceSeconds    int `yaml:"kill_grace_seconds" json:"kill_grace_seconds"`
	QuiesceDelaySeconds int `yaml:"quiesce_delay_seconds" json:"quiesce_delay_seconds"`
}

// BackupSettings configures scheduled backups, retention and offsite copies.
type BackupSettings struct {
	// Schedule is a standard 5-field cron expression. Empty disables the
	// scheduler.
	Schedule     string                `yaml:"schedule" json:"schedule"`
	KeepCount    int                   `yaml:"keep_count" json:"keep_count"`
	KeepDays     int                   `yaml:"keep_days" json:"keep_days"`
	Destinations []DestinationSettings `yaml:"destinations" json:"destinations"`
}

// DestinationSettings describes one offsite backup destination.
// Type is "local", "s3" or "sftp".
type DestinationSettings struct {
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path" json:"path"`

	S3Bucket    string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Region    string `yaml:"s3_region" json:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint" json:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key" json:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key" json:"s3_secret_key"`

	SFTPHost       string `yaml:"sftp_host" json:"sftp_host"`
	SFTPPort       int    `yaml:"sftp_port" json:"sftp_port"`
	SFTPUsername   string `yaml:"sftp_username" json:"sftp_username"`
	SFTPPassword   string `yaml:"sftp_password" json:"sftp_password"`
	SFTPKeyPath    string `yaml:"sftp_key_path" json:"sftp_key_path"`
	SFTPKnownHosts string `yaml:"sftp_known_hosts" json:"sftp_known_hosts"`
}

// StopWait returns the graceful stop bound as a duration.
func (s SupervisorSettings) StopWait() time.Duration {
	return time.Duration(s.StopWaitSeconds) * time.Second
}

// StopPoll returns the liveness polling interval as a duration.
func (s SupervisorSettings) StopPoll() time.Duration {
	return time.Duration(s.StopPollSeconds) * time.Second
}

// KillGrace returns the post-quit grace period as a duration.
func (s SupervisorSettings) KillGrace() time.Duration {
	return time.Duration(s.KillGraceSeconds) * time.Second
}

// QuiesceDelay returns the flush grace used before reading world files.
func (s SupervisorSettings) QuiesceDelay() time.Duration {
	return time.Duration(s.QuiesceDelaySeconds) * time.Second
}

// LoadSettings loads settings from path, falling back to defaults when the
// file does not exist. Environment variables override file values for the
// common deployment knobs.
func LoadSettings(path string) (*Settings, error) {
	cfg := &Settings{
		Storage: StorageSettings{
			RootDir: ".",
		},
		Logging: LoggingSettings{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Supervisor: SupervisorSettings{
			StopWaitSeconds:     30,
			StopPollSeconds:     1,
			KillGraceSeconds:    1,
			QuiesceDelaySeconds: 2,
		},
		Backup: BackupSettings{
			KeepCount: 0,
			KeepDays:  0,
		},
	}

	if path == "" {
		path = resolveSettingsPath()
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	if rootDir := os.Getenv("MINEMANAGE_ROOT"); rootDir != "" {
		cfg.Storage.RootDir = rootDir
	}
	if logLevel := os.Getenv("MINEMANAGE_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	cfg.normalizePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings for obvious mistakes.
func (s *Settings) Validate() error {
	if s.Supervisor.StopWaitSeconds <= 0 {
		return fmt.Errorf("stop_wait_seconds must be positive")
	}
	if s.Supervisor.StopPollSeconds <= 0 {
		return fmt.Errorf("stop_poll_seconds must be positive")
	}
	for _, dest := range s.Backup.Destinations {
		switch strings.ToLower(strings.TrimSpace(dest.Type)) {
		case "local":
			if strings.TrimSpace(dest.Path) == "" {
				return fmt.Errorf("local destination requires a path")
			}
		case "s3":
			if dest.S3Bucket == "" {
				return fmt.Errorf("s3 destination requires a bucket")
			}
		case "sftp":
			if dest.SFTPHost == "" || dest.SFTPUsername == "" {
				return fmt.Errorf("sftp destination requires host and username")
			}
		default:
			return fmt.Errorf("unknown destination type: %s", dest.Type)
		}
	}
	return nil
}

func (s *Settings) normalizePaths() {
	if !filepath.IsAbs(s.Storage.RootDir) {
		if abs, err := filepath.Abs(s.Storage.RootDir); err == nil {
			s.Storage.RootDir = abs
		}
	}
	s.Storage.RootDir = filepath.Clean(s.Storage.RootDir)

	if strings.TrimSpace(s.Storage.BackupDir) == "" {
		s.Storage.BackupDir = filepath.Join(s.Storage.RootDir, "backups")
	} else if !filepath.IsAbs(s.Storage.BackupDir) {
		s.Storage.BackupDir = filepath.Clean(filepath.Join(s.Storage.RootDir, s.Storage.BackupDir))
	}
}

func resolveSettingsPath() string {
	if fromEnv := os.Getenv("MINEMANAGE_SETTINGS"); fromEnv != "" {
		return fromEnv
	}
	return "./settings.yaml"
}
