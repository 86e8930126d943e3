package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	globalConfigFile   = "config.json"
	instancesDirName   = "instances"
	instanceConfigFile = "instance.json"
	legacyServerDir    = "server"
)

// ErrConfigCorrupt marks a configuration file that could not be parsed.
// Loads recover from it by falling back to defaults; it is surfaced only in
// logs, never to callers.
var ErrConfigCorrupt = errors.New("configuration file corrupt")

// GlobalConfig holds the cross-instance settings persisted in config.json.
type GlobalConfig struct {
	JavaPath          string `json:"java_path"`
	CurrentInstance   string `json:"current_instance"`
	AdminPasswordHash string `json:"admin_password_hash"`
	LoginDelaySeconds int    `json:"login_delay"`
}

// InstanceConfig holds the per-instance settings persisted in
// instances/<name>/instance.json.
type InstanceConfig struct {
	RAMMin        string `json:"ram_min"`
	RAMMax        string `json:"ram_max"`
	ServerType    string `json:"server_type"`
	ServerVersion string `json:"server_version"`
}

// EffectiveConfig is the merge of the global record and one instance record.
// The two halves are disjoint by construction, so instance values always win
// for instance-owned keys.
type EffectiveConfig struct {
	Global   GlobalConfig
	Instance InstanceConfig
}

// Set updates one configuration key by its JSON name. The key decides
// which half the value lands in; unknown keys are rejected so typos never
// silently create orphan settings. The password hash is excluded, it only
// changes through the dedicated set-password flow.
func (c *EffectiveConfig) Set(key, value string) error {
	switch key {
	case "java_path":
		c.Global.JavaPath = value
	case "current_instance":
		c.Global.CurrentInstance = value
	case "login_delay":
		delay, err := strconv.Atoi(value)
		if err != nil || delay < 0 {
			return fmt.Errorf("login_delay must be a non-negative integer")
		}
		c.Global.LoginDelaySeconds = delay
	case "ram_min":
		c.Instance.RAMMin = value
	case "ram_max":
		c.Instance.RAMMax = value
	case "server_type":
		c.Instance.ServerType = value
	case "server_version":
		c.Instance.ServerVersion = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

// DefaultGlobal returns the global record written on first access.
func DefaultGlobal() GlobalConfig {
	return GlobalConfig{
		JavaPath:        "java",
		CurrentInstance: "default",
	}
}

// DefaultInstance returns the instance record used when none exists yet.
func DefaultInstance() InstanceConfig {
	return InstanceConfig{
		RAMMin:        "2G",
		RAMMax:        "4G",
		ServerType:    "paper",
		ServerVersion: "1.20.2",
	}
}

// Store persists the layered configuration under a single root directory.
// All writes go through an atomic temp-then-rename so a concurrent reader
// never observes a half-written file.
type Store struct {
	rootDir string
}

// NewStore creates a store rooted at rootDir.
func NewStore(rootDir string) *Store {
	return &Store{rootDir: rootDir}
}

// RootDir returns the store root.
func (s *Store) RootDir() string {
	return s.rootDir
}

// InstancesDir returns the directory holding all instance directories.
func (s *Store) InstancesDir() string {
	return filepath.Join(s.rootDir, instancesDirName)
}

// InstanceDir returns the working directory of a named instance.
func (s *Store) InstanceDir(name string) string {
	return filepath.Join(s.InstancesDir(), name)
}

func (s *Store) globalPath() string {
	return filepath.Join(s.rootDir, globalConfigFile)
}

func (s *Store) instanceConfigPath(name string) string {
	return filepath.Join(s.InstanceDir(name), instanceConfigFile)
}

// LoadGlobal reads the global record. A missing file yields defaults which
// are durably written; a corrupt file is logged and replaced by defaults
// without failing the caller.
func (s *Store) LoadGlobal() (GlobalConfig, error) {
	path := s.globalPath()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultGlobal()
		if err := s.SaveGlobal(cfg); err != nil {
			return cfg, fmt.Errorf("failed to write default global config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return DefaultGlobal(), fmt.Errorf("failed to read global config: %w", err)
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("global config corrupt, falling back to defaults",
			"path", path, "error", errors.Join(ErrConfigCorrupt, err))
		return DefaultGlobal(), nil
	}

	if cfg.CurrentInstance == "" {
		cfg.CurrentInstance = "default"
	}
	if cfg.JavaPath == "" {
		cfg.JavaPath = "java"
	}
	return cfg, nil
}

// SaveGlobal atomically writes the global record.
func (s *Store) SaveGlobal(cfg GlobalConfig) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal global config: %w", err)
	}
	if err := writeFileAtomic(s.globalPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write global config: %w", err)
	}
	return nil
}

// LoadInstance reads the record of a named instance, falling back to
// defaults when no file exists or the file is corrupt.
func (s *Store) LoadInstance(name string) (InstanceConfig, error) {
	path := s.instanceConfigPath(name)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultInstance(), nil
	}
	if err != nil {
		return DefaultInstance(), fmt.Errorf("failed to read instance config: %w", err)
	}

	var cfg InstanceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("instance config corrupt, falling back to defaults",
			"instance", name, "path", path, "error", errors.Join(ErrConfigCorrupt, err))
		return DefaultInstance(), nil
	}
	return cfg, nil
}

// SaveInstance atomically writes the record of a named instance, creating
// the instance directory if needed.
func (s *Store) SaveInstance(name string, cfg InstanceConfig) error {
	if err := os.MkdirAll(s.InstanceDir(name), 0755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance config: %w", err)
	}
	if err := writeFileAtomic(s.instanceConfigPath(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write instance config: %w", err)
	}
	return nil
}

// LoadEffective merges the named instance record over the global record.
// An empty name resolves to the currently active instance.
func (s *Store) LoadEffective(name string) (EffectiveConfig, error) {
	global, err := s.LoadGlobal()
	if err != nil {
		return EffectiveConfig{}, err
	}
	if name == "" {
		name = global.CurrentInstance
	}
	inst, err := s.LoadInstance(name)
	if err != nil {
		return EffectiveConfig{}, err
	}
	return EffectiveConfig{Global: global, Instance: inst}, nil
}

// SaveEffective splits the merged record back into its two persisted halves
// and writes each to its owner. An empty name resolves to the currently
// active instance.
func (s *Store) SaveEffective(cfg EffectiveConfig, name string) error {
	if name == "" {
		name = cfg.Global.CurrentInstance
	}
	if err := s.SaveGlobal(cfg.Global); err != nil {
		return err
	}
	return s.SaveInstance(name, cfg.Instance)
}

// ListInstances returns the names of all instance directories, sorted by
// the filesystem's lexical order.
func (s *Store) ListInstances() ([]string, error) {
	entries, err := os.ReadDir(s.InstancesDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// MigrateLegacyLayout moves a pre-instances "server" directory into
// instances/default and splits the old flat config record into its global
// and instance halves. It is a no-op when there is nothing to migrate.
func (s *Store) MigrateLegacyLayout() error {
	oldDir := filepath.Join(s.rootDir, legacyServerDir)
	defaultDir := s.InstanceDir("default")

	if _, err := os.Stat(oldDir); err != nil {
		return nil
	}
	if _, err := os.Stat(defaultDir); err == nil {
		return nil
	}

	slog.Info("migrating legacy server directory to instance layout", "from", oldDir, "to", defaultDir)

	if err := os.MkdirAll(defaultDir, 0755); err != nil {
		return fmt.Errorf("failed to create default instance directory: %w", err)
	}

	entries, err := os.ReadDir(oldDir)
	if err != nil {
		return fmt.Errorf("failed to read legacy server directory: %w", err)
	}
	for _, entry := range entries {
		src := filepath.Join(oldDir, entry.Name())
		dst := filepath.Join(defaultDir, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to move %s: %w", entry.Name(), err)
		}
	}
	// Leftovers mean some entries were skipped; keep the directory then.
	_ = os.Remove(oldDir)

	// The legacy config carried instance keys in the global file. Re-split.
	data, err := os.ReadFile(s.globalPath())
	if err != nil {
		return nil
	}
	var legacy struct {
		GlobalConfig
		InstanceConfig
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		slog.Warn("legacy config unreadable during migration, keeping defaults", "error", err)
		return nil
	}

	inst := legacy.InstanceConfig
	if inst.RAMMin == "" {
		inst = DefaultInstance()
	}
	if err := s.SaveInstance("default", inst); err != nil {
		return err
	}

	global := legacy.GlobalConfig
	if global.JavaPath == "" {
		global.JavaPath = "java"
	}
	global.CurrentInstance = "default"
	return s.SaveGlobal(global)
}

// writeFileAtomic writes data to a sibling temp file and renames it over
// path, so readers see either the old or the new content, never a torn mix.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
