// Package instance manages the creation, selection and deletion of named
// server instances.
package instance

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/minemanage/minemanage/internal/config"
	"github.com/minemanage/minemanage/internal/supervisor"
)

var (
	// ErrValidation marks a rejected instance name.
	ErrValidation = errors.New("invalid instance name")
	// ErrExists means the instance directory already exists.
	ErrExists = errors.New("instance already exists")
	// ErrNotFound means no such instance directory exists.
	ErrNotFound = errors.New("instance not found")
	// ErrActive means the operation is forbidden on the active instance.
	ErrActive = errors.New("instance is currently active")
	// ErrLive means the operation is forbidden while the instance has a
	// live session.
	ErrLive = errors.New("instance has a live session")
)

// Installer places a runnable worker artifact and the EULA marker inside a
// freshly created instance directory. Implemented by the external artifact
// acquisition collaborator.
type Installer interface {
	Install(instanceDir, version, serverType string) error
}

// SessionProbe is the slice of the session registry the manager needs.
type SessionProbe interface {
	IsAlive(instance, instanceDir string) bool
}

// Info describes one instance in a listing.
type Info struct {
	Name   string
	Active bool
}

// Manager implements the instance lifecycle operations.
type Manager struct {
	store     *config.Store
	installer Installer
	sessions  SessionProbe
}

// NewManager creates an instance manager.
func NewManager(store *config.Store, installer Installer, sessions SessionProbe) *Manager {
	return &Manager{store: store, installer: installer, sessions: sessions}
}

// ValidateName accepts alphanumeric names with underscores and hyphens.
// Everything else, including any path traversal attempt, is rejected.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q may only contain letters, digits, underscores and hyphens", ErrValidation, name)
		}
	}
	return nil
}

// Create makes a new instance directory, writes its default configuration
// and delegates artifact installation. The new instance is not selected
// automatically.
func (m *Manager) Create(name, version, serverType string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := supervisor.ParseWorkerType(serverType); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	dir := m.store.InstanceDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}

	cfg := config.DefaultInstance()
	cfg.ServerType = serverType
	cfg.ServerVersion = version
	if err := m.store.SaveInstance(name, cfg); err != nil {
		return err
	}

	slog.Info("instance created", "instance", name, "type", serverType, "version", version)

	if m.installer != nil {
		if err := m.installer.Install(dir, version, serverType); err != nil {
			return fmt.Errorf("failed to install server files for %s: %w", name, err)
		}
	}
	return nil
}

// Select makes the named instance the target of unqualified commands.
// Switching is permitted while the previously active instance is running;
// instances are independent and "active" only affects command routing.
func (m *Manager) Select(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := os.Stat(m.store.InstanceDir(name)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	global, err := m.store.LoadGlobal()
	if err != nil {
		return err
	}
	global.CurrentInstance = name
	if err := m.store.SaveGlobal(global); err != nil {
		return err
	}
	slog.Info("instance selected", "instance", name)
	return nil
}

// Delete removes an instance and all its data. The active instance and any
// instance with a live session are protected. Irreversible.
func (m *Manager) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	global, err := m.store.LoadGlobal()
	if err != nil {
		return err
	}
	if name == global.CurrentInstance {
		return fmt.Errorf("%w: select another instance before deleting %s", ErrActive, name)
	}

	dir := m.store.InstanceDir(name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if m.sessions != nil && m.sessions.IsAlive(name, dir) {
		return fmt.Errorf("%w: stop %s before deleting it", ErrLive, name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", name, err)
	}
	slog.Info("instance deleted", "instance", name)
	return nil
}

// List returns all instances sorted by name, marking the active one.
func (m *Manager) List() ([]Info, error) {
	names, err := m.store.ListInstances()
	if err != nil {
		return nil, err
	}
	global, err := m.store.LoadGlobal()
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, Info{Name: name, Active: name == global.CurrentInstance})
	}
	return infos, nil
}
