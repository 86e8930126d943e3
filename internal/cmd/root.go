// Package cmd wires the command line surface to the underlying managers.
// Each command resolves its collaborators through newApp, so every
// invocation re-derives state from disk and the OS instead of trusting
// anything from a previous run.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/backup"
	"github.com/minemanage/minemanage/internal/config"
	"github.com/minemanage/minemanage/internal/instance"
	"github.com/minemanage/minemanage/internal/logging"
	"github.com/minemanage/minemanage/internal/session"
	"github.com/minemanage/minemanage/internal/supervisor"
)

var rootCmd = &cobra.Command{
	Use:   "minemanage",
	Short: "Multi-instance Minecraft server manager",
	Long: `Minemanage runs multiple Minecraft server instances on one host,
each inside its own detached screen session, with layered configuration,
quiesced zip backups and credential-gated force kill.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	settingsPath   string
	targetInstance string
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "c", "", "settings file (default is $MINEMANAGE_SETTINGS or ./minemanage.yaml)")
	rootCmd.PersistentFlags().StringVarP(&targetInstance, "instance", "i", "", "target instance (default is the selected instance)")
}

// app bundles the collaborators a command needs, built fresh per
// invocation from the settings file.
type app struct {
	settings    *config.Settings
	store       *config.Store
	sessions    *session.Registry
	supervisor  *supervisor.Supervisor
	instances   *instance.Manager
	coordinator *backup.Coordinator
}

func newApp() (*app, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	logging.Init(settings.Logging)

	store := config.NewStore(settings.Storage.RootDir)
	if err := store.MigrateLegacyLayout(); err != nil {
		return nil, err
	}

	sessions := session.NewRegistry(session.ExecRunner{})
	sup := supervisor.New(store, sessions, settings.Supervisor)
	instances := instance.NewManager(store, instance.ScaffoldInstaller{}, sessions)

	coordinator := backup.NewCoordinator(store, sessions, settings.Storage.BackupDir, settings.Supervisor.QuiesceDelay())
	return &app{
		settings:    settings,
		store:       store,
		sessions:    sessions,
		supervisor:  sup,
		instances:   instances,
		coordinator: coordinator,
	}, nil
}

// withCatalog attaches the sqlite backup catalog; callers that only read
// archives skip it. The returned closer is nil when opening failed, the
// coordinator then records nothing.
func (a *app) withCatalog() func() {
	if err := os.MkdirAll(a.settings.Storage.BackupDir, 0755); err != nil {
		fmt.Printf("Warning: backup catalog unavailable: %v\n", err)
		return func() {}
	}
	catalog, err := backup.OpenCatalog(catalogPath(a))
	if err != nil {
		fmt.Printf("Warning: backup catalog unavailable: %v\n", err)
		return func() {}
	}
	a.coordinator.SetCatalog(catalog)
	return func() { catalog.Close() }
}

// withDestinations attaches every configured replication destination.
func (a *app) withDestinations() {
	for _, settings := range a.settings.Backup.Destinations {
		dest, err := backup.NewDestination(settings)
		if err != nil {
			fmt.Printf("Warning: skipping %s destination: %v\n", settings.Type, err)
			continue
		}
		a.coordinator.AddDestination(dest)
	}
}
