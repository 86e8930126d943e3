package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the selected instance is running",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	cfg, err := app.store.LoadEffective(targetInstance)
	if err != nil {
		return err
	}
	name := targetInstance
	if name == "" {
		name = cfg.Global.CurrentInstance
	}

	running, err := app.supervisor.Running(name)
	if err != nil {
		return err
	}
	state := "stopped"
	if running {
		state = "running"
	}
	fmt.Printf("%s: %s (%s %s)\n", name, state, cfg.Instance.ServerType, cfg.Instance.ServerVersion)
	return nil
}
