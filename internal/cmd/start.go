package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/supervisor"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in a detached session",
	Long: `Start the server for the selected instance inside a detached screen
session. The command returns once the session exists; use 'console' to
attach to it, or --foreground to run attached to this terminal.`,
	RunE: runStart,
}

var (
	startRAM        string
	startForeground bool
)

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startRAM, "ram", "", "Override both memory bounds for this launch (e.g. 4G)")
	startCmd.Flags().BoolVar(&startForeground, "foreground", false, "Run attached to this terminal instead of a detached session")
}

func runStart(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	err = app.supervisor.Start(targetInstance, supervisor.StartOptions{
		RAM:        startRAM,
		Foreground: startForeground,
	})
	switch {
	case errors.Is(err, supervisor.ErrEulaNotAccepted):
		return fmt.Errorf("the EULA has not been accepted; set eula=true in eula.txt first")
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		return fmt.Errorf("the server is already running; use 'console' to attach")
	case errors.Is(err, supervisor.ErrPortConflict):
		return fmt.Errorf("the configured port is already in use by another process")
	case err != nil:
		return err
	}

	if !startForeground {
		fmt.Println("Server started. Attach with 'minemanage console'.")
	}
	return nil
}
