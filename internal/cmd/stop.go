package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/supervisor"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the server gracefully",
	Long: `Send the shutdown command to the server and wait until the session
disappears. On timeout nothing is terminated; use 'kill' to force it.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	err = app.supervisor.Stop(targetInstance)
	switch {
	case errors.Is(err, supervisor.ErrNotRunning):
		return fmt.Errorf("the server is not running")
	case errors.Is(err, supervisor.ErrStopTimedOut):
		return fmt.Errorf("the server did not stop in time; use 'kill' to force it")
	case err != nil:
		return err
	}

	fmt.Println("Server stopped.")
	return nil
}
