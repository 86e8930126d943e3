package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/supervisor"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Attach to the running server console",
	Long: `Attach this terminal to the server's screen session. Detach with
Ctrl+A then D; the server keeps running after you detach.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	fmt.Println("Attaching to server console (Ctrl+A then D to detach)...")
	err = app.supervisor.Console(targetInstance)
	if errors.Is(err, supervisor.ErrNotRunning) {
		return fmt.Errorf("the server is not running; start it first")
	}
	return err
}
