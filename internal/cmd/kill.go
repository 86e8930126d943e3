package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/minemanage/minemanage/internal/supervisor"
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Force-kill the server (requires the admin password)",
	Long: `Terminate the server session immediately, without a clean shutdown.
Unsaved world data may be lost. The admin password is required; set one
with 'config set-password'.`,
	RunE: runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	credential, err := promptPassword("Admin password: ")
	if err != nil {
		return err
	}

	err = app.supervisor.Kill(targetInstance, credential)
	switch {
	case errors.Is(err, supervisor.ErrKillAuthFailed):
		return fmt.Errorf("authorization failed: %v", err)
	case errors.Is(err, supervisor.ErrNotRunning):
		return fmt.Errorf("the server is not running")
	case err != nil:
		return err
	}

	fmt.Println("Server killed.")
	return nil
}

// promptPassword reads a password from the terminal without echo. A
// non-terminal stdin falls back to a plain line read so the command stays
// scriptable.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}
