package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the server log for the selected instance",
	Long: `Show the tail of the instance's logs/latest.log. With --follow the
command keeps printing new lines until interrupted.`,
	RunE: runLogs,
}

var (
	logsTail   int
	logsFollow bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
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

	logPath := filepath.Join(app.store.InstanceDir(name), "logs", "latest.log")
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Printf("No server log yet at %s.\n", logPath)
		return nil
	}

	if err := printTail(logPath, logsTail); err != nil {
		return err
	}
	if logsFollow {
		return followFile(logPath)
	}
	return nil
}

func printTail(path string, tail int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func followFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Print(strings.TrimRight(line, "\n") + "\n")
	}
}
