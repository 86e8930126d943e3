package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage server instances",
}

var instanceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new instance",
	Long: `Create a new instance directory with default configuration and an
accepted EULA. The server artifact (server.jar, or run.sh for forge and
neoforge) must be placed in the instance directory before starting.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstanceCreate,
}

var instanceSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Select the instance unqualified commands target",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceSelect,
}

var instanceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an instance and all its data",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceDelete,
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all instances",
	RunE:  runInstanceList,
}

var (
	createVersion string
	createType    string
)

func init() {
	rootCmd.AddCommand(instanceCmd)
	instanceCmd.AddCommand(instanceCreateCmd)
	instanceCmd.AddCommand(instanceSelectCmd)
	instanceCmd.AddCommand(instanceDeleteCmd)
	instanceCmd.AddCommand(instanceListCmd)

	instanceCreateCmd.Flags().StringVar(&createVersion, "version", "1.20.2", "Server version")
	instanceCreateCmd.Flags().StringVar(&createType, "type", "paper", "Server type (vanilla, paper, fabric, forge, neoforge)")
}

func runInstanceCreate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	name := args[0]
	if err := app.instances.Create(name, createVersion, createType); err != nil {
		return err
	}
	fmt.Printf("Instance %s created at %s.\n", name, app.store.InstanceDir(name))
	fmt.Println("Place the server artifact there, then select and start it.")
	return nil
}

func runInstanceSelect(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	if err := app.instances.Select(args[0]); err != nil {
		return err
	}
	fmt.Printf("Instance %s selected.\n", args[0])
	return nil
}

func runInstanceDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	name := args[0]

	if !confirm(fmt.Sprintf("Delete instance %s and ALL its data? This cannot be undone", name)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := app.instances.Delete(name); err != nil {
		return err
	}
	fmt.Printf("Instance %s deleted.\n", name)
	return nil
}

func runInstanceList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	infos, err := app.instances.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No instances. Create one with 'instance create <name>'.")
		return nil
	}
	for _, info := range infos {
		marker := " "
		if info.Active {
			marker = "*"
		}
		running, err := app.supervisor.Running(info.Name)
		state := "stopped"
		if err == nil && running {
			state = "running"
		}
		fmt.Printf("%s %-24s %s\n", marker, info.Name, state)
	}
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is a no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
