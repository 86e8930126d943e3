package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/auth"
	"github.com/minemanage/minemanage/internal/props"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration for the selected instance",
	RunE:  runConfigList,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set a configuration key. Global keys (java_path, current_instance,
login_delay) are written to the shared config; instance keys (ram_min,
ram_max, server_type, server_version) to the selected instance.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetPropCmd = &cobra.Command{
	Use:   "set-prop <key> <value>",
	Short: "Set a key in the instance's server.properties",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetProp,
}

var configSetPortCmd = &cobra.Command{
	Use:   "set-port <port>",
	Short: "Set the server port in the instance's server.properties",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetPort,
}

var configSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set the admin password required by 'kill'",
	RunE:  runConfigSetPassword,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetPropCmd)
	configCmd.AddCommand(configSetPortCmd)
	configCmd.AddCommand(configSetPasswordCmd)
}

func runConfigList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	cfg, err := app.store.LoadEffective(targetInstance)
	if err != nil {
		return err
	}

	fmt.Println("Global:")
	fmt.Printf("  java_path        = %s\n", cfg.Global.JavaPath)
	fmt.Printf("  current_instance = %s\n", cfg.Global.CurrentInstance)
	fmt.Printf("  login_delay      = %d\n", cfg.Global.LoginDelaySeconds)
	if cfg.Global.AdminPasswordHash != "" {
		fmt.Println("  admin_password   = (set)")
	} else {
		fmt.Println("  admin_password   = (not set)")
	}
	fmt.Println("Instance:")
	fmt.Printf("  ram_min          = %s\n", cfg.Instance.RAMMin)
	fmt.Printf("  ram_max          = %s\n", cfg.Instance.RAMMax)
	fmt.Printf("  server_type      = %s\n", cfg.Instance.ServerType)
	fmt.Printf("  server_version   = %s\n", cfg.Instance.ServerVersion)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	key, value := args[0], args[1]

	cfg, err := app.store.LoadEffective(targetInstance)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := app.store.SaveEffective(cfg, targetInstance); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigSetProp(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	cfg, err := app.store.LoadEffective(targetInstance)
	if err != nil {
		return err
	}
	instance := targetInstance
	if instance == "" {
		instance = cfg.Global.CurrentInstance
	}

	key, value := args[0], args[1]
	if err := props.Set(app.store.InstanceDir(instance), key, value); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigSetPort(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q: must be 1-65535", args[0])
	}
	return runConfigSetProp(cmd, []string{"server-port", strconv.Itoa(port)})
}

func runConfigSetPassword(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	password, err := promptPassword("New admin password: ")
	if err != nil {
		return err
	}
	confirmed, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirmed {
		return fmt.Errorf("passwords do not match")
	}

	hash, err := auth.HashCredential(password)
	if err != nil {
		return err
	}

	global, err := app.store.LoadGlobal()
	if err != nil {
		return err
	}
	global.AdminPasswordHash = hash
	if err := app.store.SaveGlobal(global); err != nil {
		return err
	}
	fmt.Println("Admin password updated.")
	return nil
}
