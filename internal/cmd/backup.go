package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/minemanage/minemanage/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and manage world backups",
	Long: `Create timestamped zip backups of the instance working directory.
A running server is quiesced first: autosave is suspended and the world
flushed, then re-enabled when the archive is done.`,
	RunE: runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backup archives",
	RunE:  runBackupList,
}

var backupHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded backup history",
	RunE:  runBackupHistory,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archives outside the retention policy",
	RunE:  runBackupPrune,
}

var backupScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled backups in the foreground",
	Long: `Run the backup scheduler until interrupted. The cron expression and
retention policy come from the settings file.`,
	RunE: runBackupSchedule,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the world from a backup archive",
	Long: `Replace the current world with the one in a backup archive. The
server must be stopped first. The current world is deleted before
extraction; take a fresh backup if it matters.`,
	RunE: runRestore,
}

var (
	restoreFile   string
	historyLimit  int
	backupTrigger = "manual"
)

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupHistoryCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupCmd.AddCommand(backupScheduleCmd)

	restoreCmd.Flags().StringVarP(&restoreFile, "file", "f", "", "Backup archive name (required)")
	restoreCmd.MarkFlagRequired("file")
	backupHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show")
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	closeCatalog := app.withCatalog()
	defer closeCatalog()
	app.withDestinations()

	progress := func(done, total int) {
		fmt.Printf("\rArchiving %d/%d files...", done, total)
	}
	archive, err := app.coordinator.Backup(targetInstance, backupTrigger, progress)
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("Backup created: %s\n", archive)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	names, err := app.coordinator.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No backups found.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runBackupHistory(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	catalog, err := backup.OpenCatalog(catalogPath(app))
	if err != nil {
		return err
	}
	defer catalog.Close()

	records, err := catalog.History(targetInstance, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No backup history recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-20s %-9s %8s  %5d files  %s\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"), rec.Instance, rec.Trigger,
			units.HumanSize(float64(rec.SizeBytes)), rec.FileCount, rec.Archive)
	}
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	deleted, err := app.coordinator.EnforceRetention(retentionPolicy(app))
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d expired backups.\n", deleted)
	return nil
}

func runBackupSchedule(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	if app.settings.Backup.Schedule == "" {
		return fmt.Errorf("no backup schedule configured in settings")
	}
	closeCatalog := app.withCatalog()
	defer closeCatalog()
	app.withDestinations()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := backup.NewScheduler(app.coordinator, retentionPolicy(app))
	fmt.Printf("Running backup scheduler (%s), Ctrl+C to stop.\n", app.settings.Backup.Schedule)
	if err := scheduler.Run(ctx, app.settings.Backup.Schedule); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Restore %s? The current world will be deleted", restoreFile)) {
		fmt.Println("Aborted.")
		return nil
	}

	err = app.coordinator.Restore(targetInstance, restoreFile)
	switch {
	case errors.Is(err, backup.ErrRestoreConflict):
		return fmt.Errorf("stop the server before restoring")
	case err != nil:
		return err
	}
	fmt.Println("Restore complete.")
	return nil
}

func retentionPolicy(app *app) backup.RetentionPolicy {
	return backup.RetentionPolicy{
		KeepCount: app.settings.Backup.KeepCount,
		KeepDays:  app.settings.Backup.KeepDays,
	}
}

func catalogPath(app *app) string {
	return filepath.Join(app.settings.Storage.BackupDir, "catalog.db")
}
