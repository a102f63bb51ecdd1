package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/src/internal/backup"
)

var (
	cleanupDays   int
	cleanupDryRun bool
)

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove backups older than the retention window",
	RunE:  runBackupCleanup,
}

func init() {
	backupCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "maximum backup age in days (defaults to backup.retention_days when configured)")
	backupCleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "report what would be removed without deleting anything")
}

// resolveRetentionDays prefers an explicit --days over the configured
// retention window; the flag default only applies when neither is given.
func resolveRetentionDays(flagChanged bool, flagValue, configured int) int {
	if flagChanged || configured <= 0 {
		return flagValue
	}
	return configured
}

func runBackupCleanup(cmd *cobra.Command, args []string) error {
	environment, err := setupEnv()
	if err != nil {
		return err
	}

	days := resolveRetentionDays(cmd.Flags().Changed("days"), cleanupDays,
		environment.cfg.GetInt("backup.retention_days"))
	if days < 0 {
		return fmt.Errorf("--days must be non-negative")
	}

	policy := backup.RetentionPolicy{
		MaxAgeDays:    days,
		IncludeFailed: environment.cfg.GetBool("backup.retention_include_failed"),
	}

	var result *backup.CleanupResult
	if cleanupDryRun {
		result, err = environment.store.SimulateCleanup(policy)
	} else {
		result, err = environment.service.Cleanup(policy, "")
	}
	if err != nil {
		return err
	}

	verb := "removed"
	if cleanupDryRun {
		verb = "would remove"
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("==> cleanup: %s %d backup(s), %s",
		verb, result.Removed, humanBytes(result.FreedSpace))))

	for _, msg := range result.Errors {
		fmt.Println(warnStyle.Render("  [warn] " + msg))
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("cleanup finished with %d error(s)", len(result.Errors))
	}
	return nil
}
