package main

import (
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupValidateCmd)
	backupCmd.AddCommand(backupCleanupCmd)
	backupCmd.AddCommand(backupInfoCmd)
	backupCmd.AddCommand(backupDeleteCmd)
}
