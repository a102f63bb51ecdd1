package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete a backup file and its catalog record",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid backup id: %s", args[0])
	}

	environment, err := setupEnv()
	if err != nil {
		return err
	}

	if err := environment.service.Delete(id, ""); err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("deleted backup %s", id)))
	return nil
}
