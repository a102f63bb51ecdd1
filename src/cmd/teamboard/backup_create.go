package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/src/internal/backup"
)

var (
	createOutput     string
	createName       string
	createCompress   bool
	createSchemaOnly bool
	createDataOnly   bool
	createVerbose    bool
)

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new database backup",
	RunE:  runBackupCreate,
}

func init() {
	backupCreateCmd.Flags().StringVar(&createOutput, "output", "", "output directory (defaults to the configured backup directory)")
	backupCreateCmd.Flags().StringVar(&createName, "name", "", "backup file name without extension ([a-zA-Z0-9_-]+)")
	backupCreateCmd.Flags().BoolVar(&createCompress, "compress", false, "gzip the dump output")
	backupCreateCmd.Flags().BoolVar(&createSchemaOnly, "schema-only", false, "dump schema without data")
	backupCreateCmd.Flags().BoolVar(&createDataOnly, "data-only", false, "dump data without schema")
	backupCreateCmd.Flags().BoolVarP(&createVerbose, "verbose", "v", false, "print progress details")
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	environment, err := setupEnv()
	if err != nil {
		return err
	}

	if createVerbose {
		fmt.Println(titleStyle.Render("==> creating backup"))
		fmt.Println(dimStyle.Render("  --> running dump tool..."))
	}

	result, err := environment.service.Create(context.Background(), backup.CreateOptions{
		Directory:  createOutput,
		Filename:   createName,
		Compress:   createCompress,
		SchemaOnly: createSchemaOnly,
		DataOnly:   createDataOnly,
	})
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("backup failed: %s", result.Err)
	}

	record := result.Record
	fmt.Println(successStyle.Render(fmt.Sprintf("backup created: %s", record.Filename)))
	if createVerbose {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  id:       %s", record.ID)))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  path:     %s", record.FilePath)))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  size:     %s", record.HumanReadableSize())))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  checksum: %s:%s", record.ChecksumAlg, record.Checksum)))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  duration: %dms", record.DurationMS)))
	}
	return nil
}
