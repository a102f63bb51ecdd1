package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var infoVerbose bool

var backupInfoCmd = &cobra.Command{
	Use:   "info <backup-id>",
	Short: "Show details for one backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupInfo,
}

func init() {
	backupInfoCmd.Flags().BoolVarP(&infoVerbose, "verbose", "v", false, "include checksum and path details")
}

func runBackupInfo(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid backup id: %s", args[0])
	}

	environment, err := setupEnv()
	if err != nil {
		return err
	}

	record, err := environment.store.Find(id)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("==> " + record.Filename))
	fmt.Printf("  id:       %s\n", record.ID)
	fmt.Printf("  status:   %s\n", statusLabel(record.Status))
	fmt.Printf("  size:     %s\n", record.HumanReadableSize())
	fmt.Printf("  created:  %s\n", record.CreatedAt.Local())
	if record.Error != "" {
		fmt.Printf("  error:    %s\n", errorStyle.Render(record.Error))
	}
	if infoVerbose {
		fmt.Printf("  path:     %s\n", record.FilePath)
		fmt.Printf("  checksum: %s:%s\n", record.ChecksumAlg, record.Checksum)
		fmt.Printf("  duration: %dms\n", record.DurationMS)
		fmt.Printf("  compressed: %v\n", record.Compressed)
		if record.CreatedBy != "" {
			fmt.Printf("  created by: %s\n", record.CreatedBy)
		}
	}
	return nil
}
