package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/src/internal/backup"
	"github.com/teamboard/teamboard/src/internal/database/models"
)

var (
	listFormat string
	listLimit  int
)

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE:  runBackupList,
}

func init() {
	backupListCmd.Flags().StringVar(&listFormat, "format", "table", "output format: table or json")
	backupListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of records (0 = all)")
}

func runBackupList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "json" {
		return fmt.Errorf("unsupported format: %s", listFormat)
	}

	environment, err := setupEnv()
	if err != nil {
		return err
	}

	records, err := environment.store.List(backup.ListFilter{Limit: listLimit})
	if err != nil {
		return err
	}

	if listFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println(dimStyle.Render("no backups found"))
		fmt.Println(dimStyle.Render("create one with: teamboard backup create"))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> backups (%d)", len(records))))

	rows := make([][]string, 0, len(records))
	var totalSize int64
	for _, record := range records {
		rows = append(rows, []string{
			record.ID.String()[:8],
			record.Filename,
			record.HumanReadableSize(),
			statusLabel(record.Status),
			record.CreatedAt.Local().Format(time.DateTime),
		})
		totalSize += record.Size
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "FILENAME", "SIZE", "STATUS", "CREATED").
		Rows(rows...)
	fmt.Println(t)
	fmt.Println(dimStyle.Render(fmt.Sprintf("total size: %s", humanBytes(totalSize))))
	return nil
}

func statusLabel(status string) string {
	switch status {
	case models.BackupStatusSuccess:
		return successStyle.Render(status)
	case models.BackupStatusFailed:
		return errorStyle.Render(status)
	default:
		return warnStyle.Render(status)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
