package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/src/internal/integrity"
)

var validateChecksum bool

var backupValidateCmd = &cobra.Command{
	Use:   "validate <filepath>",
	Short: "Validate a backup file against its catalog record",
	Long: "Validate checks the file size against the catalog record. With " +
		"--checksum the full digest is recomputed and compared as well.",
	Args: cobra.ExactArgs(1),
	RunE: runBackupValidate,
}

func init() {
	backupValidateCmd.Flags().BoolVar(&validateChecksum, "checksum", false, "also recompute and compare the checksum")
}

func runBackupValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	environment, err := setupEnv()
	if err != nil {
		return err
	}

	record, err := environment.store.FindByPath(path)
	if err != nil {
		return err
	}

	var report integrity.Report
	if validateChecksum {
		alg, algErr := integrity.ParseAlgorithm(record.ChecksumAlg)
		if algErr != nil {
			return algErr
		}
		report, err = integrity.Verify(path, record.Checksum, record.Size, alg)
	} else {
		report, err = integrity.VerifySize(path, record.Size)
	}
	if err != nil {
		return err
	}

	if !report.Valid {
		for _, msg := range report.Errors {
			fmt.Println(errorStyle.Render("  " + msg))
		}
		return fmt.Errorf("validation failed: %s", path)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("valid: %s", path)))
	return nil
}
