package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/teamboard/teamboard/src/internal/audit"
	"github.com/teamboard/teamboard/src/internal/backup"
	"github.com/teamboard/teamboard/src/internal/config"
	"github.com/teamboard/teamboard/src/internal/database"
	"github.com/teamboard/teamboard/src/internal/integrity"
	"github.com/teamboard/teamboard/src/internal/logging"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var rootCmd = &cobra.Command{
	Use:           "teamboard",
	Short:         "teamboard server and backup tooling",
	Long:          "Teamboard evaluation dashboard server and its backup lifecycle tooling.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
}

// env bundles everything a backup subcommand needs
type env struct {
	cfg     *viper.Viper
	db      *gorm.DB
	store   *backup.Store
	service *backup.Service
	tool    backup.DumpTool
}

func setupEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.Initialize(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	alg, err := integrity.ParseAlgorithm(cfg.GetString("backup.checksum_algorithm"))
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg)
	store := backup.NewStore(db)
	tool := backup.NewPgDump(backup.PgDumpConfig{
		Command:  cfg.GetString("backup.dump_command"),
		Host:     cfg.GetString("database.host"),
		Port:     cfg.GetInt("database.port"),
		User:     cfg.GetString("database.user"),
		Password: cfg.GetString("database.password"),
		Database: cfg.GetString("database.name"),
	})
	auditSvc := audit.NewService(db, logger)
	service := backup.NewService(store, tool, auditSvc, cfg.GetString("backup.directory"), alg, logger)

	return &env{cfg: cfg, db: db, store: store, service: service, tool: tool}, nil
}
