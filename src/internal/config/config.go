package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	// Environment variables: TEAMBOARD_BACKUP_DIRECTORY etc.
	v.SetEnvPrefix("TEAMBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	configPaths := []string{
		v.GetString("paths.config"),
		".",
		"/etc/teamboard",
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")

	// A missing config file is fine; defaults and env cover it
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	// Path defaults
	if runtime.GOOS == "windows" {
		v.SetDefault("paths.data", "%PROGRAMDATA%\\teamboard")
		v.SetDefault("paths.logs", "%PROGRAMDATA%\\teamboard\\logs")
		v.SetDefault("paths.config", "%PROGRAMDATA%\\teamboard\\config")
	} else {
		v.SetDefault("paths.data", "/var/lib/teamboard")
		v.SetDefault("paths.logs", "/var/log/teamboard")
		v.SetDefault("paths.config", "/etc/teamboard")
	}

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", filepath.Join(v.GetString("paths.data"), "teamboard.db"))
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_time", 300)

	// Dump tool connection (the application database proper)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "teamboard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "teamboard")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8380)
	v.SetDefault("server.shutdown_timeout", 10)

	// Backup defaults
	v.SetDefault("backup.directory", filepath.Join(v.GetString("paths.data"), "backups"))
	v.SetDefault("backup.retention_days", 30)
	v.SetDefault("backup.retention_include_failed", true)
	v.SetDefault("backup.checksum_algorithm", "sha256")
	v.SetDefault("backup.dump_command", "pg_dump")

	// Transfer defaults
	v.SetDefault("transfer.memory_threshold", int64(50*1024*1024))
	v.SetDefault("transfer.range_support", true)
	v.SetDefault("transfer.throttle_bytes_per_sec", 0)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.sweep_interval", "5m")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_token_hash", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("debug", false)
}
