// Package audit records backup access events. Every entry is written to
// the durable audit table and mirrored as a structured log line.
package audit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/teamboard/teamboard/src/internal/database/models"
)

// Audited actions
const (
	ActionDownload = "backup.download"
	ActionCreate   = "backup.create"
	ActionDelete   = "backup.delete"
	ActionCleanup  = "backup.cleanup"
)

// Entry describes one audited action
type Entry struct {
	Action   string
	UserID   string
	UserRole string
	BackupID string
	Filename string
	FileSize int64
	ClientIP string
}

// Service persists audit entries
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates an audit service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Record writes one entry. The log line carries the same fields as the
// database row, timestamped in ISO 8601.
func (s *Service) Record(entry Entry) error {
	now := time.Now().UTC()

	s.logger.Info().
		Str("action", entry.Action).
		Str("user_id", entry.UserID).
		Str("user_role", entry.UserRole).
		Str("backup_id", entry.BackupID).
		Str("filename", entry.Filename).
		Int64("file_size", entry.FileSize).
		Str("client_ip", entry.ClientIP).
		Str("timestamp", now.Format(time.RFC3339)).
		Msg("audit")

	row := &models.AuditLog{
		Action:    entry.Action,
		UserID:    entry.UserID,
		UserRole:  entry.UserRole,
		BackupID:  entry.BackupID,
		Filename:  entry.Filename,
		FileSize:  entry.FileSize,
		ClientIP:  entry.ClientIP,
		CreatedAt: now,
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("failed to persist audit entry: %w", err)
	}
	return nil
}
