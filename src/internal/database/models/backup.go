package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Backup statuses. A record never leaves a terminal status except by deletion.
const (
	BackupStatusInProgress = "in_progress"
	BackupStatusSuccess    = "success"
	BackupStatusFailed     = "failed"
)

// Backup represents one backup artifact in the catalog
type Backup struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Filename    string    `gorm:"size:255;not null"`
	FilePath    string    `gorm:"size:500;not null"` // absolute, server-local
	Size        int64     `gorm:"not null"`          // bytes, authoritative at creation
	Checksum    string    `gorm:"size:128"`
	ChecksumAlg string    `gorm:"size:16;default:'sha256'"`
	Status      string    `gorm:"size:20;default:'in_progress';index"`
	Error       string    `gorm:"size:1000"` // captured failure message
	DurationMS  int64     `gorm:"default:0"`
	Compressed  bool      `gorm:"default:false"`
	SchemaOnly  bool      `gorm:"default:false"`
	DataOnly    bool      `gorm:"default:false"`
	CreatedBy   string    `gorm:"size:64"` // user id, optional
	CreatedAt   time.Time `gorm:"not null;index"`
}

// BeforeCreate hook
func (b *Backup) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsTerminal returns true once the backup reached success or failed
func (b *Backup) IsTerminal() bool {
	return b.Status == BackupStatusSuccess || b.Status == BackupStatusFailed
}

// Downloadable returns true if the record may be served to clients
func (b *Backup) Downloadable() bool {
	return b.Status == BackupStatusSuccess
}

// Age returns how long ago the backup was created
func (b *Backup) Age(now time.Time) time.Duration {
	return now.Sub(b.CreatedAt)
}

// ContentType returns the MIME type used when serving the file
func (b *Backup) ContentType() string {
	if b.Compressed {
		return "application/gzip"
	}
	return "application/sql"
}

// HumanReadableSize returns size in human readable format
func (b *Backup) HumanReadableSize() string {
	const unit = 1024
	if b.Size < unit {
		return fmt.Sprintf("%d B", b.Size)
	}
	div, exp := int64(unit), 0
	for n := b.Size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b.Size)/float64(div), "KMGTPE"[exp])
}
