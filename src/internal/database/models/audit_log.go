package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records one authorized download attempt that passed integrity
// checks. Rows are written before the first byte is transmitted, so coverage
// does not depend on the client finishing the transfer.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Action    string    `gorm:"size:50;not null;index"`
	UserID    string    `gorm:"size:64;index"`
	UserRole  string    `gorm:"size:20"`
	BackupID  string    `gorm:"size:64;index"`
	Filename  string    `gorm:"size:255"`
	FileSize  int64     `gorm:"default:0"`
	ClientIP  string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// BeforeCreate hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
