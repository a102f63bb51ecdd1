package backup

import (
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamboard/teamboard/src/internal/database/models"
	apperrors "github.com/teamboard/teamboard/src/internal/errors"
)

// Store owns the backup catalog. Records are independent of each other;
// list and cleanup interleave freely with create and download of unrelated
// records.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a catalog store backed by the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListFilter narrows List results
type ListFilter struct {
	Status string
	Limit  int
}

// Register inserts a new catalog record
func (s *Store) Register(record *models.Backup) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if err := s.db.Create(record).Error; err != nil {
		return apperrors.Storage("failed to register backup record", err)
	}
	return nil
}

// Find returns the record for the given id
func (s *Store) Find(id uuid.UUID) (*models.Backup, error) {
	var record models.Backup
	err := s.db.First(&record, "id = ?", id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("backup", id.String())
		}
		return nil, apperrors.Storage("failed to look up backup record", err)
	}
	return &record, nil
}

// FindByPath returns the record whose artifact lives at the given path
func (s *Store) FindByPath(path string) (*models.Backup, error) {
	var record models.Backup
	err := s.db.First(&record, "file_path = ?", path).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("backup", path)
		}
		return nil, apperrors.Storage("failed to look up backup record", err)
	}
	return &record, nil
}

// List returns records ordered by creation time, newest first
func (s *Store) List(filter ListFilter) ([]models.Backup, error) {
	query := s.db.Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []models.Backup
	if err := query.Find(&records).Error; err != nil {
		return nil, apperrors.Storage("failed to list backup records", err)
	}
	return records, nil
}

// UpdateStatus transitions a record to a terminal status, capturing the
// final metadata. Records in a terminal status are never mutated again.
func (s *Store) UpdateStatus(record *models.Backup) error {
	if err := s.db.Save(record).Error; err != nil {
		return apperrors.Storage("failed to update backup record", err)
	}
	return nil
}

// Delete removes a catalog record without touching the file. File removal
// is the caller's concern (see Cleanup and Service.Delete).
func (s *Store) Delete(id uuid.UUID) error {
	result := s.db.Delete(&models.Backup{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Storage("failed to delete backup record", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("backup", id.String())
	}
	return nil
}

// ListEligibleForCleanup returns records older than the policy allows,
// newest first. Eligibility is strictly age-based: now - createdAt beyond
// MaxAgeDays. With IncludeFailed false, failed records are spared.
func (s *Store) ListEligibleForCleanup(policy RetentionPolicy) ([]models.Backup, error) {
	cutoff := s.now().AddDate(0, 0, -policy.MaxAgeDays)

	query := s.db.Order("created_at DESC").Where("created_at < ?", cutoff)
	if !policy.IncludeFailed {
		query = query.Where("status <> ?", models.BackupStatusFailed)
	}

	var records []models.Backup
	if err := query.Find(&records).Error; err != nil {
		return nil, apperrors.Storage("failed to select cleanup candidates", err)
	}
	return records, nil
}
