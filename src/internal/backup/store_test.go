package backup

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/teamboard/teamboard/src/internal/database/models"
	apperrors "github.com/teamboard/teamboard/src/internal/errors"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Backup{}))
	return db
}

func seedRecord(t *testing.T, store *Store, status string, age time.Duration, size int64) *models.Backup {
	t.Helper()
	record := &models.Backup{
		ID:        uuid.New(),
		Filename:  "dump.sql",
		FilePath:  "/var/backups/" + uuid.NewString() + ".sql",
		Size:      size,
		Status:    status,
		CreatedAt: time.Now().Add(-age),
	}
	require.NoError(t, store.Register(record))
	return record
}

func TestStoreRegisterAndFind(t *testing.T) {
	store := NewStore(setupStoreTestDB(t))

	record := seedRecord(t, store, models.BackupStatusSuccess, 0, 1024)

	found, err := store.Find(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, record.FilePath, found.FilePath)

	byPath, err := store.FindByPath(record.FilePath)
	require.NoError(t, err)
	assert.Equal(t, record.ID, byPath.ID)

	_, err = store.Find(uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = store.FindByPath("/var/backups/nope.sql")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestStoreList(t *testing.T) {
	store := NewStore(setupStoreTestDB(t))

	oldest := seedRecord(t, store, models.BackupStatusSuccess, 3*time.Hour, 100)
	middle := seedRecord(t, store, models.BackupStatusFailed, 2*time.Hour, 200)
	newest := seedRecord(t, store, models.BackupStatusSuccess, time.Hour, 300)

	t.Run("NewestFirst", func(t *testing.T) {
		records, err := store.List(ListFilter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, newest.ID, records[0].ID)
		assert.Equal(t, middle.ID, records[1].ID)
		assert.Equal(t, oldest.ID, records[2].ID)
	})

	t.Run("StatusFilter", func(t *testing.T) {
		records, err := store.List(ListFilter{Status: models.BackupStatusFailed})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, middle.ID, records[0].ID)
	})

	t.Run("Limit", func(t *testing.T) {
		records, err := store.List(ListFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, newest.ID, records[0].ID)
	})
}

func TestStoreUpdateStatus(t *testing.T) {
	store := NewStore(setupStoreTestDB(t))

	record := seedRecord(t, store, models.BackupStatusInProgress, 0, 0)
	record.Status = models.BackupStatusSuccess
	record.Size = 4096
	record.Checksum = "abc"
	require.NoError(t, store.UpdateStatus(record))

	found, err := store.Find(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusSuccess, found.Status)
	assert.Equal(t, int64(4096), found.Size)
	assert.Equal(t, "abc", found.Checksum)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(setupStoreTestDB(t))

	record := seedRecord(t, store, models.BackupStatusSuccess, 0, 1024)
	require.NoError(t, store.Delete(record.ID))

	_, err := store.Find(record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	err = store.Delete(record.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestStoreListEligibleForCleanup(t *testing.T) {
	store := NewStore(setupStoreTestDB(t))

	day := 24 * time.Hour
	fresh := seedRecord(t, store, models.BackupStatusSuccess, 10*day, 100)
	stale := seedRecord(t, store, models.BackupStatusSuccess, 40*day, 200)
	ancient := seedRecord(t, store, models.BackupStatusFailed, 90*day, 300)

	t.Run("AgeBased", func(t *testing.T) {
		eligible, err := store.ListEligibleForCleanup(RetentionPolicy{MaxAgeDays: 30, IncludeFailed: true})
		require.NoError(t, err)
		require.Len(t, eligible, 2)
		// Newest first, fresh record spared
		assert.Equal(t, stale.ID, eligible[0].ID)
		assert.Equal(t, ancient.ID, eligible[1].ID)
		for _, record := range eligible {
			assert.NotEqual(t, fresh.ID, record.ID)
		}
	})

	t.Run("FailedSpared", func(t *testing.T) {
		eligible, err := store.ListEligibleForCleanup(RetentionPolicy{MaxAgeDays: 30, IncludeFailed: false})
		require.NoError(t, err)
		require.Len(t, eligible, 1)
		assert.Equal(t, stale.ID, eligible[0].ID)
	})

	t.Run("NothingEligible", func(t *testing.T) {
		eligible, err := store.ListEligibleForCleanup(RetentionPolicy{MaxAgeDays: 365, IncludeFailed: true})
		require.NoError(t, err)
		assert.Empty(t, eligible)
	})
}
