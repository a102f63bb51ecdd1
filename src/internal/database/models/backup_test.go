package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackupStatus(t *testing.T) {
	assert.False(t, (&Backup{Status: BackupStatusInProgress}).IsTerminal())
	assert.True(t, (&Backup{Status: BackupStatusSuccess}).IsTerminal())
	assert.True(t, (&Backup{Status: BackupStatusFailed}).IsTerminal())

	assert.True(t, (&Backup{Status: BackupStatusSuccess}).Downloadable())
	assert.False(t, (&Backup{Status: BackupStatusFailed}).Downloadable())
	assert.False(t, (&Backup{Status: BackupStatusInProgress}).Downloadable())
}

func TestBackupAge(t *testing.T) {
	now := time.Now()
	b := &Backup{CreatedAt: now.Add(-48 * time.Hour)}
	assert.Equal(t, 48*time.Hour, b.Age(now))
}

func TestBackupContentType(t *testing.T) {
	assert.Equal(t, "application/sql", (&Backup{}).ContentType())
	assert.Equal(t, "application/gzip", (&Backup{Compressed: true}).ContentType())
}

func TestHumanReadableSize(t *testing.T) {
	cases := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, (&Backup{Size: tc.size}).HumanReadableSize())
	}
}
