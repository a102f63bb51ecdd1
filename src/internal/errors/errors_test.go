package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("MessageAndCause", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := Storage("failed to write dump", cause)
		assert.Equal(t, "failed to write dump: disk full", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Details", func(t *testing.T) {
		err := NotFound("backup", "abc-123")
		assert.Equal(t, "backup", err.Details["resource"])
		assert.Equal(t, "abc-123", err.Details["id"])
	})
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    *AppError
		kind   Kind
		status int
	}{
		{AdmissionDenied(30 * time.Second), KindAdmissionDenied, http.StatusTooManyRequests},
		{Validation("bad name"), KindValidation, http.StatusBadRequest},
		{NotFound("backup", "x"), KindNotFound, http.StatusNotFound},
		{Integrity("size mismatch"), KindIntegrity, http.StatusInternalServerError},
		{Auth("forbidden", http.StatusForbidden), KindAuth, http.StatusForbidden},
		{Transfer("stream aborted", nil), KindTransfer, http.StatusInternalServerError},
		{Storage("catalog write failed", nil), KindStorage, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind)
		assert.Equal(t, tc.status, tc.err.StatusCode)
	}

	assert.Equal(t, 30, AdmissionDenied(30*time.Second).Details["retry_after_seconds"])
}

func TestKindExtraction(t *testing.T) {
	base := NotFound("backup", "x")
	wrapped := fmt.Errorf("handling request: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindValidation))

	plain := fmt.Errorf("boom")
	assert.Equal(t, KindServer, KindOf(plain))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.False(t, IsKind(plain, KindServer))
}
