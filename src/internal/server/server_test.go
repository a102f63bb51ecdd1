package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/teamboard/teamboard/src/internal/auth"
	"github.com/teamboard/teamboard/src/internal/backup"
	"github.com/teamboard/teamboard/src/internal/database/models"
	"github.com/teamboard/teamboard/src/internal/logging"
)

const testJWTSecret = "server-test-secret"

type scriptedDumpTool struct {
	content []byte
}

func (s *scriptedDumpTool) Dump(ctx context.Context, req backup.DumpRequest) error {
	return os.WriteFile(req.OutputPath, s.content, 0o644)
}

func newTestServer(t *testing.T, configure ...func(*viper.Viper)) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Backup{}, &models.AuditLog{}))

	cfg := viper.New()
	cfg.Set("backup.directory", t.TempDir())
	cfg.Set("auth.jwt_secret", testJWTSecret)
	cfg.Set("transfer.range_support", true)
	cfg.Set("ratelimit.sweep_interval", "1h")
	for _, fn := range configure {
		fn(cfg)
	}

	tool := &scriptedDumpTool{content: []byte("-- dump\nCREATE TABLE boards (id uuid);\n")}
	srv, err := New(cfg, db, tool, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func issueToken(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.NewJWTProvider(testJWTSecret).IssueToken("u1", role, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealthIsOpen(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/backups", "/backup/download/not-an-id"} {
		rec := doRequest(srv, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
		payload := decodeJSON(t, rec)
		assert.Equal(t, "authentication required", payload["error"], "path %s", path)
	}

	rec := doRequest(srv, http.MethodGet, "/api/v1/backups", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, "authentication required", payload["error"])
}

func TestBackupLifecycle(t *testing.T) {
	srv := newTestServer(t)
	admin := issueToken(t, auth.RoleAdmin)

	// Create
	rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{"name":"nightly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON(t, rec)
	assert.Equal(t, "success", created["status"])
	assert.Equal(t, "nightly.sql", created["filename"])
	id := created["id"].(string)

	// List
	rec = doRequest(srv, http.MethodGet, "/api/v1/backups", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeJSON(t, rec)
	assert.EqualValues(t, 1, listed["total"])

	// Info
	rec = doRequest(srv, http.MethodGet, "/api/v1/backups/"+id, admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeJSON(t, rec)
	assert.Equal(t, id, info["id"])

	// Download
	rec = doRequest(srv, http.MethodGet, "/backup/download/"+id, admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/sql", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="nightly.sql"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Contains(t, rec.Body.String(), "CREATE TABLE boards")

	// Ranged download
	req := httptest.NewRequest(http.MethodGet, "/backup/download/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Range", "bytes=0-6")
	ranged := httptest.NewRecorder()
	srv.Echo().ServeHTTP(ranged, req)
	require.Equal(t, http.StatusPartialContent, ranged.Code)
	assert.Equal(t, "-- dump", ranged.Body.String())
	assert.NotEmpty(t, ranged.Header().Get("Content-Range"))

	// Cleanup dry run finds nothing young
	rec = doRequest(srv, http.MethodPost, "/api/v1/backups/cleanup", admin, `{"days":30,"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cleanup := decodeJSON(t, rec)
	assert.EqualValues(t, 0, cleanup["removed"])
	assert.Equal(t, true, cleanup["dry_run"])

	// Delete
	rec = doRequest(srv, http.MethodDelete, "/api/v1/backups/"+id, admin, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(srv, http.MethodGet, "/api/v1/backups/"+id, admin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRolePolicy(t *testing.T) {
	srv := newTestServer(t)
	admin := issueToken(t, auth.RoleAdmin)
	viewer := issueToken(t, auth.RoleViewer)
	manager := issueToken(t, auth.RoleManager)

	rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeJSON(t, rec)["id"].(string)

	t.Run("ViewerCannotCreate", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups", viewer, `{}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ViewerCannotDownload", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/backup/download/"+id, viewer, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ManagerCanDownloadButNotDelete", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/backup/download/"+id, manager, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(srv, http.MethodDelete, "/api/v1/backups/"+id, manager, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ViewerCanList", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/backups", viewer, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	admin := issueToken(t, auth.RoleAdmin)

	t.Run("BadBackupID", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/backups/not-a-uuid", admin, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownBackupID", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/backups/6a9c33ce-6878-4a85-a067-2ea7ad08ae1f", admin, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ConflictingDumpModes", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{"schema_only":true,"data_only":true}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		payload := decodeJSON(t, rec)
		assert.Contains(t, payload["error"], "mutually exclusive")
	})

	t.Run("BadBackupName", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{"name":"../escape"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NegativeCleanupDays", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups/cleanup", admin, `{"days":-5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimitHeadersOnAPI(t *testing.T) {
	srv := newTestServer(t)
	admin := issueToken(t, auth.RoleAdmin)

	// Default admin create limit is 10/hour
	for i := 0; i < 10; i++ {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitDisabled(t *testing.T) {
	srv := newTestServer(t, func(cfg *viper.Viper) {
		cfg.Set("ratelimit.enabled", false)
	})
	admin := issueToken(t, auth.RoleAdmin)

	// Well past the default admin create limit of 10/hour
	for i := 0; i < 12; i++ {
		rec := doRequest(srv, http.MethodPost, "/api/v1/backups", admin, `{}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}
}
