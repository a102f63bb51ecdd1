package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apimiddleware "github.com/teamboard/teamboard/src/internal/api/middleware"
	"github.com/teamboard/teamboard/src/internal/auth"
	"github.com/teamboard/teamboard/src/internal/backup"
	"github.com/teamboard/teamboard/src/internal/database/models"
	apperrors "github.com/teamboard/teamboard/src/internal/errors"
	"github.com/teamboard/teamboard/src/internal/ratelimit"
	"github.com/teamboard/teamboard/src/internal/transfer"
)

// BackupHandler exposes the backup lifecycle over HTTP
type BackupHandler struct {
	service  *backup.Service
	transfer *transfer.Handler
	limiter  *ratelimit.Limiter
	logger   zerolog.Logger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(service *backup.Service, transferHandler *transfer.Handler, limiter *ratelimit.Limiter, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		service:  service,
		transfer: transferHandler,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterRoutes registers backup routes. Every route passes the rate
// limiter keyed by its operation; download and delete additionally key by
// client IP.
func (h *BackupHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/api/v1/backups", h.List,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationList, false))
	g.POST("/api/v1/backups", h.Create,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationCreate, false))
	g.GET("/api/v1/backups/:id", h.Info,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationList, false))
	g.DELETE("/api/v1/backups/:id", h.Delete,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationDelete, true))
	g.POST("/api/v1/backups/cleanup", h.Cleanup,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationCleanup, false))
	g.GET("/backup/download/:id", h.Download,
		apimiddleware.RateLimit(h.limiter, ratelimit.OperationDownload, true))
}

type createBackupRequest struct {
	Directory  string `json:"directory"`
	Name       string `json:"name"`
	Compress   bool   `json:"compress"`
	SchemaOnly bool   `json:"schema_only"`
	DataOnly   bool   `json:"data_only"`
}

// Create creates a new backup
func (h *BackupHandler) Create(c echo.Context) error {
	session := auth.SessionFrom(c)
	if !session.Role.CanManageBackups() {
		return respondError(c, apperrors.Auth("admin access required", http.StatusForbidden))
	}

	var req createBackupRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}

	// Creation is deliberately not cancellable by a client disconnect; a
	// partial file must still end up recorded as failed.
	ctx := context.WithoutCancel(c.Request().Context())
	result, err := h.service.Create(ctx, backup.CreateOptions{
		Directory:  req.Directory,
		Filename:   req.Name,
		Compress:   req.Compress,
		SchemaOnly: req.SchemaOnly,
		DataOnly:   req.DataOnly,
		CreatedBy:  session.UserID,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, backupResponse(result.Record))
}

// List returns catalog records, newest first
func (h *BackupHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil || limit < 0 {
			return respondError(c, apperrors.Validation("limit must be a non-negative integer"))
		}
	}

	records, err := h.service.Store().List(backup.ListFilter{
		Status: c.QueryParam("status"),
		Limit:  limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	items := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		items = append(items, backupResponse(&records[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"backups": items,
		"total":   len(items),
	})
}

// Info returns a single catalog record
func (h *BackupHandler) Info(c echo.Context) error {
	id, err := parseBackupID(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	record, err := h.service.Store().Find(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, backupResponse(record))
}

// Delete removes a backup file and its record
func (h *BackupHandler) Delete(c echo.Context) error {
	session := auth.SessionFrom(c)
	if !session.Role.CanManageBackups() {
		return respondError(c, apperrors.Auth("admin access required", http.StatusForbidden))
	}

	id, err := parseBackupID(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.Delete(id, session.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type cleanupRequest struct {
	Days   int  `json:"days" validate:"gte=0"`
	DryRun bool `json:"dry_run"`
}

// Cleanup applies the retention policy, optionally as a dry run
func (h *BackupHandler) Cleanup(c echo.Context) error {
	session := auth.SessionFrom(c)
	if !session.Role.CanManageBackups() {
		return respondError(c, apperrors.Auth("admin access required", http.StatusForbidden))
	}

	req := cleanupRequest{Days: 30}
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperrors.Validation("days must be non-negative"))
	}

	policy := backup.RetentionPolicy{MaxAgeDays: req.Days, IncludeFailed: true}

	var result *backup.CleanupResult
	var err error
	if req.DryRun {
		result, err = h.service.Store().SimulateCleanup(policy)
	} else {
		result, err = h.service.Cleanup(policy, session.UserID)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed":     result.Removed,
		"freed_space": result.FreedSpace,
		"errors":      result.Errors,
		"dry_run":     req.DryRun,
	})
}

// Download streams a backup file to the client
func (h *BackupHandler) Download(c echo.Context) error {
	session := auth.SessionFrom(c)

	id, err := parseBackupID(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	download, err := h.transfer.Serve(c.Request().Context(), transfer.Request{
		BackupID:    id,
		UserID:      session.UserID,
		Role:        session.Role,
		ClientIP:    c.RealIP(),
		RangeHeader: c.Request().Header.Get("Range"),
	})
	if err != nil {
		return respondError(c, err)
	}
	defer download.Body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, download.ContentType)
	header.Set(echo.HeaderContentDisposition, `attachment; filename="`+download.Filename+`"`)
	header.Set(echo.HeaderContentLength, formatInt64(download.ContentLength))
	header.Set("Cache-Control", "no-store")
	header.Set("Pragma", "no-cache")
	if download.AcceptRanges {
		header.Set("Accept-Ranges", "bytes")
	}
	if download.ContentRange != "" {
		header.Set("Content-Range", download.ContentRange)
	}

	c.Response().WriteHeader(download.Status)
	if _, err := io.Copy(c.Response(), download.Body); err != nil {
		// Bytes may already be on the wire; all we can do is log and
		// abort the connection so the client sees a short read.
		h.logger.Warn().Err(err).
			Str("backup_id", id.String()).
			Msg("download aborted mid-stream")
		return err
	}
	return nil
}

func parseBackupID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid backup id")
	}
	return id, nil
}

func backupResponse(record *models.Backup) map[string]interface{} {
	resp := map[string]interface{}{
		"id":          record.ID.String(),
		"filename":    record.Filename,
		"size":        record.Size,
		"size_human":  record.HumanReadableSize(),
		"checksum":    record.Checksum,
		"status":      record.Status,
		"duration_ms": record.DurationMS,
		"compressed":  record.Compressed,
		"created_at":  record.CreatedAt.UTC().Format(time.RFC3339),
	}
	if record.CreatedBy != "" {
		resp["created_by"] = record.CreatedBy
	}
	if record.Error != "" {
		resp["error"] = record.Error
	}
	return resp
}

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}
