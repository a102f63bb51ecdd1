// Package transfer serves backup files to authenticated operators. Every
// download re-validates integrity against the catalog before the first
// byte leaves the process.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/teamboard/teamboard/src/internal/audit"
	"github.com/teamboard/teamboard/src/internal/auth"
	"github.com/teamboard/teamboard/src/internal/backup"
	apperrors "github.com/teamboard/teamboard/src/internal/errors"
	"github.com/teamboard/teamboard/src/internal/integrity"
)

// DefaultMemoryThreshold is the size below which files are buffered in
// memory rather than streamed.
const DefaultMemoryThreshold = 50 * 1024 * 1024

// Config tunes transfer behavior per deployment
type Config struct {
	// MemoryThreshold is the buffered-vs-streamed cutover in bytes
	MemoryThreshold int64

	// RangeSupport enables byte-range requests. Disabled, Range headers
	// are ignored and the full body is served with a 200.
	RangeSupport bool

	// ThrottleBytesPerSec caps per-download bandwidth; zero is unthrottled
	ThrottleBytesPerSec int
}

// Request identifies what to serve and to whom
type Request struct {
	BackupID    uuid.UUID
	UserID      string
	Role        auth.Role
	ClientIP    string
	RangeHeader string
}

// Download is the prepared response: status, headers and a lazy body. The
// body must be closed by the consumer; closing is also how a client
// disconnect releases the file handle.
type Download struct {
	Status        int
	ContentType   string
	Filename      string
	ContentLength int64
	ContentRange  string
	AcceptRanges  bool
	Body          io.ReadCloser
}

// Handler coordinates catalog lookup, integrity validation, audit emission
// and body construction.
type Handler struct {
	store  *backup.Store
	audit  *audit.Service
	cfg    Config
	logger zerolog.Logger
}

// NewHandler creates a transfer handler
func NewHandler(store *backup.Store, auditSvc *audit.Service, cfg Config, logger zerolog.Logger) *Handler {
	if cfg.MemoryThreshold <= 0 {
		cfg.MemoryThreshold = DefaultMemoryThreshold
	}
	return &Handler{store: store, audit: auditSvc, cfg: cfg, logger: logger}
}

// Serve validates and prepares one download. Errors map to the taxonomy:
// auth faults, not-found, not-ready (validation), integrity faults. The
// audit entry is emitted exactly once, after validation passes and before
// any bytes are transmitted, so coverage does not depend on the client
// finishing the download.
func (h *Handler) Serve(ctx context.Context, req Request) (*Download, error) {
	if !req.Role.CanDownloadBackups() {
		return nil, apperrors.Auth("insufficient permissions to download backups", http.StatusForbidden)
	}

	record, err := h.store.Find(req.BackupID)
	if err != nil {
		return nil, err
	}

	if !record.Downloadable() {
		return nil, apperrors.Validation(
			fmt.Sprintf("backup is not downloadable (status: %s)", record.Status))
	}

	// The catalog says success; make sure reality agrees
	info, err := os.Stat(record.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("backup file", record.Filename).WithCause(err)
		}
		return nil, apperrors.Storage("failed to stat backup file", err)
	}

	// Cheap size cross-check first; a mismatch means the record is
	// corrupted and no checksum is worth computing.
	if info.Size() != record.Size {
		h.logger.Error().
			Str("backup_id", record.ID.String()).
			Int64("expected_size", record.Size).
			Int64("actual_size", info.Size()).
			Msg("backup corrupted: size mismatch")
		return nil, apperrors.Integrity("backup file is corrupted")
	}

	alg, err := integrity.ParseAlgorithm(record.ChecksumAlg)
	if err != nil {
		return nil, apperrors.Integrity("backup record carries an unknown checksum algorithm").WithCause(err)
	}
	report, err := integrity.Verify(record.FilePath, record.Checksum, record.Size, alg)
	if err != nil {
		return nil, err
	}
	if !report.Valid {
		h.logger.Error().
			Str("backup_id", record.ID.String()).
			Strs("errors", report.Errors).
			Msg("backup failed integrity validation")
		return nil, apperrors.Integrity("backup failed integrity validation")
	}

	if err := h.audit.Record(audit.Entry{
		Action:   audit.ActionDownload,
		UserID:   req.UserID,
		UserRole: string(req.Role),
		BackupID: record.ID.String(),
		Filename: record.Filename,
		FileSize: record.Size,
		ClientIP: req.ClientIP,
	}); err != nil {
		// Downloads must not proceed unaudited
		return nil, apperrors.Storage("failed to record audit entry", err)
	}

	download := &Download{
		Status:       http.StatusOK,
		ContentType:  record.ContentType(),
		Filename:     SanitizeFilename(record.Filename),
		AcceptRanges: h.cfg.RangeSupport,
	}

	offset, length := int64(0), record.Size
	if h.cfg.RangeSupport && req.RangeHeader != "" {
		r, ok, err := parseRange(req.RangeHeader, record.Size)
		if err != nil {
			return nil, err
		}
		if ok {
			offset, length = r.start, r.length
			download.Status = http.StatusPartialContent
			download.ContentRange = fmt.Sprintf("bytes %d-%d/%d",
				r.start, r.start+r.length-1, record.Size)
		}
	}
	download.ContentLength = length

	body, err := h.openBody(ctx, record.FilePath, offset, length)
	if err != nil {
		return nil, err
	}
	download.Body = body

	return download, nil
}

// openBody returns the byte source for the requested region. Small bodies
// are buffered whole; larger ones stream from disk in chunks. Locks are
// never held here; the catalog was only touched for metadata.
func (h *Handler) openBody(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted between validation and open; a known race with
			// concurrent cleanup.
			return nil, apperrors.NotFound("backup file", path).WithCause(err)
		}
		return nil, apperrors.Transfer("failed to open backup file", err)
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, apperrors.Transfer("failed to seek to range start", err)
		}
	}

	if length < h.cfg.MemoryThreshold {
		buf := make([]byte, length)
		_, err := io.ReadFull(f, buf)
		f.Close()
		if err != nil {
			return nil, apperrors.Transfer("failed to buffer backup file", err)
		}
		return io.NopCloser(bytes.NewReader(buf)), nil
	}

	return newStream(ctx, f, length, h.throttle()), nil
}

func (h *Handler) throttle() *rate.Limiter {
	if h.cfg.ThrottleBytesPerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(h.cfg.ThrottleBytesPerSec), streamChunkSize)
}
