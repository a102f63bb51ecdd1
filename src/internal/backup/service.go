package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teamboard/teamboard/src/internal/audit"
	"github.com/teamboard/teamboard/src/internal/database/models"
	apperrors "github.com/teamboard/teamboard/src/internal/errors"
	"github.com/teamboard/teamboard/src/internal/integrity"
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Service orchestrates backup creation: validation, dump invocation,
// integrity verification and catalog registration.
type Service struct {
	store       *Store
	tool        DumpTool
	audit       *audit.Service
	logger      zerolog.Logger
	defaultDir  string
	checksumAlg integrity.Algorithm
	now         func() time.Time
}

// NewService creates the orchestrator. auditSvc may be nil, which drops
// lifecycle audit entries; download auditing lives in transfer and is
// never optional.
func NewService(store *Store, tool DumpTool, auditSvc *audit.Service, defaultDir string, alg integrity.Algorithm, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		tool:        tool,
		audit:       auditSvc,
		logger:      logger,
		defaultDir:  defaultDir,
		checksumAlg: alg,
		now:         time.Now,
	}
}

// recordAudit is best-effort for lifecycle events: the operation already
// happened, so a failed audit write is logged rather than unwound.
func (s *Service) recordAudit(entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", entry.Action).
			Msg("failed to record audit entry")
	}
}

// Store exposes the catalog for read paths (list, info)
func (s *Service) Store() *Store {
	return s.store
}

// Create runs one backup attempt. Option validation happens before the dump
// tool is ever invoked. Any failure past registration transitions the
// record to failed with a captured message; failed attempts stay visible in
// the catalog. Creation is not cancellable mid-flight: a partially written
// file is recorded as failed, never silently abandoned.
func (s *Service) Create(ctx context.Context, options CreateOptions) (*Result, error) {
	if err := s.validateOptions(&options); err != nil {
		return nil, err
	}

	id := uuid.New()
	filename := options.Filename
	if filename == "" {
		filename = fmt.Sprintf("teamboard-backup-%s-%s",
			s.now().Format("20060102-150405"), id.String()[:8])
	}
	filename += ".sql"
	if options.Compress {
		filename += ".gz"
	}
	outputPath := filepath.Join(options.Directory, filename)

	record := &models.Backup{
		ID:          id,
		Filename:    filename,
		FilePath:    outputPath,
		Status:      models.BackupStatusInProgress,
		ChecksumAlg: string(s.checksumAlg),
		Compressed:  options.Compress,
		SchemaOnly:  options.SchemaOnly,
		DataOnly:    options.DataOnly,
		CreatedBy:   options.CreatedBy,
	}
	if err := s.store.Register(record); err != nil {
		return nil, err
	}

	start := s.now()
	if err := s.runDump(ctx, record, options); err != nil {
		return s.fail(record, start, err), nil
	}

	record.Status = models.BackupStatusSuccess
	record.DurationMS = s.now().Sub(start).Milliseconds()
	if err := s.store.UpdateStatus(record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("backup_id", record.ID.String()).
		Str("filename", record.Filename).
		Int64("size", record.Size).
		Int64("duration_ms", record.DurationMS).
		Msg("backup created")

	s.recordAudit(audit.Entry{
		Action:   audit.ActionCreate,
		UserID:   record.CreatedBy,
		BackupID: record.ID.String(),
		Filename: record.Filename,
		FileSize: record.Size,
	})

	return &Result{
		Success:  true,
		Record:   record,
		Duration: time.Duration(record.DurationMS) * time.Millisecond,
	}, nil
}

func (s *Service) runDump(ctx context.Context, record *models.Backup, options CreateOptions) error {
	err := s.tool.Dump(ctx, DumpRequest{
		OutputPath: record.FilePath,
		SchemaOnly: options.SchemaOnly,
		DataOnly:   options.DataOnly,
		Compress:   options.Compress,
	})
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}

	info, err := os.Stat(record.FilePath)
	if err != nil {
		return fmt.Errorf("dump produced no readable file: %w", err)
	}
	record.Size = info.Size()

	checksum, err := integrity.ComputeChecksum(record.FilePath, s.checksumAlg)
	if err != nil {
		return fmt.Errorf("checksum computation failed: %w", err)
	}
	record.Checksum = checksum

	// Verify the just-written file before declaring success
	report, err := integrity.Verify(record.FilePath, record.Checksum, record.Size, s.checksumAlg)
	if err != nil {
		return fmt.Errorf("post-write verification failed: %w", err)
	}
	if !report.Valid {
		return fmt.Errorf("post-write verification failed: %v", report.Errors)
	}
	return nil
}

func (s *Service) fail(record *models.Backup, start time.Time, cause error) *Result {
	record.Status = models.BackupStatusFailed
	record.Error = cause.Error()
	record.DurationMS = s.now().Sub(start).Milliseconds()
	if err := s.store.UpdateStatus(record); err != nil {
		s.logger.Error().Err(err).
			Str("backup_id", record.ID.String()).
			Msg("failed to record backup failure")
	}

	s.logger.Error().
		Str("backup_id", record.ID.String()).
		Str("error", record.Error).
		Msg("backup failed")

	return &Result{
		Success:  false,
		Record:   record,
		Err:      record.Error,
		Duration: time.Duration(record.DurationMS) * time.Millisecond,
	}
}

// Delete removes the backup file and its catalog record. deletedBy is the
// requesting user id; empty for local CLI invocations.
func (s *Service) Delete(id uuid.UUID, deletedBy string) error {
	record, err := s.store.Find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
		return apperrors.Storage("failed to delete backup file", err)
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.recordAudit(audit.Entry{
		Action:   audit.ActionDelete,
		UserID:   deletedBy,
		BackupID: record.ID.String(),
		Filename: record.Filename,
		FileSize: record.Size,
	})
	return nil
}

// Cleanup runs one retention pass and audits it. requestedBy is the
// requesting user id; empty for local CLI invocations. Dry runs go through
// the store's SimulateCleanup directly and are not audited.
func (s *Service) Cleanup(policy RetentionPolicy, requestedBy string) (*CleanupResult, error) {
	result, err := s.store.Cleanup(policy)
	if err != nil {
		return nil, err
	}

	s.recordAudit(audit.Entry{
		Action:   audit.ActionCleanup,
		UserID:   requestedBy,
		FileSize: result.FreedSpace,
	})
	return result, nil
}

func (s *Service) validateOptions(options *CreateOptions) error {
	if options.SchemaOnly && options.DataOnly {
		return apperrors.Validation("schema-only and data-only are mutually exclusive")
	}

	if options.Filename != "" && !filenamePattern.MatchString(options.Filename) {
		return apperrors.Validation("backup name may only contain letters, digits, underscores and dashes")
	}

	if options.Directory == "" {
		options.Directory = s.defaultDir
	}
	info, err := os.Stat(options.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.Validation(fmt.Sprintf("output directory does not exist: %s", options.Directory))
		}
		return apperrors.Storage("failed to inspect output directory", err)
	}
	if !info.IsDir() {
		return apperrors.Validation(fmt.Sprintf("output path is not a directory: %s", options.Directory))
	}

	// Writability probe; permission bits alone are unreliable across mounts
	probe := filepath.Join(options.Directory, ".teamboard-write-check")
	f, err := os.Create(probe)
	if err != nil {
		return apperrors.Validation(fmt.Sprintf("output directory is not writable: %s", options.Directory))
	}
	f.Close()
	os.Remove(probe)

	return nil
}
