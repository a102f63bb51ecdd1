package backup

import (
	"context"
	"time"

	"github.com/teamboard/teamboard/src/internal/database/models"
)

// CreateOptions controls one backup creation
type CreateOptions struct {
	Directory  string // output directory; defaults to the configured one
	Filename   string // base name without extension; restricted charset
	Compress   bool
	SchemaOnly bool
	DataOnly   bool
	CreatedBy  string // user id, optional
}

// Result is the outcome of a creation attempt. Failed attempts still carry
// the registered record so operators can diagnose them via list.
type Result struct {
	Success  bool
	Record   *models.Backup
	Err      string
	Duration time.Duration
}

// RetentionPolicy decides which records are eligible for cleanup
type RetentionPolicy struct {
	MaxAgeDays    int
	IncludeFailed bool // sweep failed records too, not only successful ones
}

// CleanupResult summarizes a retention pass. Per-file failures are
// collected; the batch never aborts.
type CleanupResult struct {
	Removed    int
	FreedSpace int64
	Errors     []string
}

// DumpRequest instructs the external dump tool
type DumpRequest struct {
	OutputPath string
	SchemaOnly bool
	DataOnly   bool
	Compress   bool
}

// DumpTool abstracts the pg_dump-style database exporter. The real
// implementation shells out; tests substitute fakes.
type DumpTool interface {
	Dump(ctx context.Context, req DumpRequest) error
}
