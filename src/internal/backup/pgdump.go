package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// PgDumpConfig carries the connection settings for the external dump tool
type PgDumpConfig struct {
	Command  string // defaults to pg_dump
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// PgDump shells out to pg_dump. Output goes straight to the target file,
// through gzip when compression is requested, so large databases never
// pass through memory as a whole.
type PgDump struct {
	cfg PgDumpConfig
}

// NewPgDump creates the exec-based dump tool
func NewPgDump(cfg PgDumpConfig) *PgDump {
	if cfg.Command == "" {
		cfg.Command = "pg_dump"
	}
	return &PgDump{cfg: cfg}
}

// Dump implements DumpTool
func (p *PgDump) Dump(ctx context.Context, req DumpRequest) error {
	args := []string{
		"-h", p.cfg.Host,
		"-p", strconv.Itoa(p.cfg.Port),
		"-U", p.cfg.User,
		"-d", p.cfg.Database,
		"--no-owner",
		"--no-acl",
	}
	if req.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if req.DataOnly {
		args = append(args, "--data-only")
	}

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, p.cfg.Command, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+p.cfg.Password)

	if req.Compress {
		gz := gzip.NewWriter(out)
		cmd.Stdout = gz
		if err := runDumpCommand(cmd); err != nil {
			os.Remove(req.OutputPath)
			return err
		}
		if err := gz.Close(); err != nil {
			os.Remove(req.OutputPath)
			return fmt.Errorf("failed to finalize compressed dump: %w", err)
		}
		return nil
	}

	cmd.Stdout = out
	if err := runDumpCommand(cmd); err != nil {
		os.Remove(req.OutputPath)
		return err
	}
	return nil
}

func runDumpCommand(cmd *exec.Cmd) error {
	stderr := &limitedBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (%s)", cmd.Path, err, stderr.String())
	}
	return nil
}

// limitedBuffer keeps the head of stderr for error messages without
// buffering unbounded tool output.
type limitedBuffer struct {
	buf   []byte
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if len(b.buf) < b.limit {
		take := b.limit - len(b.buf)
		if take > len(p) {
			take = len(p)
		}
		b.buf = append(b.buf, p[:take]...)
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return string(b.buf)
}
