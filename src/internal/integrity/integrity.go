// Package integrity computes and verifies backup file checksums.
package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	apperrors "github.com/teamboard/teamboard/src/internal/errors"
)

// Algorithm selects the digest used for a backup file
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	MD5    Algorithm = "md5" // legacy records only
)

// ParseAlgorithm converts a string into a supported algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case SHA256, "":
		return SHA256, nil
	case MD5:
		return MD5, nil
	}
	return "", fmt.Errorf("unsupported checksum algorithm: %q", s)
}

func (a Algorithm) newHash() hash.Hash {
	if a == MD5 {
		return md5.New()
	}
	return sha256.New()
}

// Report is the outcome of a verification. Expected mismatches are listed
// in Errors; they are results, not thrown errors.
type Report struct {
	Valid  bool
	Errors []string
}

// ComputeChecksum reads the whole file and returns its hex digest
func ComputeChecksum(path string, alg Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NotFound("file", path).WithCause(err)
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := alg.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySize runs only the cheap layer: the file's size on disk against
// the recorded size. A missing file is reported as an error so callers can
// distinguish not-found from corrupted.
func VerifySize(path string, expectedSize int64) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, apperrors.NotFound("file", path).WithCause(err)
		}
		return Report{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.Size() != expectedSize {
		return Report{
			Valid: false,
			Errors: []string{fmt.Sprintf("size mismatch: expected %d bytes, found %d",
				expectedSize, info.Size())},
		}, nil
	}
	return Report{Valid: true}, nil
}

// Verify checks the file against the recorded size and checksum. The size
// check runs first and short-circuits: a truncated write is caught without
// paying for a full hash.
func Verify(path, expectedChecksum string, expectedSize int64, alg Algorithm) (Report, error) {
	report, err := VerifySize(path, expectedSize)
	if err != nil || !report.Valid {
		return report, err
	}

	actual, err := ComputeChecksum(path, alg)
	if err != nil {
		return Report{}, err
	}
	if actual != expectedChecksum {
		return Report{
			Valid: false,
			Errors: []string{fmt.Sprintf("checksum mismatch: expected %s, computed %s",
				expectedChecksum, actual)},
		}, nil
	}

	return Report{Valid: true}, nil
}
