package transfer

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/teamboard/teamboard/src/internal/errors"
)

type byteRange struct {
	start  int64
	length int64
}

// parseRange interprets a single-range bytes header against a resource of
// the given size. A malformed or multi-range header falls back to the full
// body (ok=false) rather than erroring; a syntactically valid but
// unsatisfiable range yields 416.
func parseRange(header string, size int64) (byteRange, bool, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, false, nil
	}
	spec := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if spec == "" || strings.Contains(spec, ",") {
		// Multi-range responses are not supported; serve the full body
		return byteRange{}, false, nil
	}

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, false, nil
	}
	startPart := strings.TrimSpace(spec[:dash])
	endPart := strings.TrimSpace(spec[dash+1:])

	if startPart == "" {
		// Suffix range: last N bytes
		n, err := strconv.ParseInt(endPart, 10, 64)
		if err != nil || n <= 0 {
			return byteRange{}, false, nil
		}
		if n > size {
			n = size
		}
		return byteRange{start: size - n, length: n}, true, nil
	}

	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false, nil
	}
	if start >= size {
		return byteRange{}, false, apperrors.New(apperrors.KindValidation,
			"requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	}

	end := size - 1
	if endPart != "" {
		end, err = strconv.ParseInt(endPart, 10, 64)
		if err != nil || end < start {
			return byteRange{}, false, nil
		}
		if end >= size {
			end = size - 1
		}
	}

	return byteRange{start: start, length: end - start + 1}, true, nil
}
