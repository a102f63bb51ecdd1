package transfer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

// streamChunkSize bounds how much is read from disk per pull
const streamChunkSize = 32 * 1024

// stream is a pull-based byte source over an open file region. Cancellation
// is simply the consumer stopping: a cancelled context or a Close releases
// the underlying file handle. Source read errors propagate; a short file is
// reported, never silently truncated.
type stream struct {
	ctx       context.Context
	src       io.ReadCloser
	remaining int64
	limiter   *rate.Limiter

	closeOnce sync.Once
	closeErr  error
}

// newStream wraps src, serving exactly length bytes
func newStream(ctx context.Context, src io.ReadCloser, length int64, limiter *rate.Limiter) *stream {
	return &stream{
		ctx:       ctx,
		src:       src,
		remaining: length,
		limiter:   limiter,
	}
}

// Read implements io.Reader
func (s *stream) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		s.Close()
		return 0, err
	}
	if s.remaining <= 0 {
		return 0, io.EOF
	}

	want := int64(len(p))
	if want > streamChunkSize {
		want = streamChunkSize
	}
	if want > s.remaining {
		want = s.remaining
	}

	n, err := s.src.Read(p[:want])
	s.remaining -= int64(n)

	if s.limiter != nil && n > 0 {
		if werr := s.limiter.WaitN(s.ctx, n); werr != nil {
			s.Close()
			return n, werr
		}
	}

	if err == io.EOF && s.remaining > 0 {
		// The file shrank underneath us (for example a concurrent
		// retention sweep); surface it instead of truncating.
		return n, fmt.Errorf("source truncated with %d bytes remaining", s.remaining)
	}
	return n, err
}

// Close releases the source. Safe to call more than once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}
