// Package ratelimit implements fixed-window admission control for backup
// operations, keyed by user, role, operation and optionally the client IP.
// State lives in process memory; the catalog database is never consulted.
package ratelimit

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/teamboard/teamboard/src/internal/auth"
)

// DefaultSweepInterval is how often expired entries are garbage collected.
// Sweeping is memory hygiene only; expiry is re-checked lazily on access.
const DefaultSweepInterval = 5 * time.Minute

// Decision is the outcome of an admission check
type Decision struct {
	Allowed    bool
	Remaining  int // -1 means unlimited
	ResetAt    time.Time
	RetryAfter time.Duration // set only when denied
}

// Unlimited reports whether no rule applied to the request
func (d Decision) Unlimited() bool {
	return d.Remaining < 0
}

// RetryAfterSeconds returns the denial backoff rounded up to whole seconds
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

type entry struct {
	count         int
	windowResetAt time.Time
	lastRequestAt time.Time
}

// EntrySnapshot is a read-only copy of one window counter
type EntrySnapshot struct {
	Key           string
	Count         int
	WindowResetAt time.Time
	LastRequestAt time.Time
}

// Limiter is the admission control service. Construct with New, inject
// where needed, and call Stop at shutdown to cancel the sweep timer.
type Limiter struct {
	mu      sync.Mutex
	rules   Rules
	entries map[string]*entry

	now           func() time.Time
	sweepInterval time.Duration
	stopOnce      sync.Once
	done          chan struct{}
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepInterval changes the background sweep cadence. A non-positive
// interval disables the background sweeper entirely.
func WithSweepInterval(interval time.Duration) Option {
	return func(l *Limiter) { l.sweepInterval = interval }
}

// New creates a limiter with the given rule table and starts the
// periodic sweep goroutine.
func New(rules Rules, opts ...Option) *Limiter {
	l := &Limiter{
		rules:         rules,
		entries:       make(map[string]*entry),
		now:           time.Now,
		done:          make(chan struct{}),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sweepInterval > 0 {
		go l.sweepLoop(l.sweepInterval)
	}
	return l
}

// Stop cancels the sweep timer. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Check performs one admission decision and mutates the window counter.
// The read-check-increment is atomic per key under the table mutex, so two
// concurrent requests can never both slip past the true limit. ip may be
// empty for a per-user-global key.
func (l *Limiter) Check(userID string, role auth.Role, op Operation, ip string) Decision {
	rule, limited := l.rules[RuleKey{Role: role, Operation: op}]
	if !limited {
		// No rule configured means unlimited, not denied
		return Decision{Allowed: true, Remaining: -1}
	}

	key := entryKey(userID, op, ip)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.windowResetAt) {
		e = &entry{windowResetAt: now.Add(rule.Window)}
		l.entries[key] = e
	}
	e.count++
	e.lastRequestAt = now

	d := Decision{
		Allowed: e.count <= rule.MaxRequests,
		ResetAt: e.windowResetAt,
	}
	d.Remaining = rule.MaxRequests - e.count
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = e.windowResetAt.Sub(now)
	}
	return d
}

// ResetUser removes all counters for a user. With op set, only that
// operation's counters are removed. Returns the number of removed entries.
func (l *Limiter) ResetUser(userID string, op *Operation) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := userID + ":"
	if op != nil {
		prefix += string(*op)
	}

	removed := 0
	for key := range l.entries {
		if op == nil {
			if strings.HasPrefix(key, prefix) {
				delete(l.entries, key)
				removed++
			}
			continue
		}
		if key == prefix || strings.HasPrefix(key, prefix+":") {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of all live counters for a user, keyed by
// operation. Purely informational; windows are not touched.
func (l *Limiter) Stats(userID string) map[Operation][]EntrySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[Operation][]EntrySnapshot)
	prefix := userID + ":"
	for key, e := range l.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		opPart := rest
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			opPart = rest[:i]
		}
		op, err := ParseOperation(opPart)
		if err != nil {
			continue
		}
		stats[op] = append(stats[op], EntrySnapshot{
			Key:           key,
			Count:         e.count,
			WindowResetAt: e.windowResetAt,
			LastRequestAt: e.lastRequestAt,
		})
	}
	return stats
}

// Sweep removes all entries whose window has expired and returns how many
// were dropped. Denial decisions never depend on this having run.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if !now.Before(e.windowResetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.done:
			return
		}
	}
}

func entryKey(userID string, op Operation, ip string) string {
	// Including the IP isolates otherwise-identical (user, operation)
	// pairs per network origin.
	if ip == "" {
		return userID + ":" + string(op)
	}
	return userID + ":" + string(op) + ":" + ip
}
