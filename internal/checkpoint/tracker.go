package checkpoint

import (
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/warden/internal/ir"
)

// NoTTL creates a checkpoint without an expiry.
const NoTTL time.Duration = -1

// DefaultHistoryLimit bounds the terminal-state log. The oldest entry is
// evicted first.
const DefaultHistoryLimit = 50

// Tracker is the checkpoint state machine. All operations are safe for
// concurrent use; mutations and validity checks share one mutex, which is
// what makes ValidateAndReserve atomic.
type Tracker struct {
	mu       sync.Mutex
	active   *ir.Checkpoint
	reserved bool
	history  []ir.Checkpoint // oldest first

	statePath    string
	historyLimit int
	now          func() time.Time
	newID        func() string
}

// Option adjusts a Tracker at construction.
type Option func(*Tracker)

// WithClock injects the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator injects the checkpoint id source. Defaults to random
// UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historyLimit = n
		}
	}
}

// NewTracker builds a tracker backed by the state file at statePath.
// An empty statePath keeps state in memory only. Unreadable, oversized,
// or structurally invalid state starts fresh; construction never fails
// on bad state.
func NewTracker(statePath string, opts ...Option) *Tracker {
	t := &Tracker{
		statePath:    statePath,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	if statePath != "" {
		if active, history, ok := loadState(statePath); ok {
			t.active = active
			t.history = history
		}
	}
	return t
}

// Create establishes a new Active checkpoint. Any current Active
// checkpoint is demoted to Superseded first; only the newest checkpoint
// is ever authoritative. A negative ttl (NoTTL) means the checkpoint
// never expires; a zero ttl expires immediately.
func (t *Tracker) Create(scope []string, reason string, ttl time.Duration) (ir.Checkpoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireActiveLocked()
	if t.active != nil {
		t.demoteLocked(ir.CheckpointSuperseded)
	}

	ck := ir.Checkpoint{
		ID:        t.newID(),
		Scope:     append([]string(nil), scope...),
		Reason:    reason,
		Status:    ir.CheckpointActive,
		CreatedAt: t.now().UTC(),
	}
	if ttl >= 0 {
		expires := ck.CreatedAt.Add(ttl)
		ck.ExpiresAt = &expires
	}
	t.active = &ck
	t.reserved = false

	if err := t.persistLocked(); err != nil {
		return ir.Checkpoint{}, err
	}
	return ck, nil
}

// Active returns a copy of the current Active checkpoint, if any. Expiry
// is applied first.
func (t *Tracker) Active() (ir.Checkpoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	if t.active == nil {
		return ir.Checkpoint{}, false
	}
	return *t.active, true
}

// History returns a copy of the terminal-state log, oldest first.
func (t *Tracker) History() []ir.Checkpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ir.Checkpoint(nil), t.history...)
}

// IsValid reports whether an unexpired, unreserved Active checkpoint
// exists.
func (t *Tracker) IsValid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	return t.active != nil && !t.reserved
}

// ValidateAndReserve atomically checks validity and reserves the Active
// checkpoint for the caller. Of any number of concurrent callers exactly
// one receives ok=true; every later call observes the checkpoint as
// unavailable until it is consumed or a new one is created.
func (t *Tracker) ValidateAndReserve() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	if t.active == nil || t.reserved {
		return "", false
	}
	t.reserved = true
	return t.active.ID, true
}

// Consume moves the Active checkpoint to Consumed and returns its id.
func (t *Tracker) Consume() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	if t.active == nil {
		return "", false
	}
	id := t.active.ID
	when := t.now().UTC()
	t.active.ConsumedAt = &when
	t.demoteLocked(ir.CheckpointConsumed)
	t.persistBestEffortLocked()
	return id, true
}

// ClearExpired demotes an expired Active checkpoint and prunes Expired
// entries from history, returning how many entries were removed.
func (t *Tracker) ClearExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()

	removed := 0
	kept := t.history[:0]
	for _, ck := range t.history {
		if ck.Status == ir.CheckpointExpired {
			removed++
			continue
		}
		kept = append(kept, ck)
	}
	t.history = kept
	if removed > 0 {
		t.persistBestEffortLocked()
	}
	return removed
}

// InvalidateAll force-demotes the Active checkpoint to Invalidated, for
// rollback flows. Returns how many checkpoints were invalidated (0 or 1).
func (t *Tracker) InvalidateAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	if t.active == nil {
		return 0
	}
	t.demoteLocked(ir.CheckpointInvalidated)
	t.persistBestEffortLocked()
	return 1
}

// MatchesScope reports whether the Active checkpoint covers target. The
// scope is a glob set; "*" or an empty scope covers everything. A tracker
// without a valid Active checkpoint covers nothing.
func (t *Tracker) MatchesScope(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireActiveLocked()
	if t.active == nil {
		return false
	}
	if len(t.active.Scope) == 0 {
		return true
	}
	for _, pattern := range t.active.Scope {
		if pattern == "*" {
			return true
		}
		if ok, err := path.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

// expireActiveLocked demotes the Active checkpoint when its expiry has
// passed. Callers hold the mutex.
func (t *Tracker) expireActiveLocked() {
	if t.active == nil || t.active.ExpiresAt == nil {
		return
	}
	if t.now().Before(*t.active.ExpiresAt) {
		return
	}
	t.demoteLocked(ir.CheckpointExpired)
	t.persistBestEffortLocked()
}

// demoteLocked moves the Active checkpoint into history with the given
// terminal status, evicting the oldest entry past the bound.
func (t *Tracker) demoteLocked(status ir.CheckpointStatus) {
	ck := *t.active
	ck.Status = status
	t.history = append(t.history, ck)
	if len(t.history) > t.historyLimit {
		t.history = t.history[len(t.history)-t.historyLimit:]
	}
	t.active = nil
	t.reserved = false
}

func (t *Tracker) persistLocked() error {
	if t.statePath == "" {
		return nil
	}
	return saveState(t.statePath, t.active, t.history)
}

// persistBestEffortLocked saves state where the in-memory transition must
// not be rolled back on a write failure. The in-memory machine remains
// authoritative for this process; a stale file only ever under-reports
// validity, which fails safe.
func (t *Tracker) persistBestEffortLocked() {
	if t.statePath == "" {
		return
	}
	_ = saveState(t.statePath, t.active, t.history)
}
