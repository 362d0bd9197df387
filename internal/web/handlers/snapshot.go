package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poi-recon/internal/export"
)

// ErrStaleHandle is returned when a snapshot token has expired or never
// existed. Callers must create a new snapshot; stale handles are never
// silently refreshed.
var ErrStaleHandle = errors.New("stale snapshot handle")

// Snapshot is a frozen export of one job's confirmed matches, addressable by
// an ephemeral token.
type Snapshot struct {
	Token     string          `json:"token"`
	JobID     string          `json:"job_id"`
	Records   []export.Record `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SnapshotTable holds live snapshots in memory. Expired entries are dropped
// lazily on access.
type SnapshotTable struct {
	mu        sync.Mutex
	ttl       time.Duration
	snapshots map[string]Snapshot
}

// NewSnapshotTable creates a table whose snapshots live for ttl.
func NewSnapshotTable(ttl time.Duration) *SnapshotTable {
	return &SnapshotTable{
		ttl:       ttl,
		snapshots: make(map[string]Snapshot),
	}
}

// Create freezes records under a fresh token.
func (t *SnapshotTable) Create(jobID string, records []export.Record, now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.purge(now)
	s := Snapshot{
		Token:     uuid.NewString(),
		JobID:     jobID,
		Records:   records,
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	}
	t.snapshots[s.Token] = s
	return s
}

// Get resolves a token. Unknown and expired tokens both surface
// ErrStaleHandle so callers react the same way to either.
func (t *SnapshotTable) Get(token string, now time.Time) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.purge(now)
	s, ok := t.snapshots[token]
	if !ok {
		return Snapshot{}, ErrStaleHandle
	}
	return s, nil
}

func (t *SnapshotTable) purge(now time.Time) {
	for token, s := range t.snapshots {
		if now.After(s.ExpiresAt) {
			delete(t.snapshots, token)
		}
	}
}
