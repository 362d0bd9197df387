// Package review implements the human-adjudication state machine over a
// match list: pending entries move to confirmed, rejected or skipped, and a
// cursor walks the remaining pending queue.
package review

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/poi-recon/internal/match"
)

var (
	// ErrInvalidTransition is returned when the requested transition is not
	// reachable from the entry's current status.
	ErrInvalidTransition = errors.New("invalid review transition")

	// ErrIndexOutOfRange is returned for an index outside the match list.
	ErrIndexOutOfRange = errors.New("match index out of range")
)

// Queue serializes review transitions over a match list. The slice shares its
// backing array with the owning job, so status changes are visible to the
// caller; the cursor is reported back through Apply and Cursor. Single
// mutator at a time; concurrent callers are serialized by the internal lock.
type Queue struct {
	mu      sync.Mutex
	matches []match.ResolvedMatch
	cursor  int
}

// NewQueue creates a review queue over matches, positioning the cursor on the
// first pending entry at or after start.
func NewQueue(matches []match.ResolvedMatch, start int) *Queue {
	q := &Queue{matches: matches, cursor: start}
	if q.cursor < 0 || q.cursor >= len(matches) {
		q.cursor = 0
	}
	if len(matches) > 0 && matches[q.cursor].Status != match.StatusPending {
		q.cursor = q.nextPending(q.cursor - 1)
	}
	return q
}

// Cursor returns the current cursor position, or -1 when no pending entries
// remain.
func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// Current returns the entry under the cursor. ok is false when the queue is
// exhausted.
func (q *Queue) Current() (match.ResolvedMatch, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor < 0 || q.cursor >= len(q.matches) {
		return match.ResolvedMatch{}, -1, false
	}
	return q.matches[q.cursor], q.cursor, true
}

// PendingCount returns the number of entries still awaiting review.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, m := range q.matches {
		if m.Status == match.StatusPending {
			n++
		}
	}
	return n
}

// Apply moves the entry at index from pending to target, stamps the review
// timestamp and advances the cursor to the next pending entry strictly after
// index, wrapping to the first remaining pending entry. Returns the new
// cursor, -1 when the queue is exhausted.
//
// Only pending entries can transition, and only to confirmed, rejected or
// skipped; auto_confirmed is assigned at creation time and never by review.
func (q *Queue) Apply(index int, target match.Status, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.matches) {
		return q.cursor, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	switch target {
	case match.StatusConfirmed, match.StatusRejected, match.StatusSkipped:
	default:
		return q.cursor, fmt.Errorf("%w: target %q", ErrInvalidTransition, target)
	}

	entry := &q.matches[index]
	if entry.Status != match.StatusPending {
		return q.cursor, fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, entry.Status, target)
	}

	entry.Status = target
	t := now
	entry.ReviewedAt = &t

	q.cursor = q.nextPending(index)
	return q.cursor, nil
}

// nextPending finds the first pending entry strictly after idx, wrapping to
// the start of the list; -1 when none remain.
func (q *Queue) nextPending(idx int) int {
	for i := idx + 1; i < len(q.matches); i++ {
		if q.matches[i].Status == match.StatusPending {
			return i
		}
	}
	for i := 0; i <= idx && i < len(q.matches); i++ {
		if q.matches[i].Status == match.StatusPending {
			return i
		}
	}
	return -1
}
