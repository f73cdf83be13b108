// Package meeting holds the in-memory coordination primitives backing
// meeting join flows. Nothing here is a source of truth; durable participant
// state lives with the meeting service.
package meeting

import (
	"sync"
	"sync/atomic"

	"github.com/moimlab/moim/internal/metrics"
)

// approvalCounter is one meeting's bounded auto-approval counter. count only
// ever moves up and never passes limit. A limit of zero or below means
// auto-approval is permanently off for the meeting.
type approvalCounter struct {
	limit int64
	count atomic.Int64
}

// tryAcquire claims one approval slot. The compare-and-swap loop makes the
// check-and-increment a single atomic step, so concurrent joiners can never
// both take the last slot.
func (c *approvalCounter) tryAcquire() bool {
	if c.limit <= 0 {
		return false
	}
	for {
		cur := c.count.Load()
		if cur >= c.limit {
			return false
		}
		if c.count.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// ApprovalCoordinator tracks per-meeting auto-approval budgets. Counters are
// registered with Configure when a meeting opens and removed with Dispose
// when it closes, so the registry stays bounded by the number of live
// meetings.
type ApprovalCoordinator struct {
	mu       sync.RWMutex
	counters map[string]*approvalCounter
	metrics  *metrics.Collector
}

func NewApprovalCoordinator(m *metrics.Collector) *ApprovalCoordinator {
	return &ApprovalCoordinator{
		counters: make(map[string]*approvalCounter),
		metrics:  m,
	}
}

// Configure installs (or replaces) the auto-approval limit for a meeting.
// A limit of zero or below registers the meeting with auto-approval
// permanently off; its joins will all come back false.
func (a *ApprovalCoordinator) Configure(meetingID string, limit int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[meetingID] = &approvalCounter{limit: int64(limit)}
}

// TryAutoApprove claims one auto-approval slot for the meeting. It returns
// false when the budget is exhausted, when auto-approval is off, or when the
// meeting was never configured. A false result is not an error; the caller
// simply leaves the participant pending for manual review.
func (a *ApprovalCoordinator) TryAutoApprove(meetingID string) bool {
	a.mu.RLock()
	c, ok := a.counters[meetingID]
	a.mu.RUnlock()
	if !ok {
		return false
	}

	granted := c.tryAcquire()
	a.metrics.RecordAutoApproval(granted)
	return granted
}

// Granted reports how many auto-approvals the meeting has handed out.
func (a *ApprovalCoordinator) Granted(meetingID string) (int, bool) {
	a.mu.RLock()
	c, ok := a.counters[meetingID]
	a.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return int(c.count.Load()), true
}

// Dispose drops the meeting's counter. Safe to call for unknown ids.
func (a *ApprovalCoordinator) Dispose(meetingID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counters, meetingID)
}
