package scheduler

import (
	"container/list"
	"sync"
)

// DefaultTrackerLimit is the default CommandTracker capacity, matching a
// typical firmware input buffer window.
const DefaultTrackerLimit = 127

// CommandTracker is a bounded, insertion-ordered FIFO history of sent
// commands keyed by line number, used to satisfy firmware resend requests.
// Replacing an existing line number preserves its original insertion
// position; once the tracker holds more than its limit, the oldest entries
// are evicted until it fits. Eviction order is correctness-critical: a
// resend for an evicted line returns ErrNotFound, so sizing the tracker to
// the firmware's largest outstanding resend window is the caller's
// responsibility.
type CommandTracker struct {
	mu      sync.Mutex
	limit   int
	order   *list.List               // oldest-to-newest list of line numbers
	entries map[uint32]*list.Element // line number -> element holding Command
}

// NewCommandTracker builds a tracker with the given capacity. A
// non-positive limit falls back to DefaultTrackerLimit.
func NewCommandTracker(limit int) *CommandTracker {
	if limit <= 0 {
		limit = DefaultTrackerLimit
	}
	return &CommandTracker{
		limit:   limit,
		order:   list.New(),
		entries: make(map[uint32]*list.Element),
	}
}

// Record stores command as sent, replacing any existing entry for the same
// line number in place, then evicts the oldest entries until within limit.
func (t *CommandTracker) Record(cmd Command) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[cmd.LineNumber()]; ok {
		existing.Value = cmd
	} else {
		elem := t.order.PushBack(cmd)
		t.entries[cmd.LineNumber()] = elem
	}

	for t.order.Len() > t.limit {
		oldest := t.order.Front()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(Command)
		t.order.Remove(oldest)
		delete(t.entries, evicted.LineNumber())
	}
}

// Fetch returns the command recorded for lineNumber, or ErrNotFound if it
// was never sent or has since been evicted.
func (t *CommandTracker) Fetch(lineNumber uint32) (Command, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.entries[lineNumber]
	if !ok {
		return Command{}, ErrNotFound
	}
	return elem.Value.(Command), nil
}

// Len returns the number of commands currently retained.
func (t *CommandTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}
