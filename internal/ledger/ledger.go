// internal/ledger/ledger.go
package ledger

import "sync"

// Ledger is the set of conversation origins that have already been reported.
// User IDs and group chat IDs share one namespace; Telegram assigns negative
// IDs to groups and positive IDs to users, so the spaces never collide.
// Entries are never removed for the lifetime of the process.
type Ledger struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[int64]struct{})}
}

// Seen reports whether the origin has already been recorded.
func (l *Ledger) Seen(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// Mark records the origin. Marking an already-seen origin is a no-op.
func (l *Ledger) Mark(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = struct{}{}
}

// MarkIfNew atomically checks and records the origin, returning true if it
// was not seen before. Exactly one concurrent caller wins for a given ID.
func (l *Ledger) MarkIfNew(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = struct{}{}
	return true
}

// Len returns the number of recorded origins.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
