package rules

import "sync"

// maxHistoryEntries bounds the in-memory execution history. Oldest
// entries are evicted first.
const maxHistoryEntries = 1000

// History is a bounded, newest-first log of rule executions.
type History struct {
	mu      sync.RWMutex
	entries []ExecutionRecord
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds a record, evicting the oldest entry once the bound is
// reached.
func (h *History) Append(record ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, record)
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
	}
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything.
func (h *History) Recent(limit int) []ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ExecutionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Len reports the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
