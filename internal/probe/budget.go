package probe

import "sync"

// Budget is a counter of canary requests shared by the active probes of
// one page. It is safe for concurrent use. A nil *Budget is unlimited.
type Budget struct {
	mu        sync.Mutex
	remaining int
}

// NewBudget creates a budget allowing n requests.
func NewBudget(n int) *Budget {
	if n < 0 {
		n = 0
	}
	return &Budget{remaining: n}
}

// Take consumes one request from the budget and reports whether one was left.
func (b *Budget) Take() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining returns the number of requests left, or -1 for a nil budget.
func (b *Budget) Remaining() int {
	if b == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}
