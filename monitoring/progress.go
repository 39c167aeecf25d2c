package monitoring

import (
	"sync"

	"github.com/rs/xid"
)

// ProgressBar tracks the progress of a long-running part of a simulation so
// the dashboard can display it.
type ProgressBar struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Total uint64 `json:"total"`

	lock     sync.Mutex
	Finished uint64 `json:"finished"`
}

// NewProgressBar creates a bar with a unique ID.
func NewProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:    xid.New().String(),
		Name:  name,
		Total: total,
	}
}

// Increment adds amount to the finished count.
func (b *ProgressBar) Increment(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.Finished += amount
	if b.Finished > b.Total {
		b.Finished = b.Total
	}
}
