package report

import (
	"context"
	"errors"
	"sync"

	"github.com/renderstack/maestro/pkg/models"
)

// ErrNotFound reports that no history entry exists for a workflow id.
var ErrNotFound = errors.New("workflow not found in history")

// DefaultHistorySize bounds the in-memory history.
const DefaultHistorySize = 100

// Ring is a bounded in-memory history. Oldest entries are evicted first.
type Ring struct {
	mu       sync.RWMutex
	capacity int
	entries  []*models.WorkflowResult
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}

	return &Ring{capacity: capacity}
}

func (r *Ring) Append(_ context.Context, result *models.WorkflowResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, result)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}

	return nil
}

// Recent returns up to n entries, newest first.
func (r *Ring) Recent(_ context.Context, n int) ([]*models.WorkflowResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}

	out := make([]*models.WorkflowResult, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}

	return out, nil
}

func (r *Ring) Find(_ context.Context, workflowID string) (*models.WorkflowResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WorkflowID == workflowID {
			return r.entries[i], nil
		}
	}

	return nil, ErrNotFound
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
