package pipeline

import (
	"context"
	"sync"

	"github.com/stephennewman/contextmemo/internal/models"
)

// DefaultTypeConcurrency caps concurrent executions of a task type when no
// explicit limit is configured
const DefaultTypeConcurrency = 4

// Limiter bounds how many instances of each task type run at once across
// all tenants, using one counting semaphore per type. The worker pool
// bounds total parallelism; the limiter keeps a single expensive step type
// from monopolizing it.
type Limiter struct {
	mu     sync.Mutex
	limits map[models.TaskType]int
	slots  map[models.TaskType]chan struct{}
}

// NewLimiter creates a limiter from per-type limits. Types without an entry
// use DefaultTypeConcurrency.
func NewLimiter(limits map[string]int) *Limiter {
	l := &Limiter{
		limits: make(map[models.TaskType]int),
		slots:  make(map[models.TaskType]chan struct{}),
	}
	for task, limit := range limits {
		if limit > 0 {
			l.limits[models.TaskType(task)] = limit
		}
	}
	return l
}

// Acquire blocks until a slot for the task type is free or the context is
// cancelled. The returned release function must be called when the step
// finishes.
func (l *Limiter) Acquire(ctx context.Context, task models.TaskType) (func(), error) {
	slot := l.slotFor(task)

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Limiter) slotFor(task models.TaskType) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if slot, ok := l.slots[task]; ok {
		return slot
	}

	limit := l.limits[task]
	if limit <= 0 {
		limit = DefaultTypeConcurrency
	}
	slot := make(chan struct{}, limit)
	l.slots[task] = slot
	return slot
}
