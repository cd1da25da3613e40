package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrLeaseHeld is returned by lease acquisition when an unexpired lease
// already exists for the same (tenant, task) key. It is not an error
// condition for callers: it means someone else is already doing this work,
// and the caller should skip, not retry or alert.
var ErrLeaseHeld = errors.New("lease already held")

// JobLease marks one task type as in flight for one tenant. At most one
// active lease exists per (tenant, task) key; the lease is owned by the
// pipeline step that created it until released or reclaimed by the sweeper.
type JobLease struct {
	Key       string            `json:"key" badgerhold:"key"` // tenantID|taskType
	TenantID  string            `json:"tenant_id"`
	TaskType  TaskType          `json:"task_type"`
	StartedAt time.Time         `json:"started_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LeaseKey builds the composite storage key for a (tenant, task) pair
func LeaseKey(tenantID string, task TaskType) string {
	return fmt.Sprintf("%s|%s", tenantID, task)
}

// Expired reports whether the lease is older than the staleness threshold
func (l *JobLease) Expired(now time.Time, ttl time.Duration) bool {
	return l.StartedAt.Before(now.Add(-ttl))
}
