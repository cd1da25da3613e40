package models

import "time"

// NotificationKind classifies a tenant-visible alert
type NotificationKind string

// NotificationKind constants
const (
	NotificationStepFailed    NotificationKind = "step_failed"
	NotificationCycleSummary  NotificationKind = "cycle_summary"
	NotificationUpdateSummary NotificationKind = "update_summary"
	NotificationEventDropped  NotificationKind = "event_dropped"
)

// Notification is one fire-and-forget alert delivered to a tenant or
// operator. Transient retries never produce notifications; only terminal
// failures and materially informative summaries do.
type Notification struct {
	ID        string            `json:"id" badgerhold:"key"`
	TenantID  string            `json:"tenant_id" badgerhold:"index"`
	Kind      NotificationKind  `json:"kind"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
