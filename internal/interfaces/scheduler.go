package interfaces

import (
	"context"
	"time"
)

// JobInfo describes a registered scheduler job for status reporting
type JobInfo struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Running  bool       `json:"running"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	Enabled  bool       `json:"enabled"`
}

// SchedulerService manages cron-driven background jobs
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RegisterJob(name, schedule string, job func(ctx context.Context) error) error
	TriggerJob(ctx context.Context, name string) error
	JobStatus() []JobInfo
	IsRunning() bool
}
