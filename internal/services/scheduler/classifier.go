package scheduler

import (
	"github.com/stephennewman/contextmemo/internal/models"
)

// Classification is one tenant's work assignment for a cycle: at most one
// pipeline bucket, plus any independent side-channel tasks.
type Classification struct {
	TenantID  string
	Bucket    models.TaskType   // Empty when no pipeline work is due
	SideTasks []models.TaskType // Schedule-gated channels running alongside the bucket
}

// Classify partitions one tenant's due categories into mutually exclusive
// buckets, highest priority first:
//
//  1. full_refresh: context refresh due or tenant never bootstrapped.
//     Supersedes every other bucket for this tenant this cycle.
//  2. incremental_update: context fresh, competitor discovery or query
//     generation due.
//  3. scan_only: only the scan itself is due.
//
// This priority ordering exists because discovery and query generation
// invalidate scan inputs: running a scan before a due competitor refresh
// would scan against stale competitor data.
//
// Discovery, competitor-content, network-expansion and citation-verification
// side channels run in addition to (not instead of) the bucket, except while
// a full refresh is pending: a full refresh is about to replace the data the
// side channels would read, so they are suppressed for the cycle.
func Classify(evaluation *Evaluation) *Classification {
	c := &Classification{TenantID: evaluation.TenantID}

	switch {
	case evaluation.IsDue(models.CategoryContext):
		c.Bucket = models.TaskFullRefresh
	case evaluation.IsDue(models.CategoryCompetitors) || evaluation.IsDue(models.CategoryQueries):
		c.Bucket = models.TaskIncrementalUpdate
	case evaluation.IsDue(models.CategoryScan):
		c.Bucket = models.TaskScanOnly
	}

	if c.Bucket == models.TaskFullRefresh {
		return c
	}

	if evaluation.IsDue(models.CategoryDiscovery) {
		c.SideTasks = append(c.SideTasks, models.TaskDiscoveryScan)
	}
	if evaluation.IsDue(models.CategoryCompetitorContent) {
		c.SideTasks = append(c.SideTasks, models.TaskCompetitorContent)
	}
	if evaluation.IsDue(models.CategoryNetworkExpansion) {
		c.SideTasks = append(c.SideTasks, models.TaskNetworkExpansion)
	}
	if evaluation.IsDue(models.CategoryCitationVerification) {
		c.SideTasks = append(c.SideTasks, models.TaskCitationVerification)
	}

	return c
}

// HasWork reports whether the classification carries any dispatchable task
func (c *Classification) HasWork() bool {
	return c.Bucket != "" || len(c.SideTasks) > 0
}

// Tasks returns every dispatchable task in priority order, bucket first
func (c *Classification) Tasks() []models.TaskType {
	tasks := make([]models.TaskType, 0, 1+len(c.SideTasks))
	if c.Bucket != "" {
		tasks = append(tasks, c.Bucket)
	}
	return append(tasks, c.SideTasks...)
}
