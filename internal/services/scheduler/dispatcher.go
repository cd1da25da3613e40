package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// DispatchOutcome records what happened to one (tenant, task) pair
type DispatchOutcome string

// DispatchOutcome constants
const (
	OutcomeDispatched DispatchOutcome = "dispatched"
	OutcomeSkipped    DispatchOutcome = "skipped" // Lease held, someone is already running this
	OutcomeFailed     DispatchOutcome = "failed"
)

// DispatchResult is the per-task record of a dispatch attempt
type DispatchResult struct {
	TenantID string          `json:"tenant_id"`
	Task     models.TaskType `json:"task"`
	Outcome  DispatchOutcome `json:"outcome"`
	Error    string          `json:"error,omitempty"`
}

// Dispatcher turns classifications into pipeline-start events. Before each
// emit it takes the top-level task's lease; a held lease means the work is
// already in flight and the pair is skipped, not errored. Delivery is
// at-least-once, downstream steps are lease-guarded for idempotence.
type Dispatcher struct {
	bus    interfaces.EventBus
	leases *leases.Service
	logger arbor.ILogger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(bus interfaces.EventBus, leaseService *leases.Service, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		leases: leaseService,
		logger: logger,
	}
}

// Dispatch emits one pipeline-start event per (tenant, task). Fan-out with
// no ordering guarantee across tenants.
func (d *Dispatcher) Dispatch(ctx context.Context, classifications []*Classification) []DispatchResult {
	var results []DispatchResult

	for _, c := range classifications {
		for _, task := range c.Tasks() {
			results = append(results, d.dispatchOne(ctx, c.TenantID, task))
		}
	}

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, tenantID string, task models.TaskType) DispatchResult {
	result := DispatchResult{TenantID: tenantID, Task: task}

	if err := d.leases.Acquire(ctx, tenantID, task); err != nil {
		if errors.Is(err, models.ErrLeaseHeld) {
			d.logger.Info().
				Str("tenant_id", tenantID).
				Str("task", string(task)).
				Msg("Skipped dispatch, task already running")
			result.Outcome = OutcomeSkipped
			return result
		}
		d.logger.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("task", string(task)).
			Msg("Lease acquisition failed")
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}

	event, err := startEvent(tenantID, task)
	if err != nil {
		d.leases.Release(ctx, tenantID, task)
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}

	if err := d.bus.Publish(ctx, event); err != nil {
		d.logger.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("task", string(task)).
			Msg("Failed to publish pipeline start event")
		d.leases.Release(ctx, tenantID, task)
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}

	d.logger.Info().
		Str("tenant_id", tenantID).
		Str("task", string(task)).
		Str("event", string(event.Name)).
		Msg("Pipeline dispatched")
	result.Outcome = OutcomeDispatched
	return result
}

// startEvent maps a task to the first event of its chain
func startEvent(tenantID string, task models.TaskType) (*interfaces.Event, error) {
	payload := models.StepPayload{Bucket: task}

	var name interfaces.EventName
	switch task {
	case models.TaskFullRefresh:
		name = interfaces.EventExtractContext
	case models.TaskIncrementalUpdate:
		name = interfaces.EventDiscoverCompetitors
	case models.TaskScanOnly:
		name = interfaces.EventRunScan
		payload.ScanKind = models.ScanKindBrand
	case models.TaskDiscoveryScan, models.TaskCompetitorContent, models.TaskNetworkExpansion:
		name = interfaces.EventRunScan
		payload.ScanKind = models.ScanKindFor(task)
	case models.TaskCitationVerification:
		name = interfaces.EventVerifyCitation
	default:
		return nil, fmt.Errorf("no start event for task: %s", task)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step payload: %w", err)
	}

	return &interfaces.Event{
		Name:     name,
		TenantID: tenantID,
		Payload:  data,
	}, nil
}
