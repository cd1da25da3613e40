package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/queue"
	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// Deps are the collaborators a pipeline needs
type Deps struct {
	Storage   interfaces.StorageManager
	Bus       interfaces.EventBus
	Leases    *leases.Service
	Generator interfaces.Generator
	Scanner   interfaces.ScanProvider
	Publisher interfaces.Publisher
	Verifier  interfaces.CitationVerifier
	Notifier  interfaces.Notifier
	Logger    arbor.ILogger
}

// Options are the tuning knobs for step execution
type Options struct {
	StepTimeout     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	VerifyDelay     time.Duration
	TypeConcurrency map[string]int
}

// Pipeline hosts the cascading step handlers. Each handler is an
// independently retryable unit: it performs one external side effect,
// persists its own result, and on success emits the successor event. Steps
// never call each other in-process; a crash between steps loses at most one
// step's worth of work and the next cycle resumes from scratch.
type Pipeline struct {
	storage   interfaces.StorageManager
	bus       interfaces.EventBus
	leases    *leases.Service
	generator interfaces.Generator
	scanner   interfaces.ScanProvider
	publisher interfaces.Publisher
	verifier  interfaces.CitationVerifier
	notifier  interfaces.Notifier
	limiter   *Limiter
	logger    arbor.ILogger

	stepTimeout  time.Duration
	maxRetries   int
	retryBackoff time.Duration
	verifyDelay  time.Duration
}

// New creates a pipeline
func New(deps Deps, opts Options) *Pipeline {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 10 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}
	if opts.VerifyDelay <= 0 {
		opts.VerifyDelay = 48 * time.Hour
	}

	return &Pipeline{
		storage:      deps.Storage,
		bus:          deps.Bus,
		leases:       deps.Leases,
		generator:    deps.Generator,
		scanner:      deps.Scanner,
		publisher:    deps.Publisher,
		verifier:     deps.Verifier,
		notifier:     deps.Notifier,
		limiter:      NewLimiter(opts.TypeConcurrency),
		logger:       deps.Logger,
		stepTimeout:  opts.StepTimeout,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		verifyDelay:  opts.VerifyDelay,
	}
}

// Register attaches one handler per step event to the worker pool
func (p *Pipeline) Register(pool *queue.WorkerPool) {
	pool.RegisterHandler(interfaces.EventExtractContext, p.handle(models.TaskExtractContext, p.extractContext))
	pool.RegisterHandler(interfaces.EventDiscoverCompetitors, p.handle(models.TaskDiscoverCompetitors, p.discoverCompetitors))
	pool.RegisterHandler(interfaces.EventGenerateQueries, p.handle(models.TaskGenerateQueries, p.generateQueries))
	pool.RegisterHandler(interfaces.EventRunScan, p.handle(models.TaskRunScan, p.runScan))
	pool.RegisterHandler(interfaces.EventGenerateMemo, p.handle(models.TaskGenerateMemo, p.generateMemo))
	pool.RegisterHandler(interfaces.EventPushContent, p.handle(models.TaskPushContent, p.pushContent))
	pool.RegisterHandler(interfaces.EventVerifyCitation, p.handle(models.TaskVerifyCitation, p.verifyCitation))
}

// stepResult is what a step function reports on success
type stepResult struct {
	next   []*interfaces.Event // Successor events, empty ends the chain
	nextAt time.Time           // When set, successors are delayed until this time
	notice *models.Notification
}

type stepFunc func(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error)

// handle wraps a step function with the shared per-step contract: payload
// decode, pause re-check, step lease, concurrency slot, timeout, bounded
// retries, successor emission and terminal failure alerting.
func (p *Pipeline) handle(step models.TaskType, fn stepFunc) interfaces.EventHandler {
	return func(ctx context.Context, event *interfaces.Event) error {
		payload := &models.StepPayload{}
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, payload); err != nil {
				// Malformed payloads never become processable, drop the
				// message and let the sweeper reclaim any stranded lease
				p.logger.Error().
					Err(err).
					Str("event_id", event.ID).
					Str("step", string(step)).
					Msg("Unreadable step payload, dropping event")
				return nil
			}
		}

		tenant, err := p.storage.Tenants().GetTenant(ctx, event.TenantID)
		if err != nil {
			if errors.Is(err, models.ErrTenantNotFound) {
				p.logger.Warn().
					Str("tenant_id", event.TenantID).
					Str("step", string(step)).
					Msg("Tenant deleted mid-chain, ending chain")
				p.endChain(ctx, event.TenantID, payload)
				return nil
			}
			return err
		}

		// Pause can occur mid-chain: the in-flight step already running is
		// allowed to finish, but nothing queued after the pause may execute
		// its side effect or emit successors
		if tenant.Paused {
			p.logger.Info().
				Str("tenant_id", tenant.ID).
				Str("step", string(step)).
				Msg("Tenant paused, ending chain")
			p.endChain(ctx, tenant.ID, payload)
			return nil
		}

		settings, err := p.storage.Settings().GetSettings(ctx, tenant.ID)
		if err != nil {
			return err
		}

		if err := p.leases.Acquire(ctx, tenant.ID, step); err != nil {
			if errors.Is(err, models.ErrLeaseHeld) {
				p.logger.Debug().
					Str("tenant_id", tenant.ID).
					Str("step", string(step)).
					Msg("Step already in flight, dropping duplicate")
				return nil
			}
			return err
		}
		defer p.leases.Release(ctx, tenant.ID, step)

		release, err := p.limiter.Acquire(ctx, step)
		if err != nil {
			return err
		}
		defer release()

		stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
		defer cancel()

		var result *stepResult
		err = withRetries(stepCtx, p.logger, tenant.ID, step, p.maxRetries, p.retryBackoff, func(c context.Context) error {
			var opErr error
			result, opErr = fn(c, tenant, settings, payload)
			return opErr
		})
		if err != nil {
			p.failChain(ctx, tenant, payload, step, err)
			return nil
		}

		if result == nil {
			result = &stepResult{}
		}
		if result.notice != nil {
			p.notify(ctx, result.notice)
		}

		if len(result.next) == 0 {
			p.endChain(ctx, tenant.ID, payload)
			return nil
		}

		for _, successor := range result.next {
			var pubErr error
			if result.nextAt.IsZero() {
				pubErr = p.bus.Publish(ctx, successor)
			} else {
				pubErr = p.bus.PublishAt(ctx, successor, result.nextAt)
			}
			if pubErr != nil {
				// Redelivery re-runs the step; persistence is dedupe-guarded
				return pubErr
			}
		}
		return nil
	}
}

// endChain releases the top-level task lease held since dispatch. Called by
// every path that stops emitting successors.
func (p *Pipeline) endChain(ctx context.Context, tenantID string, payload *models.StepPayload) {
	if payload.Bucket != "" {
		p.leases.Release(ctx, tenantID, payload.Bucket)
	}
}

// failChain handles retry exhaustion: the tenant gets a terminal alert, the
// chain halts, and the top-level lease is released so a future cycle can
// retry from scratch
func (p *Pipeline) failChain(ctx context.Context, tenant *models.Tenant, payload *models.StepPayload, step models.TaskType, err error) {
	p.logger.Error().
		Err(err).
		Str("tenant_id", tenant.ID).
		Str("step", string(step)).
		Str("task", string(payload.Bucket)).
		Msg("Step failed terminally, halting chain")

	p.notify(ctx, &models.Notification{
		TenantID: tenant.ID,
		Kind:     models.NotificationStepFailed,
		Message:  "Automation step " + string(step) + " failed and will be retried on a later cycle",
		Data: map[string]string{
			"step":  string(step),
			"task":  string(payload.Bucket),
			"error": err.Error(),
		},
	})

	p.endChain(ctx, tenant.ID, payload)
}

func (p *Pipeline) notify(ctx context.Context, notification *models.Notification) {
	if notification.ID == "" {
		notification.ID = common.NewNotificationID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if err := p.notifier.Notify(ctx, notification); err != nil {
		p.logger.Warn().
			Err(err).
			Str("tenant_id", notification.TenantID).
			Msg("Failed to deliver notification")
	}
}

// successorEvent builds the next step's event, carrying the chain bucket
func successorEvent(name interfaces.EventName, tenantID string, payload models.StepPayload) (*interfaces.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &interfaces.Event{
		Name:     name,
		TenantID: tenantID,
		Payload:  data,
	}, nil
}
