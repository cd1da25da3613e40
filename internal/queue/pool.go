package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// WorkerPool polls the bus and dispatches events to registered handlers
type WorkerPool struct {
	bus          *Bus
	handlers     map[interfaces.EventName]interfaces.EventHandler
	logger       arbor.ILogger
	concurrency  int
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(bus *Bus, logger arbor.ILogger, concurrency int, pollInterval time.Duration) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		bus:          bus,
		handlers:     make(map[interfaces.EventName]interfaces.EventHandler),
		logger:       logger,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler registers a handler for an event name.
// Must be called before Start.
func (wp *WorkerPool) RegisterHandler(name interfaces.EventName, handler interfaces.EventHandler) {
	wp.handlers[name] = handler
	wp.logger.Debug().
		Str("event", string(name)).
		Msg("Event handler registered")
}

// Start starts the worker goroutines
func (wp *WorkerPool) Start() error {
	wp.logger.Info().
		Int("concurrency", wp.concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		go wp.worker(i)
	}

	return nil
}

// Stop gracefully stops the worker pool
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
	return nil
}

// worker is the main worker loop that processes events
func (wp *WorkerPool) worker(workerID int) {
	// Stagger worker starts to reduce database lock contention
	staggerDelay := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		time.Sleep(staggerDelay)
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Dur("stagger_delay", staggerDelay).
		Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processEvent(workerID); err != nil {
				if !errors.Is(err, interfaces.ErrNoMessage) {
					wp.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Msg("Error processing event")
				}
			}
		}
	}
}

// processEvent receives and processes a single event
func (wp *WorkerPool) processEvent(workerID int) error {
	event, ack, err := wp.bus.Receive(wp.ctx)
	if err != nil {
		return err
	}

	handler, exists := wp.handlers[event.Name]
	if !exists {
		wp.logger.Error().
			Str("event", string(event.Name)).
			Str("event_id", event.ID).
			Msg("No handler registered for event")
		if ackErr := ack(); ackErr != nil {
			wp.logger.Warn().Err(ackErr).Msg("Failed to remove unhandled event")
		}
		return fmt.Errorf("no handler for event: %s", event.Name)
	}

	wp.logger.Debug().
		Str("event", string(event.Name)).
		Str("event_id", event.ID).
		Str("tenant_id", event.TenantID).
		Int("worker_id", workerID).
		Msg("Processing event")

	startTime := time.Now()
	handlerErr := handler(wp.ctx, event)
	duration := time.Since(startTime)

	if handlerErr != nil {
		// Leave the message in flight, it becomes visible again after the
		// visibility timeout and the bus drops it at the receive limit
		wp.logger.Error().
			Err(handlerErr).
			Str("event", string(event.Name)).
			Str("event_id", event.ID).
			Str("tenant_id", event.TenantID).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Event handler failed")
		return handlerErr
	}

	wp.logger.Info().
		Str("event", string(event.Name)).
		Str("event_id", event.ID).
		Str("tenant_id", event.TenantID).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Event processed")

	if err := ack(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("event_id", event.ID).
			Msg("Failed to remove event after processing")
		return err
	}

	return nil
}
