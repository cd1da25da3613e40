package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNoMessage is returned by queue receives when nothing is visible
var ErrNoMessage = errors.New("no message available")

// EventName identifies a pipeline step command on the bus
type EventName string

// Step command events. Each pipeline step subscribes to exactly one event;
// completing a step publishes the next step's event, forming the cascade.
const (
	EventExtractContext      EventName = "automation.extract_context"
	EventDiscoverCompetitors EventName = "automation.discover_competitors"
	EventGenerateQueries     EventName = "automation.generate_queries"
	EventRunScan             EventName = "automation.run_scan"
	EventGenerateMemo        EventName = "automation.generate_memo"
	EventPushContent         EventName = "automation.push_content"
	EventVerifyCitation      EventName = "automation.verify_citation"
)

// Event is one durable message on the bus
type Event struct {
	ID       string          `json:"id"`
	Name     EventName       `json:"name"`
	TenantID string          `json:"tenant_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// EventHandler processes one event. A non-nil error makes the message
// visible again for redelivery up to the receive limit.
type EventHandler func(ctx context.Context, event *Event) error

// EventBus is a durable publish interface with delayed delivery
type EventBus interface {
	// Publish enqueues an event for immediate delivery
	Publish(ctx context.Context, event *Event) error

	// PublishAt enqueues an event that stays invisible until the given time
	PublishAt(ctx context.Context, event *Event, at time.Time) error

	Close() error
}
