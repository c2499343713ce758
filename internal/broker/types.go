package broker

import (
	"context"
	"time"

	"leadflow/internal/automation"
)

// EventTypeDispatched is the type of the event published after every
// dispatch.
const EventTypeDispatched = "automation.dispatched"

// OutcomeEvent is the message written to the outcome topic.
type OutcomeEvent struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Source    string             `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
	TraceID   string             `json:"trace_id,omitempty"`
	Report    *automation.Report `json:"report"`
}

type Producer interface {
	Publish(ctx context.Context, topic string, event OutcomeEvent) error
	Close() error
}
