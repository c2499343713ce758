package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"leadflow/internal/automation"
	"leadflow/internal/logger"
	"leadflow/pkg/tracing"
)

// Reporter publishes every dispatch report to the outcome topic.
type Reporter struct {
	producer Producer
	topic    string
	source   string
	logger   logger.Logger
	now      func() time.Time
}

func NewReporter(producer Producer, topic, source string, log logger.Logger) *Reporter {
	return &Reporter{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   log,
		now:      time.Now,
	}
}

func (r *Reporter) Report(ctx context.Context, report *automation.Report) error {
	event := OutcomeEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeDispatched,
		Source:    r.source,
		Timestamp: r.now().UTC(),
		TraceID:   tracing.TraceID(ctx),
		Report:    report,
	}

	if err := r.producer.Publish(ctx, r.topic, event); err != nil {
		return err
	}

	r.logger.DebugwCtx(ctx, "Dispatch report published",
		"topic", r.topic,
		"event_id", event.ID,
		"dispatch_id", report.DispatchID,
	)
	return nil
}
