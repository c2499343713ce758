package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleReport() *automation.Report {
	return &automation.Report{
		DispatchID: "dispatch-1",
		Table:      automation.TableActivity,
		Event:      automation.EventCreated,
		RecordID:   "recAct1",
		Candidates: 1,
		Succeeded:  1,
		Outcomes: []automation.RuleOutcome{{
			RuleID:      "recRule1",
			RuleName:    "Lead contattato",
			Status:      automation.StatusExecuted,
			TargetTable: automation.TableLead,
			TargetID:    "recLead1",
		}},
	}
}

func TestReporterPublishesOutcomeEvent(t *testing.T) {
	w := &fakeWriter{}
	producer := &KafkaProducer{writer: w, logger: logger.NopLogger()}
	reporter := NewReporter(producer, "automation_outcomes", "automation-service", logger.NopLogger())
	reporter.now = func() time.Time { return time.Date(2025, 3, 14, 16, 30, 0, 0, time.UTC) }

	require.NoError(t, reporter.Report(context.Background(), sampleReport()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "automation_outcomes", msg.Topic)
	assert.Equal(t, []byte("recAct1"), msg.Key)

	var event OutcomeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventTypeDispatched, event.Type)
	assert.Equal(t, "automation-service", event.Source)
	require.NotNil(t, event.Report)
	assert.Equal(t, "dispatch-1", event.Report.DispatchID)
	require.Len(t, event.Report.Outcomes, 1)
	assert.Equal(t, automation.StatusExecuted, event.Report.Outcomes[0].Status)
	assert.Equal(t, "recLead1", event.Report.Outcomes[0].TargetID)
}

func TestReporterPropagatesWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	producer := &KafkaProducer{writer: w, logger: logger.NopLogger()}
	reporter := NewReporter(producer, "automation_outcomes", "automation-service", logger.NopLogger())

	err := reporter.Report(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "broker down")
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(config.BrokerConfig{}, logger.NopLogger())
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProducer(config.BrokerConfig{Type: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}, logger.NopLogger())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.NoError(t, p.Close())

	_, err = NewProducer(config.BrokerConfig{Type: "rabbitmq"}, logger.NopLogger())
	assert.Error(t, err)
}
