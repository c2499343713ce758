package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
	"leadflow/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes event keyed by the dispatched record id, so the outcomes
// of one record stay ordered within a partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, event OutcomeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := []kafka.Header{
		{Key: "content-type", Value: []byte("application/json")},
		{Key: "event-type", Value: []byte(event.Type)},
	}
	headers = tracing.InjectTraceContext(ctx, headers)

	var key []byte
	if event.Report != nil {
		key = []byte(event.Report.RecordID)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     key,
			Value:   body,
			Headers: headers,
			Time:    event.Timestamp,
		},
	)
	metrics.ObserveKafkaWriteDuration(event.Source, topic, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(event.Source, topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
