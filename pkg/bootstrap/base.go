package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/broker"
	"leadflow/internal/config"
	"leadflow/internal/logger"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker opens the outcome producer. Producer stays nil when no
// broker is configured.
func (b *Base) InitBroker() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

// Reporter returns the dispatch reporter publishing to the outcome topic,
// or nil without a producer.
func (b *Base) Reporter(source string) *broker.Reporter {
	if b.Producer == nil {
		return nil
	}
	return broker.NewReporter(b.Producer, b.Config.Broker.Kafka.OutcomeTopic, source, b.Logger)
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

// Shutdown runs additionalShutdown first so the HTTP server stops taking
// dispatches before the producer that reports them is closed.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application...")

	var errs []error
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}
	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		b.Logger.ErrorwCtx(ctx, "Shutdown finished with errors", "errors", len(errs))
		return errors.Join(errs...)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
