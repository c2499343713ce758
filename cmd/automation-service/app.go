package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"leadflow/internal/api"
	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/internal/store"
	"leadflow/pkg/bootstrap"
	"leadflow/pkg/health"
	"leadflow/pkg/logging"
	"leadflow/pkg/metrics"
	"leadflow/pkg/tracing"
)

const serviceName = "automation-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	conns          store.Connections
	backend        store.Backend
	engine         *engine
	healthRegistry *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
	router         *gin.Engine
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:           bootstrap.NewBase(cfg, log),
		dbConnector:    bootstrap.NewDatabaseConnector(cfg, log),
		healthRegistry: health.NewCheckerRegistry(),
	}
}

// Initialize builds everything but the HTTP server. The dispatch command
// stops here.
func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := a.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	var reporters []automation.Reporter
	if reporter := a.Reporter(serviceName); reporter != nil {
		reporters = append(reporters, reporter)
		a.healthRegistry.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	eng, err := newEngine(a.Config, a.backend, a.Logger, reporters...)
	if err != nil {
		return fmt.Errorf("failed to initialize automation engine: %w", err)
	}
	a.engine = eng

	return nil
}

func (a *App) initStore(ctx context.Context) error {
	conns, err := a.dbConnector.Connect(ctx)
	if err != nil {
		return err
	}
	a.conns = conns
	a.dbConnector.RegisterHealthChecks(a.healthRegistry, conns)

	backend, err := store.New(a.Config, conns, a.Logger)
	if err != nil {
		return err
	}
	a.backend = backend
	return nil
}

// InitServer registers the metrics and builds the router and HTTP server.
func (a *App) InitServer(ctx context.Context) error {
	metrics.RegisterAutomationMetrics()
	metrics.RegisterStoreMetrics()
	metrics.RegisterAPIMetrics()
	if a.Producer != nil {
		metrics.RegisterBrokerMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	handler := api.NewHandler(a.engine.dispatcher, a.engine.rules, a.engine.store, a.engine.relationships, a.Logger)
	a.router = api.NewRouter(ctx, a.Config, handler, a.healthRegistry, serviceName, a.Logger)
	a.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

// Dispatch runs one record event through the engine outside the HTTP path.
func (a *App) Dispatch(ctx context.Context, dc automation.DispatchContext) (*automation.Report, error) {
	ctx = logging.WithServiceName(ctx, serviceName)
	return a.engine.dispatcher.DispatchReport(ctx, dc)
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
		defer cancel()

		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(shutdownCtx, a.conns)...)
		return errs
	})
}
