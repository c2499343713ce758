package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "leadflow/cmd/automation-service/docs"

	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/pkg/logging"
)

var (
	configFile string
)

// @title           Leadflow Automation Service API
// @version         1.0
// @description     Runs CRM automation rules against record events

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "automation-service",
		Short: "Automation engine for the CRM",
		Long:  "Automation Service runs the automation rules that apply to CRM record events",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dispatchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger. Without --config
// the CONFIG_FILE variable is tried, then defaults and the environment.
func setup() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Warn("No config file given, using defaults and environment")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Warn("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: serviceName,
	})
	if err != nil {
		earlyLog.Warn("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the automation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Automation Service", "store", cfg.Store.Type)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}
			if err := app.InitServer(ctx); err != nil {
				log.Fatalf("Failed to initialize HTTP server: %v", err)
			}

			if err := app.Run(ctx); err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func dispatchCmd() *cobra.Command {
	var (
		table        string
		event        string
		recordFile   string
		previousFile string
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run the automations for one record event and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := dispatchContextFromFlags(table, event, recordFile, previousFile)
			if err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer func() {
				if err := app.Shutdown(ctx); err != nil {
					log.WarnwCtx(ctx, "Shutdown failed", "error", err)
				}
			}()

			report, err := app.Dispatch(ctx, dc)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table of the record (Lead, Activity, Order, User, Products)")
	cmd.Flags().StringVar(&event, "event", "", "Event kind (created, updated, deleted)")
	cmd.Flags().StringVar(&recordFile, "record", "", "JSON file holding the record {\"id\": ..., \"fields\": {...}}")
	cmd.Flags().StringVar(&previousFile, "previous", "", "JSON file holding the record before an update")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("record")

	return cmd
}

func dispatchContextFromFlags(table, event, recordFile, previousFile string) (automation.DispatchContext, error) {
	t, err := automation.ParseTable(table)
	if err != nil {
		return automation.DispatchContext{}, err
	}
	e, err := automation.ParseEvent(event)
	if err != nil {
		return automation.DispatchContext{}, err
	}

	record, err := readRecord(recordFile)
	if err != nil {
		return automation.DispatchContext{}, err
	}
	record.Table = t

	dc := automation.DispatchContext{Table: t, Event: e, Record: record}
	if previousFile != "" {
		previous, err := readRecord(previousFile)
		if err != nil {
			return automation.DispatchContext{}, err
		}
		previous.Table = t
		dc.Previous = &previous
	}
	return dc, nil
}

func readRecord(path string) (automation.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return automation.Record{}, fmt.Errorf("failed to read record file %s: %w", path, err)
	}
	var record automation.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return automation.Record{}, fmt.Errorf("failed to parse record file %s: %w", path, err)
	}
	if record.ID == "" {
		return automation.Record{}, fmt.Errorf("record file %s: id is required", path)
	}
	return record, nil
}

func writeReport(w io.Writer, report *automation.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
