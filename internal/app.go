// Package internal provides the App struct that wires all components of the
// Build Brain system together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/build-brain/internal/cli"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/internal/observability"
	"github.com/valter-silva-au/build-brain/internal/storage"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// HomeEnv overrides base path discovery.
const HomeEnv = "BDB_HOME"

// App holds all service dependencies for the Build Brain system.
type App struct {
	BasePath string
	Config   *models.GlobalConfig

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store core.TaskStore

	// Core services
	Catalog   *core.Catalog
	Generator core.TaskGenerator
	Projects  core.ProjectService
	ReportGen core.ScheduleReportGenerator

	// Observability
	Logger      *slog.Logger
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	shutdownTelemetry observability.ShutdownFunc
}

// NewApp creates and wires all components of the Build Brain system.
// basePath is the root directory where all data is stored (typically the
// directory containing .buildconfig).
func NewApp(basePath, version string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	if err := core.LoadEnvFile(basePath); err != nil {
		return nil, err
	}
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Telemetry ---
	if cfg.TelemetryEnabled {
		app.shutdownTelemetry, err = observability.SetupTelemetry(context.Background(), os.Stderr, version)
		if err != nil {
			return nil, fmt.Errorf("setting up telemetry: %w", err)
		}
	}
	app.Logger = observability.NewLogger(observability.ServiceName, cfg.TelemetryEnabled, os.Stderr)

	// --- Catalog ---
	app.Catalog = core.BuiltinCatalog()
	if cfg.CatalogPath != "" {
		app.Catalog, err = core.LoadCatalogFile(app.Catalog, cfg.CatalogPath)
		if err != nil {
			return nil, app.closeOnError(err)
		}
		if err := core.ValidateCatalog(app.Catalog); err != nil {
			return nil, app.closeOnError(fmt.Errorf("catalog %s: %w", cfg.CatalogPath, err))
		}
	}

	// --- Storage layer ---
	app.Store, err = storage.OpenTaskStore(cfg.Storage, basePath)
	if err != nil {
		return nil, app.closeOnError(err)
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, observability.EventsFileName))
	if err != nil {
		// Non-fatal: run without the event log if it can't be created.
		app.Logger.Warn("event log disabled", slog.String("error", err.Error()))
		app.EventLog = nil
	}
	var eventLogger core.EventLogger
	if app.EventLog != nil {
		eventLogger = observability.NewEventRecorder(app.EventLog, nil)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Core services ---
	app.Generator = core.NewTaskGenerator(app.Catalog, core.NewProjectClassifier(), core.GeneratorOptions{})
	app.Projects = core.NewProjectService(app.Generator, app.Store, eventLogger, nil)
	app.ReportGen = core.NewScheduleReportGenerator(basePath)

	app.AlertEngine = observability.NewAlertEngine(app.Projects, observability.ThresholdsFromConfig(cfg.Alerts), nil)
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		slack := observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
		app.Notifier = observability.NewOutboxNotifier(slack, basePath)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Logger
	cli.Catalog = app.Catalog
	cli.Generator = app.Generator
	cli.Projects = app.Projects
	cli.ReportGen = app.ReportGen

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// closeOnError releases whatever was opened before a failed NewApp.
func (a *App) closeOnError(err error) error {
	if cerr := a.Close(context.Background()); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// Close releases resources held by the App: the event log file handle, the
// task store and the telemetry exporters. It is safe to call Close on a
// partially initialized App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing event log: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing task store: %w", err))
		}
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the base path for the Build Brain data directory.
// It checks the BDB_HOME env var, then walks up from the current directory
// looking for .buildconfig, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
