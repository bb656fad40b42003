package cli

import (
	"log/slog"

	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/internal/observability"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	Generator core.TaskGenerator
	Projects  core.ProjectService
	Catalog   *core.Catalog
	ReportGen core.ScheduleReportGenerator

	// Config is the loaded .buildconfig; nil means built-in defaults.
	Config *models.GlobalConfig

	// BasePath is the resolved bdb home directory.
	BasePath string
	// Logger receives non-fatal failures such as notifier errors.
	Logger = slog.Default()
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
