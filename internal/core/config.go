// Package core contains the business logic for Build Brain, including
// project classification, task generation from the template catalog,
// recurring/milestone/dependency expansion, configuration and reporting.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// ConfigFileName is the base name of the global configuration file.
const ConfigFileName = ".buildconfig"

// StorageDSNEnv overrides storage.dsn when set.
const StorageDSNEnv = "BDB_STORAGE_DSN"

// ConfigurationManager loads and validates the .buildconfig file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		DefaultProjectType: "",
		Storage: models.StorageConfig{
			Driver: models.StorageYAML,
		},
		Alerts: models.AlertConfig{
			OverdueDays:         0,
			HighRiskProbability: 70,
			MaxOpenTasks:        50,
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from .env in basePath into the process
// environment. Variables already set are left alone. A missing file is not an error.
func LoadEnvFile(basePath string) error {
	path := filepath.Join(basePath, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadGlobalConfig reads .buildconfig from the base path. If the file does
// not exist, defaults are returned. BDB_STORAGE_DSN takes precedence over
// storage.dsn in either case.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("defaults.project_type", string(cfg.DefaultProjectType))
	v.SetDefault("defaults.start_date", cfg.DefaultStartDate)
	v.SetDefault("catalog.path", cfg.CatalogPath)
	v.SetDefault("storage.driver", string(cfg.Storage.Driver))
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("telemetry.enabled", cfg.TelemetryEnabled)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.slack.webhook_url", "")
	v.SetDefault("alerts.overdue_days", cfg.Alerts.OverdueDays)
	v.SetDefault("alerts.high_risk_probability", cfg.Alerts.HighRiskProbability)
	v.SetDefault("alerts.max_open_tasks", cfg.Alerts.MaxOpenTasks)
	if err := v.BindEnv("storage.dsn", StorageDSNEnv); err != nil {
		return nil, fmt.Errorf("binding %s: %w", StorageDSNEnv, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.DefaultProjectType = models.ProjectType(strings.ToLower(v.GetString("defaults.project_type")))
	cfg.DefaultStartDate = v.GetString("defaults.start_date")
	cfg.CatalogPath = v.GetString("catalog.path")
	cfg.Storage.Driver = models.StorageDriver(strings.ToLower(v.GetString("storage.driver")))
	cfg.Storage.DSN = v.GetString("storage.dsn")
	cfg.TelemetryEnabled = v.GetBool("telemetry.enabled")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")
	cfg.Alerts.OverdueDays = v.GetInt("alerts.overdue_days")
	cfg.Alerts.HighRiskProbability = v.GetInt("alerts.high_risk_probability")
	cfg.Alerts.MaxOpenTasks = v.GetInt("alerts.max_open_tasks")

	if cfg.CatalogPath != "" && !filepath.IsAbs(cfg.CatalogPath) {
		cfg.CatalogPath = filepath.Join(cm.basePath, cfg.CatalogPath)
	}

	return cfg, nil
}

var validStorageDrivers = map[models.StorageDriver]bool{
	models.StorageYAML:     true,
	models.StorageSQLite:   true,
	models.StoragePostgres: true,
}

// ValidateConfig checks cfg for invalid values and returns one error
// listing every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	switch cfg.DefaultProjectType {
	case "", models.ProjectResidential, models.ProjectCommercial, models.ProjectRenovation:
	default:
		errs = append(errs, fmt.Sprintf(
			"defaults.project_type %q is invalid, must be one of: residential, commercial, renovation",
			cfg.DefaultProjectType,
		))
	}

	if cfg.DefaultStartDate != "" {
		if _, err := time.Parse(models.DateLayout, cfg.DefaultStartDate); err != nil {
			errs = append(errs, fmt.Sprintf("defaults.start_date %q must be a YYYY-MM-DD date", cfg.DefaultStartDate))
		}
	}

	if !validStorageDrivers[cfg.Storage.Driver] {
		errs = append(errs, fmt.Sprintf(
			"storage.driver %q is invalid, must be one of: yaml, sqlite, postgres",
			cfg.Storage.Driver,
		))
	}
	if cfg.Storage.Driver == models.StoragePostgres && cfg.Storage.DSN == "" {
		errs = append(errs, "storage.dsn is required for the postgres driver")
	}

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if cfg.Alerts.OverdueDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.overdue_days must be non-negative, got %d", cfg.Alerts.OverdueDays))
	}
	if cfg.Alerts.HighRiskProbability < 0 || cfg.Alerts.HighRiskProbability > 100 {
		errs = append(errs, fmt.Sprintf(
			"alerts.high_risk_probability %d is invalid, must be between 0 and 100",
			cfg.Alerts.HighRiskProbability,
		))
	}
	if cfg.Alerts.MaxOpenTasks < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_open_tasks must be non-negative, got %d", cfg.Alerts.MaxOpenTasks))
	}

	if len(errs) > 0 {
		return fmt.Errorf("global config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
