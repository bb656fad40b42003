package models

// StorageDriver names a TaskStore backend.
type StorageDriver string

const (
	StorageYAML     StorageDriver = "yaml"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// StorageConfig selects and addresses the task store.
type StorageConfig struct {
	Driver StorageDriver `yaml:"driver" mapstructure:"driver"`
	DSN    string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// AlertConfig holds the alert thresholds overridable from config.
type AlertConfig struct {
	OverdueDays         int `yaml:"overdue_days" mapstructure:"overdue_days"`
	HighRiskProbability int `yaml:"high_risk_probability" mapstructure:"high_risk_probability"`
	MaxOpenTasks        int `yaml:"max_open_tasks" mapstructure:"max_open_tasks"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .buildconfig via Viper.
type GlobalConfig struct {
	DefaultProjectType ProjectType        `yaml:"default_project_type" mapstructure:"default_project_type"`
	DefaultStartDate   string             `yaml:"default_start_date" mapstructure:"default_start_date"`
	CatalogPath        string             `yaml:"catalog_path,omitempty" mapstructure:"catalog_path"`
	Storage            StorageConfig      `yaml:"storage" mapstructure:"storage"`
	TelemetryEnabled   bool               `yaml:"telemetry_enabled" mapstructure:"telemetry_enabled"`
	Notifications      NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Alerts             AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
}
