// Package engineconfig holds the engine's YAML-loaded configuration,
// mirroring the teacher's pattern of a root Config struct with nested
// per-concern structs, each carrying its own SetDefaults/Validate pair.
package engineconfig

import (
	"fmt"
	"os"

	"github.com/rollbackagent/engine/pkg/logger"
	"github.com/rollbackagent/engine/pkg/sqlstore"
	"gopkg.in/yaml.v3"
)

// Config is the engine's top-level construction options, covering
// spec.md §6's "Configuration options recognized at engine construction"
// plus the ambient database and logging concerns every component needs.
type Config struct {
	// AutoCheckpoint enables the §4.4 step-6 auto-checkpoint behavior.
	AutoCheckpoint bool `yaml:"auto_checkpoint"`

	// AutoPruneKeepLatest is the cap used by cleanup_auto_checkpoints.
	AutoPruneKeepLatest int `yaml:"auto_prune_keep_latest"`

	// HistoryRunsInjected bounds how many history turns are passed to the
	// model on a restored first call after a rollback.
	HistoryRunsInjected int `yaml:"history_runs_injected"`

	// ModelEndpoint, ModelAPIKey, ModelID, ModelTemperature are passed
	// through to the model client unexamined.
	ModelEndpoint    string  `yaml:"model_endpoint"`
	ModelAPIKey      string  `yaml:"model_api_key"`
	ModelID          string  `yaml:"model_id"`
	ModelTemperature float64 `yaml:"model_temperature"`

	Database *sqlstore.DatabaseConfig `yaml:"database"`
	Logger   *LoggerConfig            `yaml:"logger"`
}

// LoggerConfig configures pkg/logger via InitLogging.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// InitLogging wires the loaded LoggerConfig into the process-wide default
// logger. Returns a cleanup func (closing the log file, if one was
// configured) that the caller should defer.
func (c *Config) InitLogging() (func(), error) {
	return logger.InitFromConfig(c.Logger.Level, c.Logger.File, c.Logger.Format)
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

func (c *LoggerConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logger: invalid level %q", c.Level)
	}
	return nil
}

// SetDefaults applies the engine's defaults. Zero-value AutoCheckpoint is
// left false since "not enabled" is a meaningful, explicit choice. The
// prune cap, history bound, database and logger get non-zero defaults;
// the model pass-through fields are left as loaded.
func (c *Config) SetDefaults() {
	if c.AutoPruneKeepLatest == 0 {
		c.AutoPruneKeepLatest = 5
	}
	if c.HistoryRunsInjected == 0 {
		c.HistoryRunsInjected = 10
	}
	if c.Database == nil {
		c.Database = &sqlstore.DatabaseConfig{Driver: "sqlite", Database: "engine.db"}
	}
	c.Database.SetDefaults()
	if c.Logger == nil {
		c.Logger = &LoggerConfig{}
	}
	c.Logger.SetDefaults()
}

// Validate checks the engine configuration after SetDefaults has run.
func (c *Config) Validate() error {
	if c.AutoPruneKeepLatest < 1 {
		return fmt.Errorf("auto_prune_keep_latest must be >= 1")
	}
	if c.HistoryRunsInjected < 0 {
		return fmt.Errorf("history_runs_injected must be >= 0")
	}
	if c.ModelTemperature < 0 {
		return fmt.Errorf("model_temperature must be >= 0")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads a YAML file into a Config, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engineconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("engineconfig: parse %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engineconfig: %s: %w", path, err)
	}
	return &cfg, nil
}
