// Package config loads and validates inkflow configuration from flags,
// environment, config files, and defaults.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service" yaml:"service"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Generate GenerateConfig `mapstructure:"generate" yaml:"generate"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
}

// ServiceConfig points at the generation service.
type ServiceConfig struct {
	// BaseURL is the root of the generation service API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// DecisionTimeout bounds the outline decision callback.
	DecisionTimeout time.Duration `mapstructure:"decision_timeout" yaml:"decision_timeout"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // auto, json, text
}

// HistoryConfig controls local persistence.
type HistoryConfig struct {
	// DBPath is the SQLite database holding past generations.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// ResumePath is the marker file for an in-flight generation.
	ResumePath string `mapstructure:"resume_path" yaml:"resume_path"`
}

// GenerateConfig holds defaults for the generate command.
type GenerateConfig struct {
	ArticleType string `mapstructure:"article_type" yaml:"article_type"`
	Length      string `mapstructure:"length" yaml:"length"`

	// CopyToClipboard copies the finished markdown automatically.
	CopyToClipboard bool `mapstructure:"copy_to_clipboard" yaml:"copy_to_clipboard"`
}

// ServeConfig configures the local mock generation service.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Scenario is an optional YAML script of events to play back.
	Scenario string `mapstructure:"scenario" yaml:"scenario"`

	// StageDelay paces scripted events.
	StageDelay time.Duration `mapstructure:"stage_delay" yaml:"stage_delay"`

	// AutoConfirm skips the outline checkpoint server-side.
	AutoConfirm bool `mapstructure:"auto_confirm" yaml:"auto_confirm"`
}
