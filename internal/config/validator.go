package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/inkflow/inkflow/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateService(&cfg.Service)
	v.validateLog(&cfg.Log)
	v.validateHistory(&cfg.History)
	v.validateGenerate(&cfg.Generate)
	v.validateServe(&cfg.Serve)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateService(cfg *ServiceConfig) {
	if cfg.BaseURL == "" {
		v.addError("service.base_url", cfg.BaseURL, "must not be empty")
		return
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("service.base_url", cfg.BaseURL, "must be an absolute URL")
	}
	if cfg.DecisionTimeout <= 0 {
		v.addError("service.decision_timeout", cfg.DecisionTimeout, "must be positive")
	}
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "json", "text":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, json, text")
	}
}

func (v *Validator) validateHistory(cfg *HistoryConfig) {
	if cfg.DBPath == "" {
		v.addError("history.db_path", cfg.DBPath, "must not be empty")
	}
	if cfg.ResumePath == "" {
		v.addError("history.resume_path", cfg.ResumePath, "must not be empty")
	}
}

func (v *Validator) validateGenerate(cfg *GenerateConfig) {
	if _, err := core.ParseArticleType(cfg.ArticleType); err != nil {
		v.addError("generate.article_type", cfg.ArticleType, "must be one of: blog, social")
	}
	if _, err := core.ParseTargetLength(cfg.Length); err != nil {
		v.addError("generate.length", cfg.Length, "must be one of: mini, short, medium, long, custom")
	}
}

func (v *Validator) validateServe(cfg *ServeConfig) {
	if cfg.Addr == "" {
		v.addError("serve.addr", cfg.Addr, "must not be empty")
	}
	if cfg.StageDelay < 0 {
		v.addError("serve.stage_delay", cfg.StageDelay, "must not be negative")
	}
}
