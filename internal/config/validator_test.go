package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:         "http://localhost:8000",
			DecisionTimeout: 30 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "auto"},
		History: HistoryConfig{DBPath: "x/history.db", ResumePath: "x/resume.json"},
		Generate: GenerateConfig{
			ArticleType: "blog",
			Length:      "medium",
		},
		Serve: ServeConfig{Addr: ":8000", StageDelay: 300 * time.Millisecond},
	}
}

func TestValidateAccepts(t *testing.T) {
	t.Parallel()
	if err := NewValidator().Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Service.BaseURL = "not a url"
	cfg.Log.Level = "loud"
	cfg.Generate.ArticleType = "podcast"

	err := NewValidator().Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) < 3 {
		t.Errorf("expected at least 3 errors, got %d: %v", len(verrs), verrs)
	}
}

func TestValidateFields(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty base url", func(c *Config) { c.Service.BaseURL = "" }, "service.base_url"},
		{"relative base url", func(c *Config) { c.Service.BaseURL = "/api" }, "service.base_url"},
		{"zero decision timeout", func(c *Config) { c.Service.DecisionTimeout = 0 }, "service.decision_timeout"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty db path", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
		{"bad length", func(c *Config) { c.Generate.Length = "novel" }, "generate.length"},
		{"empty serve addr", func(c *Config) { c.Serve.Addr = "" }, "serve.addr"},
		{"negative delay", func(c *Config) { c.Serve.StageDelay = -time.Second }, "serve.stage_delay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := NewValidator().Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error should name %s: %v", tc.field, err)
			}
		})
	}
}
