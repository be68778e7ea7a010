package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/inkflow/inkflow/internal/config"
	"github.com/inkflow/inkflow/internal/logging"
)

// resolvedConfigFile is the config file actually read by the last
// loadConfig call, empty when running on defaults only.
var resolvedConfigFile string

// loadConfig loads and validates configuration. Flags bound to viper take
// precedence over environment and file values.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	resolvedConfigFile = loader.ConfigFile()

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger from config. Logs go to stderr so
// stdout stays clean for command output.
func newLogger(cfg *config.Config) *logging.Logger {
	if quiet {
		return logging.NewNop()
	}
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// Output styles for command output.
var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleStage   = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// styled applies a style unless --no-color is set.
func styled(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

// printf writes to stdout unless --quiet is set.
func printf(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Printf(format, args...)
}
