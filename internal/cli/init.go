// Package cli holds the start-up steps shared by the dailyowo commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dailyowo/internal/config"
	applog "dailyowo/internal/log"
	"dailyowo/internal/taxonomy"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default. Logs go to out so that command output on stdout stays
// machine readable.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using info\n", err)
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadTaxonomy reads TAXONOMY_FILE when set and falls back to the built-in
// category list otherwise.
func LoadTaxonomy(cfg *config.Config) (*taxonomy.Taxonomy, error) {
	if cfg.TaxonomyFile == "" {
		return taxonomy.Default(), nil
	}
	t, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy %s: %w", cfg.TaxonomyFile, err)
	}
	return t, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
