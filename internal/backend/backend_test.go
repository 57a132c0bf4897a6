package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"dailyowo/internal/config"
	applog "dailyowo/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"nil config", nil, true},
		{"memory", &config.Config{DataBackend: "memory"}, false},
		{"sqlite", &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", &config.Config{DataBackend: "sqlite"}, true},
		{"sheets is gone", &config.Config{DataBackend: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "dailyowo.db")},
	} {
		t.Run(string(cfg.Type), func(t *testing.T) {
			b, err := New(context.Background(), cfg, logger)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if b.Transactions == nil || b.Budgets == nil {
				t.Fatalf("stores not initialized")
			}
			if b.Alerts != nil {
				t.Errorf("alerts should be disabled without AMQP_URL")
			}
			if err := b.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}

	if _, err := New(context.Background(), Config{Type: "sheets"}, logger); err == nil {
		t.Error("expected error for unknown backend")
	}
}
