package backend

import (
	"context"
	"errors"
	"fmt"

	"dailyowo/internal/amqp"
	"dailyowo/internal/config"
	applog "dailyowo/internal/log"
	"dailyowo/internal/ports"
	"dailyowo/internal/storage"
	"dailyowo/internal/storage/memory"
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	// Empty AMQPURL leaves Alerts nil.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Backend bundles the stores and the optional alert publisher.
type Backend struct {
	Transactions ports.TransactionStore
	Budgets      ports.BudgetStore
	Alerts       ports.AlertPublisher
	// AMQP is the client behind Alerts, kept for consumers.
	AMQP *amqp.Client

	closers []func() error
}

// Close releases every resource the backend opened, in reverse order.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// New opens the configured stores. An AMQP connection failure is logged
// and leaves alert publishing disabled rather than failing the backend.
func New(_ context.Context, cfg Config, logger *applog.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	b := &Backend{}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		b.Transactions, b.Budgets = repo, repo
		b.closers = append(b.closers, repo.Close)
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		store := memory.New()
		b.Transactions, b.Budgets = store, store
		logger.Info("Initialized memory backend")
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without alert publishing", "error", err)
		} else {
			b.AMQP = client
			b.Alerts = client
			b.closers = append(b.closers, client.Close)
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	return b, nil
}
