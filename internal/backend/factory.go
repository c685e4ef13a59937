package backend

import (
	"context"
	"fmt"
	"log/slog"

	"jangbu/internal/amqp"
	"jangbu/internal/services"
	"jangbu/internal/storage"
	"jangbu/internal/store"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	service := f.assembleService(config, sqliteRepo)
	if err := service.LoadPersisted(ctx); err != nil {
		service.Close()
		return nil, fmt.Errorf("failed to restore persisted ledger: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Service: service,
		Cleanup: service.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	service := f.assembleService(config, nil)

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Service: service,
		Cleanup: service.Close,
	}, nil
}

// assembleService wires the store, optional AMQP sync and debouncer into a
// ledger service. A broker that is down at startup only disables sync.
func (f *DefaultFactory) assembleService(config Config, repo services.Repository) *services.LedgerService {
	var publisher services.SyncPublisher
	var debouncer *services.Debouncer

	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = amqpClient
			debouncer = services.NewDebouncer(config.SyncDebounce, func(revision uint64) {
				if err := amqpClient.PublishLedgerSync(context.Background(), revision); err != nil {
					f.logger.Error("Failed to publish debounced sync message",
						"revision", revision, "error", err)
				}
			})
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue,
				"debounce", config.SyncDebounce)
		}
	}

	return services.NewLedgerService(store.New(), repo, publisher, debouncer)
}
