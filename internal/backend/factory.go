package backend

import (
	"context"
	"errors"
	"fmt"

	"nrsnotify/internal/amqp"
	"nrsnotify/internal/log"
	"nrsnotify/internal/storage"
	"nrsnotify/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
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

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	case CookieBackend:
		result = f.createCookieBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(result, config)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Type:        SQLiteBackend,
		Store:       sqliteRepo,
		ReadyChecks: map[string]ReadyCheck{"sqlite": sqliteRepo.Ping},
		Cleanup:     sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Type:        MemoryBackend,
		Store:       memory.New(),
		ReadyChecks: map[string]ReadyCheck{},
	}
}

func (f *DefaultFactory) createCookieBackend() *BackendResult {
	f.logger.Info("Initialized cookie backend")
	return &BackendResult{
		Type:        CookieBackend,
		ReadyChecks: map[string]ReadyCheck{},
	}
}

// attachPublisher connects to AMQP when configured. A broker that cannot be
// reached only disables the events; mark-as-read keeps working locally.
func (f *DefaultFactory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP disabled - no AMQP_URL provided")
		return
	}

	amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without watermark events", log.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = amqpClient
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		err := amqpClient.Close()
		if storeCleanup != nil {
			err = errors.Join(err, storeCleanup())
		}
		return err
	}
}
