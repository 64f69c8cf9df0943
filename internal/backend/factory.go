package backend

import (
	"context"
	"fmt"

	"smartexpense/internal/kv/file"
	"smartexpense/internal/kv/memory"
	"smartexpense/internal/log"
	"smartexpense/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FileBackend:
		return f.createFileBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.Open(config.SQLiteDBPath, f.logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := file.New(config.dataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", config.dataDir())

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewFromDir(config.dataDir())

	f.logger.Info("Initialized memory backend", "seed_directory", config.dataDir(), "seeded_keys", len(store.Keys()))

	return &BackendResult{Store: store}, nil
}
