// Package backend opens the transaction store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/config"
	"finboard/internal/storage"
	"finboard/internal/store"
	"finboard/internal/store/memory"
	"finboard/internal/store/mongostore"
)

const connectTimeout = 10 * time.Second

type Type string

const (
	Memory Type = config.BackendMemory
	SQLite Type = config.BackendSQLite
	Mongo  Type = config.BackendMongo
)

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Mongo:
		return true
	}
	return false
}

// Options selects and configures one store.
type Options struct {
	Type          Type
	DataDir       string
	SQLiteDBPath  string
	MongoURI      string
	MongoDatabase string
}

func FromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("app config is nil")
	}
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return Options{}, fmt.Errorf("invalid backend type in config: %s", cfg.DataBackend)
	}
	return Options{
		Type:          t,
		DataDir:       cfg.DataDir,
		SQLiteDBPath:  cfg.SQLiteDBPath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	}, nil
}

// Open returns the configured store. The caller closes it.
func Open(ctx context.Context, opts Options) (store.Store, error) {
	switch opts.Type {
	case Memory:
		dir := opts.DataDir
		if dir == "" {
			dir = "data"
		}
		s := memory.NewFromFiles(dir)
		slog.InfoContext(ctx, "Initialized memory backend", "data_dir", dir)
		return s, nil

	case SQLite:
		repo, err := storage.NewSQLiteRepository(opts.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		slog.InfoContext(ctx, "Initialized SQLite backend", "db_path", opts.SQLiteDBPath)
		return repo, nil

	case Mongo:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := mongostore.Connect(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize MongoDB store: %w", err)
		}
		slog.InfoContext(ctx, "Initialized MongoDB backend", "database", opts.MongoDatabase)
		return s, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", opts.Type)
}
