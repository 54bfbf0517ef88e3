// Package backend opens the repository.Store selected by STORE_BACKEND.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"docrepo/internal/config"
	"docrepo/internal/database"
	"docrepo/internal/database/migration"
	"docrepo/internal/repository"
	"docrepo/internal/repository/memory"
	"docrepo/internal/repository/mongodb"
	"docrepo/internal/repository/objectstore"
	"docrepo/internal/repository/postgres"
	redisstore "docrepo/internal/repository/redis"
	"docrepo/internal/storage"
)

// Connection constructors, swapped in tests.
var (
	newPostgres    = database.NewPostgres
	ensureMigrated = migration.EnsureMigrated
	newMongo       = database.NewMongo
	newRedis       = database.NewRedis
	newMinIO       = storage.NewMinIO
)

// Backend is an open document store and the func releasing its connection.
type Backend struct {
	Name  string
	Store repository.Store
	Close func(context.Context) error
}

func noClose(context.Context) error { return nil }

// Open connects to the configured backend. Postgres is migrated before use.
func Open(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Backend, error) {
	name := cfg.StoreBackend
	logger = logger.With("component", "backend", "backend", name)

	var (
		b   *Backend
		err error
	)
	switch name {
	case config.BackendMemory, "":
		b = &Backend{Name: config.BackendMemory, Store: memory.NewStore(), Close: noClose}
	case config.BackendPostgres:
		b, err = openPostgres(ctx, cfg, logger)
	case config.BackendMongo:
		b, err = openMongo(ctx, cfg)
	case config.BackendRedis:
		b, err = openRedis(ctx, cfg)
	case config.BackendS3:
		b, err = openObjectStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", name)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("store_opened")
	return b, nil
}

func openPostgres(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Backend, error) {
	db, err := newPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := ensureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Backend{
		Name:  config.BackendPostgres,
		Store: postgres.NewStore(db),
		Close: func(context.Context) error { return db.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.AppConfig) (*Backend, error) {
	client, db, err := newMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &Backend{
		Name:  config.BackendMongo,
		Store: mongodb.NewStore(db),
		Close: client.Disconnect,
	}, nil
}

func openRedis(ctx context.Context, cfg *config.AppConfig) (*Backend, error) {
	client, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Backend{
		Name:  config.BackendRedis,
		Store: redisstore.NewStore(client, cfg.Redis.Prefix),
		Close: func(context.Context) error { return client.Close() },
	}, nil
}

func openObjectStore(ctx context.Context, cfg *config.AppConfig) (*Backend, error) {
	objects, err := newMinIO(ctx, cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}
	return &Backend{
		Name:  config.BackendS3,
		Store: objectstore.NewStore(objects),
		Close: noClose,
	}, nil
}
