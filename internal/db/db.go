// Package db connects to the configured database and builds the task store.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskverse/internal/config"
	"taskverse/pkg/task"
)

// Handle owns the database connection behind a task store.
type Handle struct {
	Kind  string
	Store task.Store
	close func(context.Context) error
}

// Close releases the underlying connection.
func (h *Handle) Close(ctx context.Context) error {
	if h.close == nil {
		return nil
	}
	return h.close(ctx)
}

// Open connects to the backend named by cfg.Store and ensures the schema.
func Open(ctx context.Context, cfg config.Config, opts ...task.Option) (*Handle, error) {
	var h *Handle
	switch cfg.Store {
	case config.StoreMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		h = &Handle{
			Kind:  cfg.Store,
			Store: task.NewMongoStore(client.Database(cfg.MongoDatabase), opts...),
			close: client.Disconnect,
		}
	case config.StorePostgres:
		pool, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		h = &Handle{
			Kind:  cfg.Store,
			Store: task.NewPgStore(pool, opts...),
			close: func(context.Context) error { pool.Close(); return nil },
		}
	case config.StoreMemory:
		h = &Handle{Kind: cfg.Store, Store: task.NewMemStore(opts...)}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if err := h.Store.EnsureSchema(ctx); err != nil {
		_ = h.Close(ctx)
		return nil, fmt.Errorf("ensure %s schema: %w", h.Kind, err)
	}
	return h, nil
}

// ConnectPostgres opens and pings a pgx pool.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// ConnectMongo opens and pings a MongoDB client.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
