package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// DB is the PostgreSQL catalog driver. It wraps a pgxpool.Pool and relies
// on the pgvector extension for similarity search.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	// outboxEnabled makes catalog writes enqueue search_outbox rows in the
	// same transaction. Enabled only when a Qdrant index is configured.
	outboxEnabled bool
}

var _ Store = (*DB)(nil)

// New creates a PostgreSQL store with a connection pool.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	// Register pgvector types on each new connection so vector columns can
	// be encoded. The registration is best-effort: if the vector extension
	// hasn't been created yet (e.g. during initial pool startup before
	// migrations), we log and proceed. Subsequent connections will succeed
	// once the extension exists.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("storage: pgvector types not registered (extension may not exist yet)", "error", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// EnableSearchOutbox turns on transactional outbox writes. Call before the
// server starts handling requests; catalog writes made afterwards enqueue
// index sync work alongside the row change.
func (db *DB) EnableSearchOutbox() {
	db.outboxEnabled = true
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close(ctx context.Context) error {
	db.pool.Close()
	return nil
}
