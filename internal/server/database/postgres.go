package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations contains all database migrations in order.
// Each migration has a version key and SQL to execute.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_users",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				user_id       VARCHAR(36)  PRIMARY KEY,
				email         VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				last_login    TIMESTAMPTZ
			);
		`,
	},
	{
		Version: "000002_create_files",
		SQL: `
			CREATE TABLE IF NOT EXISTS files (
				file_id      VARCHAR(36)  PRIMARY KEY,
				user_id      VARCHAR(36)  NOT NULL REFERENCES users(user_id),
				file_name    VARCHAR(255) NOT NULL,
				blob_key     VARCHAR(255) NOT NULL,
				blob_url     TEXT         NOT NULL,
				file_size    BIGINT       NOT NULL,
				content_type VARCHAR(255) NOT NULL,
				upload_date  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				status       VARCHAR(16)  NOT NULL DEFAULT 'active'
			);
			CREATE INDEX IF NOT EXISTS idx_files_user_id ON files(user_id);
			CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
		`,
	},
	{
		Version: "000003_create_share_links",
		SQL: `
			CREATE TABLE IF NOT EXISTS share_links (
				link_id      VARCHAR(36)  PRIMARY KEY,
				file_id      VARCHAR(36)  NOT NULL REFERENCES files(file_id),
				expires_at   TIMESTAMPTZ,
				access_count INTEGER      NOT NULL DEFAULT 0,
				created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				is_revoked   BOOLEAN      NOT NULL DEFAULT FALSE,
				ttl_seconds  BIGINT
			);
			CREATE INDEX IF NOT EXISTS idx_share_links_file_id ON share_links(file_id);
			CREATE INDEX IF NOT EXISTS idx_share_links_expires_at ON share_links(expires_at);
		`,
	},
}

// DB wraps a pgxpool connection pool and provides health checks and migrations.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies all pending database migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
