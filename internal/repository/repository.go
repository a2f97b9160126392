package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/scissors/internal/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrLinkNotFound      = errors.New("link not found")
	ErrAliasNotFound     = errors.New("alias not found")
	ErrAliasExists       = errors.New("alias already exists")
	ErrDomainNotFound    = errors.New("domain not found")
	ErrDomainExists      = errors.New("domain already exists")
	ErrAggregateNotFound = errors.New("click aggregate not found")
	ErrVersionConflict   = errors.New("document was modified concurrently")
)

// Схема хранилища: документы пользователей в JSONB, алиасы, агрегаты кликов, домены
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	doc           JSONB NOT NULL,
	version       BIGINT NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);
CREATE INDEX IF NOT EXISTS idx_users_links ON users USING GIN ((doc -> 'links') jsonb_path_ops);

CREATE TABLE IF NOT EXISTS aliases (
	alias      TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	long_url   TEXT NOT NULL,
	unique_id  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_aliases_kind ON aliases (kind, created_at);

CREATE TABLE IF NOT EXISTS link_clicks (
	unique_id   TEXT PRIMARY KEY,
	click_count BIGINT NOT NULL DEFAULT 0,
	clicks      JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS domains (
	id     TEXT PRIMARY KEY,
	domain TEXT NOT NULL UNIQUE
);
`

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	// Настройка пула соединений
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// Migrate создаёт таблицы, если их ещё нет
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}

// isUniqueViolation проверяет код ошибки Postgres 23505
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
