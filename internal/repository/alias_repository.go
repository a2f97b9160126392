package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/jackc/pgx/v5"
)

// AliasRepository хранилище алиасов; короткие и кастомные алиасы делят одно пространство имён
type AliasRepository interface {
	Create(ctx context.Context, alias *models.Alias) error
	Get(ctx context.Context, alias string) (*models.Alias, error)
	ListByKind(ctx context.Context, kind models.AliasKind) ([]models.Alias, error)
}

type aliasRepository struct {
	db *PostgresDB
}

func NewAliasRepository(db *PostgresDB) AliasRepository {
	return &aliasRepository{db: db}
}

func (r *aliasRepository) Create(ctx context.Context, alias *models.Alias) error {
	query := `
		INSERT INTO aliases (alias, kind, long_url, unique_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		alias.Alias,
		string(alias.Kind),
		alias.LongURL,
		alias.UniqueID,
		alias.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAliasExists
		}
		return fmt.Errorf("failed to create alias: %w", err)
	}

	return nil
}

func (r *aliasRepository) Get(ctx context.Context, alias string) (*models.Alias, error) {
	query := `
		SELECT alias, kind, long_url, unique_id, created_at
		FROM aliases
		WHERE alias = $1
	`

	var (
		entry models.Alias
		kind  string
	)
	err := r.db.Pool.QueryRow(ctx, query, alias).Scan(
		&entry.Alias,
		&kind,
		&entry.LongURL,
		&entry.UniqueID,
		&entry.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}

	entry.Kind = models.AliasKind(kind)
	return &entry, nil
}

func (r *aliasRepository) ListByKind(ctx context.Context, kind models.AliasKind) ([]models.Alias, error) {
	query := `
		SELECT alias, long_url, unique_id, created_at
		FROM aliases
		WHERE kind = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer rows.Close()

	aliases := []models.Alias{}
	for rows.Next() {
		entry := models.Alias{Kind: kind}
		if err := rows.Scan(&entry.Alias, &entry.LongURL, &entry.UniqueID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aliases: %w", err)
	}

	return aliases, nil
}
