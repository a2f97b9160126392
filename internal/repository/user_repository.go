package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/jackc/pgx/v5"
)

// UserRepository хранилище пользователей вместе со встроенными ссылками.
// Update выполняется только если версия документа не изменилась с момента чтения.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLinkID(ctx context.Context, linkID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db *PostgresDB
}

func NewUserRepository(db *PostgresDB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `doc, password_hash, version`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, doc, version)
		VALUES ($1, $2, $3, $4, 1)
	`

	if _, err := r.db.Pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, string(doc)); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.Version = 1
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.one(row)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY id LIMIT 1`, email)
	return r.one(row)
}

// GetByLinkID ищет владельца ссылки по вхождению {"id": linkID} в массив links
func (r *userRepository) GetByLinkID(ctx context.Context, linkID string) (*models.User, error) {
	probe, err := json.Marshal([]map[string]string{{"id": linkID}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal link probe: %w", err)
	}

	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE doc -> 'links' @> $1::jsonb LIMIT 1`,
		string(probe),
	)

	user, err := r.one(row)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrLinkNotFound
	}
	return user, err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, doc = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	result, err := r.db.Pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, string(doc), user.Version)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, user.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrVersionConflict
	}

	user.Version++
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepository) one(row pgx.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		doc  []byte
		user models.User
	)

	if err := row.Scan(&doc, &user.PasswordHash, &user.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	hash, version := user.PasswordHash, user.Version
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	user.PasswordHash, user.Version = hash, version

	if user.Links == nil {
		user.Links = []models.Link{}
	}

	return &user, nil
}
