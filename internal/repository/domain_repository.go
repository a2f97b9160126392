package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/jackc/pgx/v5"
)

// DomainRepository реестр пользовательских доменов; значение домена уникально
type DomainRepository interface {
	Create(ctx context.Context, domain *models.Domain) error
	List(ctx context.Context) ([]models.Domain, error)
	GetByID(ctx context.Context, id string) (*models.Domain, error)
	GetByDomain(ctx context.Context, domain string) (*models.Domain, error)
	Update(ctx context.Context, id, domain string) error
	Delete(ctx context.Context, id string) error
}

type domainRepository struct {
	db *PostgresDB
}

func NewDomainRepository(db *PostgresDB) DomainRepository {
	return &domainRepository{db: db}
}

func (r *domainRepository) Create(ctx context.Context, domain *models.Domain) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO domains (id, domain) VALUES ($1, $2)`, domain.ID, domain.Domain)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDomainExists
		}
		return fmt.Errorf("failed to create domain: %w", err)
	}
	return nil
}

func (r *domainRepository) List(ctx context.Context) ([]models.Domain, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, domain FROM domains ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	domains := []models.Domain{}
	for rows.Next() {
		var d models.Domain
		if err := rows.Scan(&d.ID, &d.Domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domains: %w", err)
	}

	return domains, nil
}

func (r *domainRepository) GetByID(ctx context.Context, id string) (*models.Domain, error) {
	return r.getOne(ctx, `SELECT id, domain FROM domains WHERE id = $1`, id)
}

func (r *domainRepository) GetByDomain(ctx context.Context, domain string) (*models.Domain, error) {
	return r.getOne(ctx, `SELECT id, domain FROM domains WHERE domain = $1`, domain)
}

func (r *domainRepository) Update(ctx context.Context, id, domain string) error {
	result, err := r.db.Pool.Exec(ctx, `UPDATE domains SET domain = $2 WHERE id = $1`, id, domain)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDomainExists
		}
		return fmt.Errorf("failed to update domain: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDomainNotFound
	}

	return nil
}

func (r *domainRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDomainNotFound
	}

	return nil
}

func (r *domainRepository) getOne(ctx context.Context, query, arg string) (*models.Domain, error) {
	var d models.Domain
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&d.ID, &d.Domain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &d, nil
}
