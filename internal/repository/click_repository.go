package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/jackc/pgx/v5"
)

// ClickRepository агрегаты кликов по uniqueId
type ClickRepository interface {
	// RecordClick атомарно добавляет событие и увеличивает счётчик, возвращает новое значение
	RecordClick(ctx context.Context, uniqueID string, event models.ClickEvent) (int64, error)
	GetAggregate(ctx context.Context, uniqueID string) (*models.ClickAggregate, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, uniqueID string, event models.ClickEvent) (int64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal click: %w", err)
	}

	query := `
		INSERT INTO link_clicks (unique_id, click_count, clicks)
		VALUES ($1, 1, jsonb_build_array($2::jsonb))
		ON CONFLICT (unique_id) DO UPDATE
		SET click_count = link_clicks.click_count + 1,
			clicks = link_clicks.clicks || jsonb_build_array($2::jsonb)
		RETURNING click_count
	`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, uniqueID, string(data)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to record click: %w", err)
	}

	return count, nil
}

func (r *clickRepository) GetAggregate(ctx context.Context, uniqueID string) (*models.ClickAggregate, error) {
	query := `SELECT click_count, clicks FROM link_clicks WHERE unique_id = $1`

	var (
		clicks []byte
		agg    = models.ClickAggregate{UniqueID: uniqueID}
	)
	err := r.db.Pool.QueryRow(ctx, query, uniqueID).Scan(&agg.ClickCount, &clicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAggregateNotFound
		}
		return nil, fmt.Errorf("failed to get click aggregate: %w", err)
	}

	if err := json.Unmarshal(clicks, &agg.Clicks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clicks: %w", err)
	}

	return &agg, nil
}
