package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/redis/go-redis/v9"
)

// CacheRepository кэш разрешения алиасов
type CacheRepository interface {
	Get(ctx context.Context, alias string) (*models.Alias, error)
	Set(ctx context.Context, alias *models.Alias, ttl time.Duration) error
	Delete(ctx context.Context, alias string) error
}

// cachedAlias формат записи в Redis (Alias сериализуется в API-представление без типа)
type cachedAlias struct {
	Kind      models.AliasKind `json:"kind"`
	Alias     string           `json:"alias"`
	LongURL   string           `json:"long_url"`
	UniqueID  string           `json:"unique_id"`
	CreatedAt time.Time        `json:"created_at"`
}

type cacheRepository struct {
	db *RedisDB
}

func NewCacheRepository(db *RedisDB) CacheRepository {
	return &cacheRepository{db: db}
}

func (r *cacheRepository) Get(ctx context.Context, alias string) (*models.Alias, error) {
	data, err := r.db.Client.Get(ctx, r.key(alias)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAliasNotFound
	}
	if err != nil {
		return nil, err
	}

	var entry cachedAlias
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alias: %w", err)
	}

	return &models.Alias{
		Kind:      entry.Kind,
		Alias:     entry.Alias,
		LongURL:   entry.LongURL,
		UniqueID:  entry.UniqueID,
		CreatedAt: entry.CreatedAt,
	}, nil
}

func (r *cacheRepository) Set(ctx context.Context, alias *models.Alias, ttl time.Duration) error {
	data, err := json.Marshal(cachedAlias{
		Kind:      alias.Kind,
		Alias:     alias.Alias,
		LongURL:   alias.LongURL,
		UniqueID:  alias.UniqueID,
		CreatedAt: alias.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alias: %w", err)
	}

	return r.db.Client.Set(ctx, r.key(alias.Alias), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, alias string) error {
	return r.db.Client.Del(ctx, r.key(alias)).Err()
}

func (r *cacheRepository) key(alias string) string {
	return "alias:" + alias
}

// NewNopCacheRepository кэш-заглушка для запуска без Redis
func NewNopCacheRepository() CacheRepository {
	return nopCache{}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*models.Alias, error) {
	return nil, ErrAliasNotFound
}

func (nopCache) Set(context.Context, *models.Alias, time.Duration) error { return nil }

func (nopCache) Delete(context.Context, string) error { return nil }
