package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/SergeiKhy/scissors/internal/metrics"
	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ошибки сервиса алиасов
var (
	ErrInvalidURL   = errors.New("невалидный URL")
	ErrInvalidAlias = errors.New("невалидный алиас")
	ErrInvalidKind  = errors.New("неизвестный тип алиаса")
	ErrSpamDomain   = errors.New("домен в чёрном списке")
)

const (
	defaultCacheTTL     = 24 * time.Hour
	codeLength          = 8
	charset             = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxGenerateAttempts = 5
)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Алиасы, которые перекрываются статическими маршрутами роутера
var reservedAliases = map[string]struct{}{
	"api": {}, "users": {}, "login": {}, "links": {}, "s": {}, "c": {}, "metrics": {},
	"check-domain": {}, "add-domain": {}, "get-domains": {}, "remove-domain": {}, "update-domain": {},
}

// Чёрный список доменов назначения
var blacklistedDomains = []string{
	"malware.com",
	"phishing.com",
	"spam.com",
}

// AliasService реестр алиасов: создание и разрешение в целевой URL
type AliasService interface {
	CreateAlias(ctx context.Context, input *models.CreateAliasInput) (*models.Alias, error)
	// Resolve ищет алиас; пустой kind означает любой тип (сначала short, затем custom)
	Resolve(ctx context.Context, alias string, kind models.AliasKind) (*models.Alias, error)
	ListAliases(ctx context.Context, kind models.AliasKind) ([]models.Alias, error)
}

type aliasService struct {
	aliasRepo repository.AliasRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewAliasService создаёт новый экземпляр сервиса
func NewAliasService(
	aliasRepo repository.AliasRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
) AliasService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aliasService{
		aliasRepo: aliasRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// CreateAlias создаёт короткий или кастомный алиас
func (s *aliasService) CreateAlias(ctx context.Context, input *models.CreateAliasInput) (*models.Alias, error) {
	alias, err := s.createAlias(ctx, input)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, repository.ErrAliasExists) {
			status = "conflict"
		}
	}
	metrics.AliasCreationTotal.WithLabelValues(string(input.Kind), status).Inc()
	return alias, err
}

func (s *aliasService) createAlias(ctx context.Context, input *models.CreateAliasInput) (*models.Alias, error) {
	if !input.Kind.Valid() {
		return nil, ErrInvalidKind
	}

	if err := validateURL(input.LongURL); err != nil {
		return nil, err
	}

	if err := checkSpamDomain(input.LongURL); err != nil {
		return nil, err
	}

	uniqueID := strings.TrimSpace(input.UniqueID)
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}

	code := strings.TrimSpace(input.Alias)
	generated := code == ""
	if generated && input.Kind == models.AliasCustom {
		return nil, ErrInvalidAlias
	}
	if !generated {
		if err := validateAlias(code); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if generated {
			var err error
			if code, err = generateShortCode(); err != nil {
				return nil, fmt.Errorf("failed to generate code: %w", err)
			}
		}

		alias := &models.Alias{
			Kind:      input.Kind,
			Alias:     code,
			LongURL:   input.LongURL,
			UniqueID:  uniqueID,
			CreatedAt: time.Now().UTC(),
		}

		err := s.aliasRepo.Create(ctx, alias)
		if err == nil {
			if err := s.cacheRepo.Set(ctx, alias, s.cacheTTL); err != nil {
				s.logger.Warn("Failed to cache alias", zap.String("alias", alias.Alias), zap.Error(err))
			}
			return alias, nil
		}

		// Повтор имеет смысл только для сгенерированного кода
		if !generated || !errors.Is(err, repository.ErrAliasExists) {
			return nil, err
		}
		s.logger.Debug("Generated alias collided, retrying", zap.String("alias", code), zap.Int("attempt", attempt+1))
	}

	return nil, repository.ErrAliasExists
}

// Resolve получает алиас (сначала из кэша, затем из хранилища)
func (s *aliasService) Resolve(ctx context.Context, code string, kind models.AliasKind) (*models.Alias, error) {
	alias, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAliasNotFound) {
			metrics.RedirectTotal.WithLabelValues("miss").Inc()
		}
		return nil, err
	}

	if kind != "" && alias.Kind != kind {
		metrics.RedirectTotal.WithLabelValues("miss").Inc()
		return nil, repository.ErrAliasNotFound
	}

	metrics.RedirectTotal.WithLabelValues("hit").Inc()
	return alias, nil
}

func (s *aliasService) lookup(ctx context.Context, code string) (*models.Alias, error) {
	if alias, err := s.cacheRepo.Get(ctx, code); err == nil {
		metrics.AliasCacheTotal.WithLabelValues("hit").Inc()
		return alias, nil
	}
	metrics.AliasCacheTotal.WithLabelValues("miss").Inc()

	alias, err := s.aliasRepo.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, alias, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache alias", zap.String("alias", code), zap.Error(err))
	}

	return alias, nil
}

// ListAliases возвращает все алиасы заданного типа
func (s *aliasService) ListAliases(ctx context.Context, kind models.AliasKind) ([]models.Alias, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.aliasRepo.ListByKind(ctx, kind)
}

// generateShortCode генерирует случайный короткий код длиной 8 символов
func generateShortCode() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// validateURL принимает только абсолютные http(s) URL с хостом
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

func validateAlias(code string) error {
	if !aliasPattern.MatchString(code) {
		return ErrInvalidAlias
	}
	if _, reserved := reservedAliases[strings.ToLower(code)]; reserved {
		return ErrInvalidAlias
	}
	return nil
}

// checkSpamDomain проверяет хост назначения по чёрному списку
func checkSpamDomain(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range blacklistedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return ErrSpamDomain
		}
	}
	return nil
}
