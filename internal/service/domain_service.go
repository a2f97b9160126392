package service

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidDomain пустое или синтаксически некорректное имя домена
var ErrInvalidDomain = errors.New("невалидный домен")

var hostnamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// HostResolver резолвер DNS; *net.Resolver ему удовлетворяет
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DomainService реестр разрешённых кастомных доменов
type DomainService interface {
	AddDomain(ctx context.Context, id, domain string) (*models.Domain, error)
	ListDomains(ctx context.Context) ([]models.Domain, error)
	// RemoveDomain удаляет по id, а при пустом id по имени домена
	RemoveDomain(ctx context.Context, id, domain string) error
	UpdateDomain(ctx context.Context, id, newDomain string) (*models.Domain, error)
	// CheckAvailability считает домен свободным, если у него нет DNS-записей
	CheckAvailability(ctx context.Context, domain string) (bool, error)
}

type domainService struct {
	repo     repository.DomainRepository
	resolver HostResolver
	logger   *zap.Logger
}

func NewDomainService(repo repository.DomainRepository, resolver HostResolver, logger *zap.Logger) DomainService {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &domainService{repo: repo, resolver: resolver, logger: logger}
}

func (s *domainService) AddDomain(ctx context.Context, id, domain string) (*models.Domain, error) {
	name, err := normalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	if id = strings.TrimSpace(id); id == "" {
		id = uuid.NewString()
	}

	entry := &models.Domain{ID: id, Domain: name}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Domain added", zap.String("domain", name))
	return entry, nil
}

func (s *domainService) ListDomains(ctx context.Context) ([]models.Domain, error) {
	return s.repo.List(ctx)
}

func (s *domainService) RemoveDomain(ctx context.Context, id, domain string) error {
	if id == "" {
		name, err := normalizeDomain(domain)
		if err != nil {
			return repository.ErrDomainNotFound
		}
		entry, err := s.repo.GetByDomain(ctx, name)
		if err != nil {
			return err
		}
		id = entry.ID
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Domain removed", zap.String("id", id))
	return nil
}

func (s *domainService) UpdateDomain(ctx context.Context, id, newDomain string) (*models.Domain, error) {
	name, err := normalizeDomain(newDomain)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, name); err != nil {
		return nil, err
	}

	return &models.Domain{ID: id, Domain: name}, nil
}

func (s *domainService) CheckAvailability(ctx context.Context, domain string) (bool, error) {
	name, err := normalizeDomain(domain)
	if err != nil {
		return false, err
	}

	addrs, err := s.resolver.LookupHost(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return true, nil
		}
		return false, err
	}

	return len(addrs) == 0, nil
}

func normalizeDomain(domain string) (string, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if name == "" || len(name) > 253 || !hostnamePattern.MatchString(name) {
		return "", ErrInvalidDomain
	}
	return name, nil
}
