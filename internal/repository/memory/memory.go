// Package memory хранилище в памяти процесса с той же семантикой, что и Postgres-реализация.
// Используется драйвером STORAGE_DRIVER=memory и в тестах.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/samber/lo"
)

// UserRepository implements repository.UserRepository
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.Version = 1
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *UserRepository) List(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	users, _ := m.List(ctx)
	user, found := lo.Find(users, func(u models.User) bool { return u.Email == email })
	if !found {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (m *UserRepository) GetByLinkID(ctx context.Context, linkID string) (*models.User, error) {
	users, _ := m.List(ctx)
	user, found := lo.Find(users, func(u models.User) bool {
		return lo.ContainsBy(u.Links, func(l models.Link) bool { return l.ID == linkID })
	})
	if !found {
		return nil, repository.ErrLinkNotFound
	}
	return &user, nil
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.users[user.ID]
	if !exists {
		return repository.ErrUserNotFound
	}
	if current.Version != user.Version {
		return repository.ErrVersionConflict
	}

	user.Version++
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *UserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[id]; !exists {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// cloneUser копирует документ, чтобы вызывающий код не мутировал хранилище напрямую
func cloneUser(u *models.User) *models.User {
	out := *u
	out.Links = lo.Map(u.Links, func(l models.Link, _ int) models.Link {
		l.Visits = append([]time.Time{}, l.Visits...)
		return l
	})
	return &out
}

// AliasRepository implements repository.AliasRepository
type AliasRepository struct {
	mu      sync.RWMutex
	aliases map[string]models.Alias
}

func NewAliasRepository() *AliasRepository {
	return &AliasRepository{aliases: make(map[string]models.Alias)}
}

func (m *AliasRepository) Create(ctx context.Context, alias *models.Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.aliases[alias.Alias]; exists {
		return repository.ErrAliasExists
	}
	m.aliases[alias.Alias] = *alias
	return nil
}

func (m *AliasRepository) Get(ctx context.Context, alias string) (*models.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.aliases[alias]
	if !exists {
		return nil, repository.ErrAliasNotFound
	}
	return &entry, nil
}

func (m *AliasRepository) ListByKind(ctx context.Context, kind models.AliasKind) ([]models.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	aliases := lo.Filter(lo.Values(m.aliases), func(a models.Alias, _ int) bool { return a.Kind == kind })
	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].CreatedAt.Equal(aliases[j].CreatedAt) {
			return aliases[i].Alias < aliases[j].Alias
		}
		return aliases[i].CreatedAt.Before(aliases[j].CreatedAt)
	})
	return aliases, nil
}

// ClickRepository implements repository.ClickRepository
type ClickRepository struct {
	mu         sync.RWMutex
	aggregates map[string]*models.ClickAggregate
}

func NewClickRepository() *ClickRepository {
	return &ClickRepository{aggregates: make(map[string]*models.ClickAggregate)}
}

func (m *ClickRepository) RecordClick(ctx context.Context, uniqueID string, event models.ClickEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg, exists := m.aggregates[uniqueID]
	if !exists {
		agg = &models.ClickAggregate{UniqueID: uniqueID}
		m.aggregates[uniqueID] = agg
	}
	agg.Clicks = append(agg.Clicks, event)
	agg.ClickCount++
	return agg.ClickCount, nil
}

func (m *ClickRepository) GetAggregate(ctx context.Context, uniqueID string) (*models.ClickAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg, exists := m.aggregates[uniqueID]
	if !exists {
		return nil, repository.ErrAggregateNotFound
	}
	out := *agg
	out.Clicks = append([]models.ClickEvent{}, agg.Clicks...)
	return &out, nil
}

// DomainRepository implements repository.DomainRepository
type DomainRepository struct {
	mu      sync.RWMutex
	domains []models.Domain
}

func NewDomainRepository() *DomainRepository {
	return &DomainRepository{}
}

func (m *DomainRepository) Create(ctx context.Context, domain *models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lo.ContainsBy(m.domains, func(d models.Domain) bool {
		return d.ID == domain.ID || d.Domain == domain.Domain
	}) {
		return repository.ErrDomainExists
	}
	m.domains = append(m.domains, *domain)
	return nil
}

func (m *DomainRepository) List(ctx context.Context) ([]models.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	domains := append([]models.Domain{}, m.domains...)
	sort.Slice(domains, func(i, j int) bool { return domains[i].Domain < domains[j].Domain })
	return domains, nil
}

func (m *DomainRepository) GetByID(ctx context.Context, id string) (*models.Domain, error) {
	return m.find(func(d models.Domain) bool { return d.ID == id })
}

func (m *DomainRepository) GetByDomain(ctx context.Context, domain string) (*models.Domain, error) {
	return m.find(func(d models.Domain) bool { return d.Domain == domain })
}

func (m *DomainRepository) Update(ctx context.Context, id, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, found := lo.FindIndexOf(m.domains, func(d models.Domain) bool { return d.ID == id })
	if !found {
		return repository.ErrDomainNotFound
	}
	if lo.ContainsBy(m.domains, func(d models.Domain) bool { return d.Domain == domain && d.ID != id }) {
		return repository.ErrDomainExists
	}
	m.domains[index].Domain = domain
	return nil
}

func (m *DomainRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, found := lo.FindIndexOf(m.domains, func(d models.Domain) bool { return d.ID == id })
	if !found {
		return repository.ErrDomainNotFound
	}
	m.domains = append(m.domains[:index], m.domains[index+1:]...)
	return nil
}

func (m *DomainRepository) find(match func(models.Domain) bool) (*models.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, found := lo.Find(m.domains, match)
	if !found {
		return nil, repository.ErrDomainNotFound
	}
	return &d, nil
}

// CacheRepository implements repository.CacheRepository
type CacheRepository struct {
	mu    sync.RWMutex
	cache map[string]models.Alias
}

func NewCacheRepository() *CacheRepository {
	return &CacheRepository{cache: make(map[string]models.Alias)}
}

func (m *CacheRepository) Get(ctx context.Context, alias string) (*models.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.cache[alias]
	if !exists {
		return nil, repository.ErrAliasNotFound
	}
	return &entry, nil
}

func (m *CacheRepository) Set(ctx context.Context, alias *models.Alias, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[alias.Alias] = *alias
	return nil
}

func (m *CacheRepository) Delete(ctx context.Context, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, alias)
	return nil
}

// Store набор репозиториев в памяти
type Store struct {
	Users   *UserRepository
	Aliases *AliasRepository
	Clicks  *ClickRepository
	Domains *DomainRepository
	Cache   *CacheRepository
}

func NewStore() *Store {
	return &Store{
		Users:   NewUserRepository(),
		Aliases: NewAliasRepository(),
		Clicks:  NewClickRepository(),
		Domains: NewDomainRepository(),
		Cache:   NewCacheRepository(),
	}
}

var (
	_ repository.UserRepository   = (*UserRepository)(nil)
	_ repository.AliasRepository  = (*AliasRepository)(nil)
	_ repository.ClickRepository  = (*ClickRepository)(nil)
	_ repository.DomainRepository = (*DomainRepository)(nil)
	_ repository.CacheRepository  = (*CacheRepository)(nil)
)
