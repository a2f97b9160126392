package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Ошибки сервиса пользователей
var (
	ErrMissingEmail        = errors.New("email обязателен")
	ErrInvalidPassword     = errors.New("невалидный пароль")
	ErrEmailTaken          = errors.New("email уже зарегистрирован")
	ErrUserNotRegistered   = errors.New("пользователь не зарегистрирован")
	ErrInvalidCredentials  = errors.New("неверный email или пароль")
	ErrConcurrentUpdate    = errors.New("документ изменён параллельно, попытки исчерпаны")
	ErrMissingLinkMainLink = errors.New("mainLink обязателен")
)

const maxUpdateAttempts = 10

// UserService реестр пользователей и их ссылок
type UserService interface {
	CreateUser(ctx context.Context, input *models.CreateUserInput) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, input *models.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	// Login проверяет пароль и выдаёт JWT (пустой, если выдача токенов не настроена)
	Login(ctx context.Context, email, password string) (*models.User, string, error)

	AddLink(ctx context.Context, userID string, input *models.CreateLinkInput) (*models.Link, error)
	ListLinks(ctx context.Context, userID string) ([]models.Link, error)
	GetLink(ctx context.Context, userID, linkID string) (*models.Link, error)
	UpdateLink(ctx context.Context, userID, linkID string, input *models.UpdateLinkInput) (*models.Link, error)
	RemoveLink(ctx context.Context, userID, linkID string) error
	IncrementLinkCounter(ctx context.Context, linkID string) (*models.Link, error)
}

type userService struct {
	repo              repository.UserRepository
	tokens            *token.Manager
	defaultProfileImg string
	logger            *zap.Logger
}

// NewUserService создаёт сервис пользователей; tokens может быть nil
func NewUserService(
	repo repository.UserRepository,
	tokens *token.Manager,
	defaultProfileImg string,
	logger *zap.Logger,
) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{
		repo:              repo,
		tokens:            tokens,
		defaultProfileImg: defaultProfileImg,
		logger:            logger,
	}
}

func (s *userService) CreateUser(ctx context.Context, input *models.CreateUserInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	var hash string
	if input.Password != "" {
		var err error
		if hash, err = hashPassword(input.Password); err != nil {
			return nil, err
		}
	}

	profileImg := input.ProfileImg
	if profileImg == "" {
		profileImg = s.defaultProfileImg
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        email,
		PasswordHash: hash,
		ProfileImg:   profileImg,
		Links: lo.Map(input.Links, func(in models.CreateLinkInput, _ int) models.Link {
			return newLink(&in, now)
		}),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.Int("links", len(user.Links)))
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *userService) UpdateUser(ctx context.Context, id string, input *models.UpdateUserInput) (*models.User, error) {
	var hash string
	if input.Password != nil {
		var err error
		if hash, err = hashPassword(*input.Password); err != nil {
			return nil, err
		}
	}

	var email string
	if input.Email != nil {
		if email = normalizeEmail(*input.Email); email == "" {
			return nil, ErrMissingEmail
		}
		owner, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != id:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
	}

	return s.mutate(ctx, s.byID(id), func(user *models.User) error {
		assign(&user.FirstName, input.FirstName)
		assign(&user.LastName, input.LastName)
		assign(&user.Username, input.Username)
		assign(&user.ProfileImg, input.ProfileImg)
		if input.Email != nil {
			user.Email = email
		}
		if input.Password != nil {
			user.PasswordHash = hash
		}
		return nil
	})
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", id))
	return nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrUserNotRegistered
		}
		return nil, "", err
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	if s.tokens == nil {
		return user, "", nil
	}

	signed, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, signed, nil
}

func (s *userService) AddLink(ctx context.Context, userID string, input *models.CreateLinkInput) (*models.Link, error) {
	if strings.TrimSpace(input.MainLink) == "" {
		return nil, ErrMissingLinkMainLink
	}

	link := newLink(input, time.Now().UTC())
	if _, err := s.mutate(ctx, s.byID(userID), func(user *models.User) error {
		user.Links = append(user.Links, link)
		return nil
	}); err != nil {
		return nil, err
	}

	return &link, nil
}

func (s *userService) ListLinks(ctx context.Context, userID string) ([]models.Link, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Links, nil
}

func (s *userService) GetLink(ctx context.Context, userID, linkID string) (*models.Link, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	link, ok := lo.Find(user.Links, func(l models.Link) bool { return l.ID == linkID })
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return &link, nil
}

func (s *userService) UpdateLink(ctx context.Context, userID, linkID string, input *models.UpdateLinkInput) (*models.Link, error) {
	var updated models.Link
	_, err := s.mutate(ctx, s.byID(userID), func(user *models.User) error {
		_, idx, ok := lo.FindIndexOf(user.Links, func(l models.Link) bool { return l.ID == linkID })
		if !ok {
			return repository.ErrLinkNotFound
		}

		link := &user.Links[idx]
		assign(&link.Title, input.Title)
		assign(&link.MainLink, input.MainLink)
		assign(&link.ShortenedLink, input.ShortenedLink)
		assign(&link.QRCode, input.QRCode)
		assign(&link.CustomLink, input.CustomLink)
		updated = *link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *userService) RemoveLink(ctx context.Context, userID, linkID string) error {
	_, err := s.mutate(ctx, s.byID(userID), func(user *models.User) error {
		kept := lo.Filter(user.Links, func(l models.Link, _ int) bool { return l.ID != linkID })
		if len(kept) == len(user.Links) {
			return repository.ErrLinkNotFound
		}
		user.Links = kept
		return nil
	})
	return err
}

// IncrementLinkCounter учитывает клик по ссылке: владелец ищется по id ссылки
func (s *userService) IncrementLinkCounter(ctx context.Context, linkID string) (*models.Link, error) {
	var counted models.Link
	find := func(ctx context.Context) (*models.User, error) {
		return s.repo.GetByLinkID(ctx, linkID)
	}

	_, err := s.mutate(ctx, find, func(user *models.User) error {
		_, idx, ok := lo.FindIndexOf(user.Links, func(l models.Link) bool { return l.ID == linkID })
		if !ok {
			// Ссылку удалили между поиском владельца и чтением документа
			return repository.ErrLinkNotFound
		}

		link := &user.Links[idx]
		link.Clicks++
		link.Visits = append(link.Visits, time.Now().UTC())
		counted = *link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &counted, nil
}

// mutate выполняет read-modify-write документа пользователя с оптимистичной блокировкой
func (s *userService) mutate(
	ctx context.Context,
	find func(ctx context.Context) (*models.User, error),
	apply func(user *models.User) error,
) (*models.User, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		user, err := find(ctx)
		if err != nil {
			return nil, err
		}

		if err := apply(user); err != nil {
			return nil, err
		}

		err = s.repo.Update(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		s.logger.Debug("User document changed concurrently, retrying",
			zap.String("user_id", user.ID),
			zap.Int("attempt", attempt),
		)
	}

	return nil, ErrConcurrentUpdate
}

func (s *userService) byID(id string) func(ctx context.Context) (*models.User, error) {
	return func(ctx context.Context) (*models.User, error) {
		return s.repo.GetByID(ctx, id)
	}
}

// newLink нормализует входные данные ссылки: новый id, пустые счётчики
func newLink(input *models.CreateLinkInput, now time.Time) models.Link {
	title := input.Title
	if title == "" {
		title = input.MainLink
	}

	createdAt := now
	if input.CreatedAt != nil && !input.CreatedAt.IsZero() {
		createdAt = input.CreatedAt.UTC()
	}

	return models.Link{
		ID:            uuid.NewString(),
		Title:         title,
		MainLink:      input.MainLink,
		ShortenedLink: input.ShortenedLink,
		QRCode:        input.QRCode,
		CustomLink:    input.CustomLink,
		Clicks:        0,
		Visits:        []time.Time{},
		CreatedAt:     createdAt,
	}
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Join(ErrInvalidPassword, err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// assign перезаписывает поле, только если значение передано
func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
