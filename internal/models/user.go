package models

import (
	"time"
)

// User владелец профиля со встроенным списком ссылок
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	ProfileImg   string `json:"profileImg"`
	Links        []Link `json:"links"`

	// Version используется для оптимистичной блокировки при записи
	Version int64 `json:"-"`
}

// Link ссылка, встроенная в документ пользователя
type Link struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	MainLink      string      `json:"mainLink"`
	ShortenedLink string      `json:"shortenedLink"`
	QRCode        string      `json:"qrcode"`
	CustomLink    string      `json:"customLink"`
	Clicks        int64       `json:"clicks"`
	Visits        []time.Time `json:"visits"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// CreateUserInput тело запроса на создание пользователя
type CreateUserInput struct {
	FirstName  string            `json:"firstName"`
	LastName   string            `json:"lastName"`
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	ProfileImg string            `json:"profileImg"`
	Links      []CreateLinkInput `json:"links"`
}

// UpdateUserInput частичное обновление: nil означает "оставить как есть"
type UpdateUserInput struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	ProfileImg *string `json:"profileImg"`
}

// CreateLinkInput тело запроса на добавление ссылки пользователю
type CreateLinkInput struct {
	Title         string     `json:"title"`
	MainLink      string     `json:"mainLink"`
	ShortenedLink string     `json:"shortenedLink"`
	QRCode        string     `json:"qrcode"`
	CustomLink    string     `json:"customLink"`
	CreatedAt     *time.Time `json:"createdAt"`
}

// UpdateLinkInput частичное обновление ссылки; счётчики меняются только кликами
type UpdateLinkInput struct {
	Title         *string `json:"title"`
	MainLink      *string `json:"mainLink"`
	ShortenedLink *string `json:"shortenedLink"`
	QRCode        *string `json:"qrcode"`
	CustomLink    *string `json:"customLink"`
}
