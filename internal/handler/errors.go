package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/SergeiKhy/scissors/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// apiError описание ошибки для клиента
type apiError struct {
	status  int
	code    string
	message string
}

// Таблица соответствия ошибок сервисов HTTP-ответам; проверяется по порядку
var errorTable = []struct {
	err error
	api apiError
}{
	{repository.ErrUserNotFound, apiError{http.StatusNotFound, "user_not_found", "User not found"}},
	{repository.ErrLinkNotFound, apiError{http.StatusNotFound, "link_not_found", "Link not found"}},
	{repository.ErrAliasNotFound, apiError{http.StatusNotFound, "not_found", notFoundPage}},
	{repository.ErrAggregateNotFound, apiError{http.StatusNotFound, "clicks_not_found", "No clicks recorded for this link"}},
	{repository.ErrAliasExists, apiError{http.StatusBadRequest, "alias_exists", "This link already exists"}},
	{service.ErrInvalidURL, apiError{http.StatusBadRequest, "invalid_url", "A valid http(s) URL is required"}},
	{service.ErrInvalidAlias, apiError{http.StatusBadRequest, "invalid_alias", "Alias must be 1-64 letters, digits, '-' or '_' and not a reserved word"}},
	{service.ErrInvalidKind, apiError{http.StatusBadRequest, "invalid_kind", "Unknown alias kind"}},
	{service.ErrSpamDomain, apiError{http.StatusBadRequest, "spam_domain", "Destination domain is blocked"}},
	{service.ErrMissingEmail, apiError{http.StatusBadRequest, "missing_email", "Email is required"}},
	{service.ErrEmailTaken, apiError{http.StatusBadRequest, "email_taken", "Email is already registered"}},
	{service.ErrInvalidPassword, apiError{http.StatusBadRequest, "invalid_password", "Password must be 1-72 bytes"}},
	{service.ErrMissingLinkMainLink, apiError{http.StatusBadRequest, "missing_main_link", "mainLink is required"}},
	{service.ErrUserNotRegistered, apiError{http.StatusUnauthorized, "user_not_registered", "User not found. Please Sign Up."}},
	{service.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"}},
}

const notFoundPage = "Oops, Page not found. The page is either broken or deleted or does not exist."

// respondError отвечает клиенту по таблице ошибок; неизвестные ошибки логируются и дают 500
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			c.JSON(entry.api.status, ErrorResponse{
				Error:   entry.api.code,
				Message: entry.api.message,
			})
			return
		}
	}

	logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Internal Server Error",
		Details: err.Error(),
	})
}

// badRequest ответ на невалидное тело запроса
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
		Details: err.Error(),
	})
}
