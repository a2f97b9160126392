package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/SergeiKhy/scissors/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler пользователи, вход и ссылки профиля
type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ListUsers GET /users; с ?email= проверяет существование пользователя
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	if email, ok := c.GetQuery("email"); ok {
		user, err := h.users.FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"exists": false})
			return
		}
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": true, "user": user})
		return
	}

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(users))
}

// CreateUser POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var input models.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser GET /users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser PUT /users/:userId, частичное обновление
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var input models.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), c.Param("userId"), &input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser DELETE /users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// Login POST /login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, signed, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotRegistered) || errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Info("Login rejected", zap.Error(err))
		}
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{"message": "Login successful", "user": user}
	if signed != "" {
		resp["token"] = signed
	}
	c.JSON(http.StatusOK, resp)
}

// ListLinks GET /users/:userId/links
func (h *UserHandler) ListLinks(c *gin.Context) {
	links, err := h.users.ListLinks(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(links))
}

// AddLink POST /users/:userId/links
func (h *UserHandler) AddLink(c *gin.Context) {
	var input models.CreateLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.users.AddLink(c.Request.Context(), c.Param("userId"), &input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// GetLink GET /users/:userId/links/:linkId
func (h *UserHandler) GetLink(c *gin.Context) {
	link, err := h.users.GetLink(c.Request.Context(), c.Param("userId"), c.Param("linkId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// UpdateLink PUT /users/:userId/links/:linkId
func (h *UserHandler) UpdateLink(c *gin.Context) {
	var input models.UpdateLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.users.UpdateLink(c.Request.Context(), c.Param("userId"), c.Param("linkId"), &input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// RemoveLink DELETE /users/:userId/links/:linkId
func (h *UserHandler) RemoveLink(c *gin.Context) {
	if err := h.users.RemoveLink(c.Request.Context(), c.Param("userId"), c.Param("linkId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CountClick POST /links/:linkId/click
func (h *UserHandler) CountClick(c *gin.Context) {
	link, err := h.users.IncrementLinkCounter(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// nonNil отдаёт пустой массив вместо null в JSON
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
