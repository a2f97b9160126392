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

// DomainHandler кастомные домены. Ответы мутаций несут актуальный список доменов.
type DomainHandler struct {
	domains service.DomainService
	logger  *zap.Logger
}

func NewDomainHandler(domains service.DomainService, logger *zap.Logger) *DomainHandler {
	return &DomainHandler{domains: domains, logger: logger}
}

type AddDomainRequest struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type RemoveDomainRequest struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type UpdateDomainRequest struct {
	ID        string `json:"id"`
	NewDomain string `json:"newDomain"`
}

// DomainResponse ответ на изменение списка доменов
type DomainResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Domains []models.Domain `json:"domains"`
}

// CheckDomain GET /check-domain?domain=
func (h *DomainHandler) CheckDomain(c *gin.Context) {
	available, err := h.domains.CheckAvailability(c.Request.Context(), c.Query("domain"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDomain) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_domain",
				Message: "A valid domain is required",
			})
			return
		}
		h.logger.Warn("Domain availability check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "check_failed",
			Message: "Error checking domain",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

// AddDomain POST /add-domain
func (h *DomainHandler) AddDomain(c *gin.Context) {
	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, err := h.domains.AddDomain(c.Request.Context(), req.ID, req.Domain)
	switch {
	case err == nil:
		h.respond(c, http.StatusOK, true, "Domain added")
	case errors.Is(err, service.ErrInvalidDomain), errors.Is(err, repository.ErrDomainExists):
		h.respond(c, http.StatusBadRequest, false, "Domain already exists or invalid")
	default:
		respondError(c, h.logger, err)
	}
}

// ListDomains GET /get-domains
func (h *DomainHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.ListDomains(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": nonNil(domains)})
}

// RemoveDomain DELETE /remove-domain, по id или по имени домена
func (h *DomainHandler) RemoveDomain(c *gin.Context) {
	var req RemoveDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.domains.RemoveDomain(c.Request.Context(), req.ID, req.Domain)
	switch {
	case err == nil:
		h.respond(c, http.StatusOK, true, "Domain removed")
	case errors.Is(err, repository.ErrDomainNotFound):
		h.respond(c, http.StatusNotFound, false, "Domain not found")
	default:
		respondError(c, h.logger, err)
	}
}

// UpdateDomain PUT /update-domain
func (h *DomainHandler) UpdateDomain(c *gin.Context) {
	var req UpdateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, err := h.domains.UpdateDomain(c.Request.Context(), req.ID, req.NewDomain)
	switch {
	case err == nil:
		h.respond(c, http.StatusOK, true, "Domain updated")
	case errors.Is(err, repository.ErrDomainNotFound):
		h.respond(c, http.StatusNotFound, false, "Domain not found")
	case errors.Is(err, repository.ErrDomainExists):
		h.respond(c, http.StatusBadRequest, false, "New domain already exists")
	case errors.Is(err, service.ErrInvalidDomain):
		h.respond(c, http.StatusBadRequest, false, "Invalid domain")
	default:
		respondError(c, h.logger, err)
	}
}

func (h *DomainHandler) respond(c *gin.Context, status int, success bool, message string) {
	domains, err := h.domains.ListDomains(c.Request.Context())
	if err != nil {
		h.logger.Warn("Failed to list domains for response", zap.Error(err))
	}
	c.JSON(status, DomainResponse{
		Success: success,
		Message: message,
		Domains: nonNil(domains),
	})
}
