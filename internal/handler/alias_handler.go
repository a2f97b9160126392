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

// AliasHandler создание алиасов, редиректы и статистика кликов
type AliasHandler struct {
	aliases service.AliasService
	clicks  service.ClickProcessor
	baseURL string
	logger  *zap.Logger
}

func NewAliasHandler(aliases service.AliasService, clicks service.ClickProcessor, baseURL string, logger *zap.Logger) *AliasHandler {
	return &AliasHandler{
		aliases: aliases,
		clicks:  clicks,
		baseURL: baseURL,
		logger:  logger,
	}
}

type ShortenRequest struct {
	LongURL  string `json:"longUrl"`
	ShortURL string `json:"shortUrl"`
	UniqueID string `json:"uniqueId"`
}

type ShortenCustomRequest struct {
	LongURL    string `json:"longUrl"`
	CustomLink string `json:"customLink"`
	UniqueID   string `json:"uniqueId"`
}

// Shorten POST /api/urls/shorten
func (h *AliasHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.create(c, "Short URL created!", &models.CreateAliasInput{
		Kind:     models.AliasShort,
		LongURL:  req.LongURL,
		Alias:    req.ShortURL,
		UniqueID: req.UniqueID,
	})
}

// ShortenCustom POST /api/urls/shortenCustom
func (h *AliasHandler) ShortenCustom(c *gin.Context) {
	var req ShortenCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.create(c, "Short custom URL created!", &models.CreateAliasInput{
		Kind:     models.AliasCustom,
		LongURL:  req.LongURL,
		Alias:    req.CustomLink,
		UniqueID: req.UniqueID,
	})
}

func (h *AliasHandler) create(c *gin.Context, message string, input *models.CreateAliasInput) {
	alias, err := h.aliases.CreateAlias(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Alias created",
		zap.String("kind", string(alias.Kind)),
		zap.String("alias", alias.Alias),
		zap.String("unique_id", alias.UniqueID),
	)

	key, prefix := "shortUrl", "/s/"
	if alias.Kind == models.AliasCustom {
		key, prefix = "customLink", "/c/"
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   message,
		key:         alias.Alias,
		"longUrl":   alias.LongURL,
		"uniqueId":  alias.UniqueID,
		"createdAt": alias.CreatedAt,
		"link":      h.baseURL + prefix + alias.Alias,
	})
}

// RedirectShort GET /s/:alias
func (h *AliasHandler) RedirectShort(c *gin.Context) {
	h.redirect(c, models.AliasShort)
}

// RedirectCustom GET /c/:alias
func (h *AliasHandler) RedirectCustom(c *gin.Context) {
	h.redirect(c, models.AliasCustom)
}

// Redirect GET /:alias, любой тип алиаса
func (h *AliasHandler) Redirect(c *gin.Context) {
	h.redirect(c, "")
}

func (h *AliasHandler) redirect(c *gin.Context, kind models.AliasKind) {
	ctx := c.Request.Context()

	alias, err := h.aliases.Resolve(ctx, c.Param("alias"), kind)
	if err != nil {
		if errors.Is(err, repository.ErrAliasNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": notFoundPage})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	// Учёт клика асинхронный: ошибка постановки в очередь не влияет на редирект
	if err := h.clicks.RecordClick(ctx, &models.ClickRequest{
		Alias:     alias.Alias,
		UniqueID:  alias.UniqueID,
		Referrer:  c.Request.Referer(),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		CreatedAt: alias.CreatedAt,
	}); err != nil {
		h.logger.Warn("Failed to enqueue click", zap.String("alias", alias.Alias), zap.Error(err))
	}

	c.Redirect(http.StatusFound, alias.LongURL)
}

// AllCustomLinks GET /api/urls/allCustomLinks
func (h *AliasHandler) AllCustomLinks(c *gin.Context) {
	links, err := h.aliases.ListAliases(c.Request.Context(), models.AliasCustom)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if len(links) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No custom links found!"})
		return
	}

	c.JSON(http.StatusOK, links)
}

// Clicks GET /api/urls/clicks/:uniqueId
func (h *AliasHandler) Clicks(c *gin.Context) {
	agg, err := h.clicks.GetAggregate(c.Request.Context(), c.Param("uniqueId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, agg)
}
