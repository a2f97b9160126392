package handler

import (
	"net/http"
	"time"

	"github.com/SergeiKhy/scissors/internal/middleware"
	"github.com/SergeiKhy/scissors/internal/service"
	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps зависимости HTTP-слоя. RateLimiter, APIKeys и Tokens опциональны:
// без них соответствующая защита не включается.
type RouterDeps struct {
	Aliases     service.AliasService
	Clicks      service.ClickProcessor
	Users       service.UserService
	Domains     service.DomainService
	RateLimiter *middleware.RateLimiter
	APIKeys     map[string]string
	Tokens      *token.Manager
	CORSOrigins []string
	BaseURL     string
	Logger      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	aliasHandler := NewAliasHandler(deps.Aliases, deps.Clicks, deps.BaseURL, logger)
	userHandler := NewUserHandler(deps.Users, logger)
	domainHandler := NewDomainHandler(deps.Domains, logger)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Защита мутаций профиля включается только при настроенном JWT
	owner := func(c *gin.Context) { c.Next() }
	if deps.Tokens != nil {
		owner = middleware.RequireOwner(deps.Tokens, "userId")
	}

	users := router.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.POST("", userHandler.CreateUser)
		users.GET("/:userId", userHandler.GetUser)
		users.PUT("/:userId", owner, userHandler.UpdateUser)
		users.DELETE("/:userId", owner, userHandler.DeleteUser)

		users.GET("/:userId/links", userHandler.ListLinks)
		users.POST("/:userId/links", owner, userHandler.AddLink)
		users.GET("/:userId/links/:linkId", userHandler.GetLink)
		users.PUT("/:userId/links/:linkId", owner, userHandler.UpdateLink)
		users.DELETE("/:userId/links/:linkId", owner, userHandler.RemoveLink)
	}
	router.POST("/login", userHandler.Login)
	router.POST("/links/:linkId/click", userHandler.CountClick)

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)

		urls := api.Group("/urls")
		urls.GET("/allCustomLinks", aliasHandler.AllCustomLinks)
		urls.GET("/clicks/:uniqueId", aliasHandler.Clicks)

		// API ключ требуется только для создания алиасов
		create := urls.Group("")
		if len(deps.APIKeys) > 0 {
			create.Use(middleware.RequireAPIKey(deps.APIKeys))
		}
		create.POST("/shorten", aliasHandler.Shorten)
		create.POST("/shortenCustom", aliasHandler.ShortenCustom)
	}

	router.GET("/check-domain", domainHandler.CheckDomain)
	router.POST("/add-domain", domainHandler.AddDomain)
	router.GET("/get-domains", domainHandler.ListDomains)
	router.DELETE("/remove-domain", domainHandler.RemoveDomain)
	router.PUT("/update-domain", domainHandler.UpdateDomain)

	// Редиректы без аутентификации
	router.GET("/s/:alias", aliasHandler.RedirectShort)
	router.GET("/c/:alias", aliasHandler.RedirectCustom)
	router.GET("/:alias", aliasHandler.Redirect)

	return router
}
