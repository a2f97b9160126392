package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Ключи контекста gin, которые выставляет APIKey
const (
	ContextAPIKeyValidated = "api_key_validated"
	ContextAPIKeyName      = "api_key_name"
)

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// ValidKeys карта валидных API ключей к их описаниям
	ValidKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
	// Optional если true, запросы без ключа пропускаются без отметки о валидации
	Optional bool
}

// APIKey middleware для аутентификации клиентов, создающих алиасы
type APIKey struct {
	config APIKeyConfig
}

func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	return &APIKey{config: config}
}

// Middleware ищет ключ в заголовке, затем в query api_key
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(ak.config.HeaderName))
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			if ak.config.Optional {
				c.Set(ContextAPIKeyValidated, false)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key required: pass it in the " + ak.config.HeaderName + " header or the api_key query parameter",
			})
			return
		}

		keyName, ok := ak.lookup(apiKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key",
			})
			return
		}

		c.Set(ContextAPIKeyValidated, true)
		c.Set(ContextAPIKeyName, keyName)
		c.Next()
	}
}

// lookup сравнивает ключ со всеми валидными за постоянное время
func (ak *APIKey) lookup(apiKey string) (string, bool) {
	var (
		found   bool
		keyName string
	)
	for validKey, name := range ak.config.ValidKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			found = true
			keyName = name
		}
	}
	return keyName, found
}

// RequireAPIKey middleware, требующий API ключ
func RequireAPIKey(validKeys map[string]string) gin.HandlerFunc {
	return NewAPIKey(APIKeyConfig{ValidKeys: validKeys}).Middleware()
}

// IsAPIKeyValidated проверяет, был ли API ключ успешно валидирован
func IsAPIKeyValidated(c *gin.Context) bool {
	return c.GetBool(ContextAPIKeyValidated)
}
