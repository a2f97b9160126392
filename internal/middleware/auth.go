package middleware

import (
	"net/http"
	"strings"

	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/gin-gonic/gin"
)

// ContextUserID ключ контекста gin с id аутентифицированного пользователя
const ContextUserID = "auth_user_id"

// RequireOwner проверяет Bearer JWT и требует, чтобы его владелец совпадал
// с пользователем из параметра пути param.
func RequireOwner(tokens *token.Manager, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization: Bearer <token> header required",
			})
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid or expired token",
			})
			return
		}

		if owner := c.Param(param); owner != "" && owner != claims.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Token does not grant access to this user",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// UserIDFromContext возвращает id пользователя, выставленный RequireOwner
func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
