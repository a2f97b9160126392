package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "scissors"

// HealthCheck GET /api/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
}
