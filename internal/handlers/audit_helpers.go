package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"memochat/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func auditDetails(c *gin.Context) map[string]any {
	return map[string]any{
		"request_id": requestIDFromContext(c),
		"ip":         observability.ClientIP(c.Request),
		"path":       c.FullPath(),
	}
}
