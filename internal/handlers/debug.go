package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memochat/internal/models"
	"memochat/internal/service"
	"memochat/internal/telemetry"
)

// RegisterDebugRoutes wires the reconciliation endpoints and, when
// auditTest is set, an endpoint that emits a test audit event.
func RegisterDebugRoutes(router gin.IRoutes, core service.Core, emitter *telemetry.AuditEmitter, auditTest bool) {
	router.GET("/debug/reconciliation", func(c *gin.Context) {
		pending := core.Pending()
		if pending == nil {
			pending = []models.PendingRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"pending": pending})
	})

	router.POST("/debug/reconciliation", func(c *gin.Context) {
		done, err := core.Reconcile(c.Request.Context())
		body := gin.H{"reconciled": done, "pending": len(core.Pending())}
		if err != nil {
			body["error"] = err.Error()
			c.JSON(http.StatusConflict, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	if !auditTest {
		return
	}
	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "audit_test", "INFO", "audit test", auditDetails(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
