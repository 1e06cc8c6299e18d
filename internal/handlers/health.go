package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports readiness. An unloaded model or unreachable ledger is
// 503; a missing cache only degrades the status.
func (h *Handlers) Health(c *gin.Context) {
	status := h.health.CheckHealth(c.Request.Context())

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
