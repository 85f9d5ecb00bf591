package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

const healthTimeout = 3 * time.Second

// HealthCheck is one named dependency probe
type HealthCheck func(ctx context.Context) error

// HealthHandler runs every probe and answers 503 when any of them fails
type HealthHandler struct {
	BaseHandler
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck, logger utils.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: NewBaseHandler(logger),
		checks:      checks,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			utils.LoggerFromGin(c, h.logger).Warn("Health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data: gin.H{
			"service": "classroom-service",
			"checks":  results,
		},
	})
}
