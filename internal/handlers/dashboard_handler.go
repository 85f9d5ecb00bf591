package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetDashboard returns the summary for every role the caller holds
// @Summary Get dashboard
// @Description Sections are filled per role: platform totals, administered institutions, staff courses, taught courses, enrolled courses and upcoming assignments
// @Tags dashboard
// @Produce json
// @Success 200 {object} Response{data=services.DashboardResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal server error"
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard")

	dashboard, err := h.service.Get(c.Request.Context(), identity(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, dashboard)
}
