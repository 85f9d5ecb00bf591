package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// ExtractionHandler exposes the language model extraction tasks of a course
type ExtractionHandler struct {
	BaseHandler
	service services.ExtractionService
}

func NewExtractionHandler(service services.ExtractionService, logger utils.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ExtractResources pulls links and materials out of free text
// @Summary Extract resources
// @Tags extraction
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param body body services.ExtractTextRequest true "Source text"
// @Success 200 {object} Response{data=services.ResourcesExtraction}
// @Failure 502 {object} Response "Model unavailable or invalid answer"
// @Router /courses/{id}/extract/resources [post]
func (h *ExtractionHandler) ExtractResources(c *gin.Context) {
	var req services.ExtractTextRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.ExtractResources(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

func (h *ExtractionHandler) ExtractAssignments(c *gin.Context) {
	var req services.ExtractAssignmentsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.ExtractAssignments(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

func (h *ExtractionHandler) ExtractRoster(c *gin.Context) {
	var req services.ExtractTextRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.ExtractRoster(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

func (h *ExtractionHandler) MatchNames(c *gin.Context) {
	var req services.MatchNamesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.MatchNames(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

func (h *ExtractionHandler) ListRuns(c *gin.Context) {
	runs, err := h.service.ListRuns(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, runs)
}
