package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// QueryHandler serves the course question and answer threads
type QueryHandler struct {
	BaseHandler
	service services.QueryService
}

func NewQueryHandler(service services.QueryService, logger utils.Logger) *QueryHandler {
	return &QueryHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateQuery opens a thread in the course
// @Summary Create query
// @Tags queries
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param body body services.CreateQueryRequest true "Query"
// @Success 201 {object} Response{data=models.CourseQuery}
// @Router /courses/{id}/queries [post]
func (h *QueryHandler) CreateQuery(c *gin.Context) {
	var req services.CreateQueryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	query, err := h.service.Create(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, query)
}

// ListQueries lists the course threads by latest activity
// @Summary List queries
// @Tags queries
// @Produce json
// @Param id path string true "Course ID"
// @Param resolved query bool false "Resolved filter"
// @Param class_id query string false "Class filter"
// @Param assignment_id query string false "Assignment filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} Response{data=services.QueryListResponse}
// @Router /courses/{id}/queries [get]
func (h *QueryHandler) ListQueries(c *gin.Context) {
	var req services.ListQueriesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	list, err := h.service.List(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

func (h *QueryHandler) GetThread(c *gin.Context) {
	page, size := pageParams(c)

	thread, err := h.service.GetThread(c.Request.Context(), identity(c), c.Param("query_id"), page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, thread)
}

func (h *QueryHandler) Respond(c *gin.Context) {
	var req services.RespondQueryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	response, err := h.service.Respond(c.Request.Context(), identity(c), c.Param("query_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, response)
}

func (h *QueryHandler) SetResolved(c *gin.Context) {
	var req services.ResolveQueryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	query, err := h.service.SetResolved(c.Request.Context(), identity(c), c.Param("query_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, query)
}

func (h *QueryHandler) DeleteQuery(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), identity(c), c.Param("query_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}
