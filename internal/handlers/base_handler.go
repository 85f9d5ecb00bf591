package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

const identityKey = "identity"

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// BaseHandler carries what every handler needs: a logger and the envelope helpers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs through the request scoped logger so the request id is attached
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromGin(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func (h *BaseHandler) created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func (h *BaseHandler) fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message})
}

// handleServiceError maps the service error taxonomy to a status code.
// Unexpected errors are logged and answered with a generic message.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	status := statusFor(err)

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(status, Response{Success: false, Error: err.Error(), Details: validationErrors})
		return
	}

	logger := utils.LoggerFromGin(c, h.logger)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed", "error", err)
		h.fail(c, status, "error interno del servidor")
		return
	case http.StatusBadGateway:
		logger.Error("Upstream failure", "error", err)
	}
	h.fail(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case services.IsUnauthenticated(err):
		return http.StatusUnauthorized
	case services.IsPermissionError(err):
		return http.StatusForbidden
	case services.IsNotFound(err):
		return http.StatusNotFound
	case services.IsValidationError(err):
		return http.StatusBadRequest
	case services.IsConflict(err):
		return http.StatusConflict
	case services.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the body; on failure the 400 envelope is already written
func (h *BaseHandler) bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.fail(c, http.StatusBadRequest, "cuerpo de la solicitud inválido: "+err.Error())
		return false
	}
	return true
}

func (h *BaseHandler) bindQuery(c *gin.Context, dest any) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		h.fail(c, http.StatusBadRequest, "parámetros inválidos: "+err.Error())
		return false
	}
	return true
}

// identity returns the caller set by the auth middleware. Routes outside the
// middleware get the zero identity, which every service treats as anonymous.
func identity(c *gin.Context) authz.Identity {
	if value, ok := c.Get(identityKey); ok {
		if id, ok := value.(authz.Identity); ok {
			return id
		}
	}
	return authz.Identity{}
}

// pageParams reads page and size; services clamp the values
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(utils.DefaultPageSize)))
	return page, size
}
