package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// PlatformHandler serves institutions, institution roles, the whitelist and profiles
type PlatformHandler struct {
	BaseHandler
	service services.PlatformService
}

func NewPlatformHandler(service services.PlatformService, logger utils.Logger) *PlatformHandler {
	return &PlatformHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== INSTITUTIONS =====

// CreateInstitution creates an institution
// @Summary Create institution
// @Tags platform
// @Accept json
// @Produce json
// @Param body body services.CreateInstitutionRequest true "Institution data"
// @Success 201 {object} Response{data=models.Institution}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /institutions [post]
func (h *PlatformHandler) CreateInstitution(c *gin.Context) {
	var req services.CreateInstitutionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	institution, err := h.service.CreateInstitution(c.Request.Context(), identity(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, institution)
}

// GetInstitution returns one institution
// @Summary Get institution
// @Tags platform
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} Response{data=models.Institution}
// @Failure 404 {object} Response
// @Router /institutions/{id} [get]
func (h *PlatformHandler) GetInstitution(c *gin.Context) {
	institution, err := h.service.GetInstitution(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, institution)
}

func (h *PlatformHandler) UpdateInstitution(c *gin.Context) {
	var req services.UpdateInstitutionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	institution, err := h.service.UpdateInstitution(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, institution)
}

func (h *PlatformHandler) DeleteInstitution(c *gin.Context) {
	h.LogRequest(c, "Deleting institution", "institution_id", c.Param("id"))

	if err := h.service.DeleteInstitution(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// ListInstitutions lists the institutions visible to the caller
// @Summary List institutions
// @Tags platform
// @Produce json
// @Param name query string false "Name filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} Response{data=services.InstitutionListResponse}
// @Router /institutions [get]
func (h *PlatformHandler) ListInstitutions(c *gin.Context) {
	var req services.ListInstitutionsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	list, err := h.service.ListInstitutions(c.Request.Context(), identity(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

// ===== INSTITUTION ROLES =====

func (h *PlatformHandler) AssignInstitutionRole(c *gin.Context) {
	var req services.AssignInstitutionRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	role, err := h.service.AssignInstitutionRole(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, role)
}

func (h *PlatformHandler) RemoveInstitutionRole(c *gin.Context) {
	if err := h.service.RemoveInstitutionRole(c.Request.Context(), identity(c), c.Param("id"), c.Param("role_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *PlatformHandler) ListInstitutionRoles(c *gin.Context) {
	roles, err := h.service.ListInstitutionRoles(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, roles)
}

// ===== WHITELIST & PROFILES =====

func (h *PlatformHandler) AddToWhitelist(c *gin.Context) {
	var req services.WhitelistRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entry, err := h.service.AddToWhitelist(c.Request.Context(), identity(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, entry)
}

func (h *PlatformHandler) RemoveFromWhitelist(c *gin.Context) {
	if err := h.service.RemoveFromWhitelist(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *PlatformHandler) ListWhitelist(c *gin.Context) {
	page, size := pageParams(c)

	list, err := h.service.ListWhitelist(c.Request.Context(), identity(c), page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

func (h *PlatformHandler) ListProfiles(c *gin.Context) {
	var req services.ListProfilesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	list, err := h.service.ListProfiles(c.Request.Context(), identity(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

// SetGlobalRoles replaces the global roles of a profile
// @Summary Set global roles
// @Tags platform
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param body body services.SetGlobalRolesRequest true "Roles"
// @Success 200 {object} Response{data=models.Profile}
// @Router /profiles/{id}/roles [put]
func (h *PlatformHandler) SetGlobalRoles(c *gin.Context) {
	var req services.SetGlobalRolesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.service.SetGlobalRoles(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, profile)
}
