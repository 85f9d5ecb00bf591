package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// TeamHandler serves teams, team chat, sprints and sprint reviews
type TeamHandler struct {
	BaseHandler
	teams   services.TeamService
	sprints services.SprintService
}

func NewTeamHandler(teams services.TeamService, sprints services.SprintService, logger utils.Logger) *TeamHandler {
	return &TeamHandler{
		BaseHandler: NewBaseHandler(logger),
		teams:       teams,
		sprints:     sprints,
	}
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req services.CreateTeamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	team, err := h.teams.Create(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, team)
}

func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teams.List(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, teams)
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, err := h.teams.Get(c.Request.Context(), identity(c), c.Param("team_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, team)
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	var req services.UpdateTeamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	team, err := h.teams.Update(c.Request.Context(), identity(c), c.Param("team_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, team)
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	if err := h.teams.Delete(c.Request.Context(), identity(c), c.Param("team_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// PostMessage writes to the team chat
// @Summary Post team message
// @Tags teams
// @Accept json
// @Produce json
// @Param team_id path string true "Team ID"
// @Param body body services.PostMessageRequest true "Message"
// @Success 201 {object} Response{data=models.TeamMessage}
// @Failure 403 {object} Response "Not a member of the team"
// @Router /teams/{team_id}/messages [post]
func (h *TeamHandler) PostMessage(c *gin.Context) {
	var req services.PostMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	msg, err := h.teams.PostMessage(c.Request.Context(), identity(c), c.Param("team_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, msg)
}

// ListMessages returns the team chat, newest first
func (h *TeamHandler) ListMessages(c *gin.Context) {
	page, size := pageParams(c)

	list, err := h.teams.ListMessages(c.Request.Context(), identity(c), c.Param("team_id"), page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

// ===== SPRINTS =====

func (h *TeamHandler) CreateSprint(c *gin.Context) {
	var req services.CreateSprintRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sprint, err := h.sprints.Create(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, sprint)
}

func (h *TeamHandler) ListSprints(c *gin.Context) {
	sprints, err := h.sprints.List(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, sprints)
}

func (h *TeamHandler) UpdateSprint(c *gin.Context) {
	var req services.UpdateSprintRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sprint, err := h.sprints.Update(c.Request.Context(), identity(c), c.Param("sprint_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, sprint)
}

func (h *TeamHandler) DeleteSprint(c *gin.Context) {
	if err := h.sprints.Delete(c.Request.Context(), identity(c), c.Param("sprint_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *TeamHandler) UpsertReview(c *gin.Context) {
	var req services.SprintReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.sprints.UpsertReview(c.Request.Context(), identity(c), c.Param("sprint_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, review)
}

func (h *TeamHandler) ListReviews(c *gin.Context) {
	reviews, err := h.sprints.ListReviews(c.Request.Context(), identity(c), c.Param("sprint_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, reviews)
}
