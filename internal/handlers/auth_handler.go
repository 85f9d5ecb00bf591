package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/config"
	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// AuthHandler signs users in and out and resolves the session of every API request
type AuthHandler struct {
	BaseHandler
	sessions services.SessionService
	cookie   config.SessionConfig
}

func NewAuthHandler(sessions services.SessionService, cookie config.SessionConfig, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		cookie:      cookie,
	}
}

// sessionToken reads the session cookie, falling back to a bearer token
func (h *AuthHandler) sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(h.cookie.CookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireSession resolves the caller and rejects the request with 401 when
// there is no valid session
func (h *AuthHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := h.sessionToken(c)
		if token == "" {
			h.fail(c, http.StatusUnauthorized, services.ErrUnauthenticated.Error())
			return
		}

		id, _, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Set("user_email", id.Email)
		c.Next()
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.CookieName, value, maxAge, h.cookie.CookiePath, h.cookie.CookieDomain, h.cookie.CookieSecure, true)
}

// Login exchanges an identity provider ID token for a session cookie
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "ID token"
// @Success 200 {object} Response{data=services.SessionResult}
// @Failure 401 {object} Response
// @Failure 403 {object} Response "Email not invited"
// @Router /auth/session [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.sessions.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.setCookie(c, result.Token, int(time.Until(result.ExpiresAt).Seconds()))
	h.ok(c, result)
}

// Logout revokes the current session when there is one and always clears the cookie
// @Summary Sign out
// @Tags auth
// @Success 200 {object} Response
// @Router /auth/session [delete]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := h.sessionToken(c); token != "" {
		if _, claims, err := h.sessions.Resolve(c.Request.Context(), token); err == nil {
			if err := h.sessions.Logout(c.Request.Context(), claims); err != nil {
				utils.LoggerFromGin(c, h.logger).Warn("Failed to revoke session", "error", err)
			}
		}
	}

	h.setCookie(c, "", -1)
	h.ok(c, gin.H{"signed_out": true})
}

// Me returns the caller and their effective global roles
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} Response{data=services.MeResponse}
// @Failure 401 {object} Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	me, err := h.sessions.Me(c.Request.Context(), identity(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, me)
}
