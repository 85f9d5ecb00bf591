package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/services"
)

func newAuthRouter(sessions *fakeSessions) *gin.Engine {
	h := NewAuthHandler(sessions, testSessionConfig, testLogger())
	router := gin.New()
	router.POST("/auth/session", h.Login)
	router.DELETE("/auth/session", h.Logout)
	protected := router.Group("", h.RequireSession())
	protected.GET("/auth/me", h.Me)
	return router
}

func TestRequireSession(t *testing.T) {
	sessions := &fakeSessions{identities: map[string]authz.Identity{
		"good": {UserID: "u1", Email: "kid@school.edu"},
	}}
	router := newAuthRouter(sessions)

	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{name: "cookie", cookie: "good", wantStatus: http.StatusOK},
		{name: "bearer token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
		{name: "unknown session", cookie: "forged", wantStatus: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic good", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodGet, "/auth/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: testSessionConfig.CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := doRequest(t, router, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success != (tt.wantStatus == http.StatusOK) {
				t.Errorf("success = %v", resp.Success)
			}
			if tt.wantStatus == http.StatusOK {
				me := resp.Data.(map[string]any)
				if me["email"] != "kid@school.edu" {
					t.Errorf("me = %v", me)
				}
			}
		})
	}
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	router := newAuthRouter(&fakeSessions{})

	rec := doRequest(t, router, jsonRequest(t, http.MethodPost, "/auth/session", services.LoginRequest{IDToken: "idt"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	cookie := rec.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, testSessionConfig.CookieName+"=session-for-idt") {
		t.Errorf("Set-Cookie = %q", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("session cookie is not HttpOnly: %q", cookie)
	}
	if strings.Contains(rec.Body.String(), "session-for-idt") {
		t.Errorf("token leaked in body: %s", rec.Body.String())
	}
}

func TestLoginNotInvited(t *testing.T) {
	router := newAuthRouter(&fakeSessions{
		loginErr: services.NewPermissionError("x@school.edu", "", "session", "login", "no tienes permiso para acceder a la plataforma"),
	})

	rec := doRequest(t, router, jsonRequest(t, http.MethodPost, "/auth/session", services.LoginRequest{IDToken: "idt"}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("cookie set for a rejected login")
	}
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	sessions := &fakeSessions{identities: map[string]authz.Identity{
		"good": {UserID: "u1", Email: "kid@school.edu"},
	}}
	router := newAuthRouter(sessions)

	req := jsonRequest(t, http.MethodDelete, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: testSessionConfig.CookieName, Value: "good"})
	rec := doRequest(t, router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(sessions.loggedOut) != 1 || sessions.loggedOut[0] != "sid-good" {
		t.Errorf("revoked = %v", sessions.loggedOut)
	}
	if cookie := rec.Header().Get("Set-Cookie"); !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("cookie not cleared: %q", cookie)
	}

	// without a session logout still succeeds
	rec = doRequest(t, router, jsonRequest(t, http.MethodDelete, "/auth/session", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous logout status = %d", rec.Code)
	}
}
