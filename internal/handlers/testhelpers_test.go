package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/auth"
	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/config"
	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testSessionConfig = config.SessionConfig{
	CookieName: "classroom_session",
	CookiePath: "/",
	SameSite:   http.SameSiteLaxMode,
}

// fakeSessions accepts the tokens listed in identities
type fakeSessions struct {
	services.SessionService
	identities map[string]authz.Identity
	loggedOut  []string
	loginErr   error
}

func (f *fakeSessions) Resolve(ctx context.Context, token string) (authz.Identity, *auth.SessionClaims, error) {
	id, ok := f.identities[token]
	if !ok {
		return authz.Identity{}, nil, services.ErrUnauthenticated
	}
	claims := &auth.SessionClaims{Email: id.Email, UserID: id.UserID}
	claims.ID = "sid-" + token
	return id, claims, nil
}

func (f *fakeSessions) Login(ctx context.Context, req *services.LoginRequest) (*services.SessionResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.SessionResult{
		Token:     "session-for-" + req.IDToken,
		ExpiresAt: time.Now().Add(time.Hour),
		Roles:     []string{},
	}, nil
}

func (f *fakeSessions) Logout(ctx context.Context, claims *auth.SessionClaims) error {
	f.loggedOut = append(f.loggedOut, claims.SessionID())
	return nil
}

func (f *fakeSessions) Me(ctx context.Context, caller authz.Identity) (*services.MeResponse, error) {
	return &services.MeResponse{UserID: caller.UserID, Email: caller.Email, Roles: []string{}}, nil
}

// withCaller stands in for the auth middleware
func withCaller(email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, authz.Identity{UserID: "u-" + email, Email: email})
		c.Next()
	}
}

func doRequest(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return resp
}
