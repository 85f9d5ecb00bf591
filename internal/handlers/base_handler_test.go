package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "unauthenticated",
			err:         services.ErrUnauthenticated,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "no autenticado",
		},
		{
			name:        "permission",
			err:         services.NewPermissionError("kid@school.edu", "c1", "course", "manage", "no tienes permiso para gestionar este curso"),
			wantStatus:  http.StatusForbidden,
			wantMessage: "permiso",
		},
		{
			name:        "wrapped not found",
			err:         fmt.Errorf("loading: %w", services.ErrCourseNotFound),
			wantStatus:  http.StatusNotFound,
			wantMessage: "curso no encontrado",
		},
		{
			name:        "validation",
			err:         services.NewValidationError("grade", "excede la nota máxima", 11),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "grade",
			wantDetails: true,
		},
		{
			name:        "conflict",
			err:         services.NewConflictError("enrollment", "ya está inscrito"),
			wantStatus:  http.StatusConflict,
			wantMessage: "ya está inscrito",
		},
		{
			name:        "upstream",
			err:         services.NewUpstreamError("storage", "no se pudo subir el archivo", errors.New("timeout")),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "no se pudo subir",
		},
		{
			name:        "unexpected errors are not leaked",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "error interno",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBaseHandler(testLogger())
			router := gin.New()
			router.GET("/", func(c *gin.Context) { h.handleServiceError(c, tt.err) })

			rec := doRequest(t, router, jsonRequest(t, http.MethodGet, "/", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success {
				t.Error("success = true for an error")
			}
			if !strings.Contains(resp.Error, tt.wantMessage) {
				t.Errorf("error = %q, want it to contain %q", resp.Error, tt.wantMessage)
			}
			if strings.Contains(resp.Error, "pq:") {
				t.Errorf("internal error leaked: %q", resp.Error)
			}
			if (resp.Details != nil) != tt.wantDetails {
				t.Errorf("details = %v, want present=%v", resp.Details, tt.wantDetails)
			}
		})
	}
}

func TestBindJSONRejectsMalformedBody(t *testing.T) {
	h := NewBaseHandler(testLogger())
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var req services.CreateTeamRequest
		if !h.bindJSON(c, &req) {
			return
		}
		h.ok(c, req)
	})

	req := jsonRequest(t, http.MethodPost, "/", nil)
	req.Body = http.NoBody
	rec := doRequest(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Success || resp.Error == "" {
		t.Errorf("envelope = %+v", resp)
	}
}
