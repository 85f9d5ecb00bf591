package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		cacheErr   error
		wantStatus int
	}{
		{name: "healthy", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
		{name: "cache down", cacheErr: errors.New("redis: i/o timeout"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()
			mock.ExpectPing().WillReturnError(tt.pingErr)

			h := NewHealthHandler(map[string]HealthCheck{
				"database": db.PingContext,
				"cache":    func(context.Context) error { return tt.cacheErr },
			}, testLogger())
			router := gin.New()
			router.GET("/health", h.Health)

			rec := doRequest(t, router, jsonRequest(t, http.MethodGet, "/health", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			resp := decodeEnvelope(t, rec)
			checks := resp.Data.(map[string]any)["checks"].(map[string]any)
			if tt.pingErr == nil && checks["database"] != "ok" {
				t.Errorf("database check = %v", checks["database"])
			}
			if tt.pingErr != nil && checks["database"] == "ok" {
				t.Error("database failure not reported")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("ping not issued: %v", err)
			}
		})
	}
}
