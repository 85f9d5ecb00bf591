package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/services"
)

type fakeClasses struct {
	services.ClassService
	upload   *services.UploadFileRequest
	uploaded string
}

func (f *fakeClasses) UploadFile(ctx context.Context, caller authz.Identity, classID string, req *services.UploadFileRequest) (*models.ClassResource, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.upload = req
	f.uploaded = string(body)
	return &models.ClassResource{ClassID: classID, Title: req.Title}, nil
}

type fakeSubmissions struct {
	services.SubmissionService
	submitted *services.SubmitRequest
	file      string
}

func (f *fakeSubmissions) Submit(ctx context.Context, caller authz.Identity, assignmentID string, req *services.SubmitRequest) (*models.AssignmentSubmission, error) {
	f.submitted = req
	if req.File != nil {
		body, _ := io.ReadAll(req.File.Body)
		f.file = string(body)
	}
	return &models.AssignmentSubmission{AssignmentID: assignmentID, StudentEmail: caller.Email}, nil
}

func (f *fakeSubmissions) ExportGradebook(ctx context.Context, caller authz.Identity, courseID string) (*services.GradebookExport, error) {
	if caller.Email != "teacher@school.edu" {
		return nil, services.NewPermissionError(caller.Email, courseID, "course", "export", "no tienes permiso para gestionar este curso")
	}
	return &services.GradebookExport{Filename: "calificaciones_Fisica.xlsx", Content: []byte("PK-xlsx")}, nil
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newContentRouter(classes *fakeClasses, submissions *fakeSubmissions, caller string) *gin.Engine {
	h := NewContentHandler(classes, nil, submissions, testLogger())
	router := gin.New()
	router.Use(withCaller(caller))
	router.POST("/classes/:class_id/resources/upload", h.UploadClassFile)
	router.POST("/assignments/:assignment_id/submissions", h.Submit)
	router.GET("/courses/:id/gradebook", h.ExportGradebook)
	return router
}

func TestUploadClassFile(t *testing.T) {
	classes := &fakeClasses{}
	router := newContentRouter(classes, &fakeSubmissions{}, "teacher@school.edu")

	req := multipartRequest(t, "/classes/c1/resources/upload", map[string]string{"title": " Apuntes "}, "apuntes.pdf", "%PDF-1.4")
	rec := doRequest(t, router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if classes.upload.Filename != "apuntes.pdf" || classes.upload.Title != "Apuntes" || classes.upload.Size != int64(len("%PDF-1.4")) {
		t.Errorf("upload = %+v", classes.upload)
	}
	if classes.uploaded != "%PDF-1.4" {
		t.Errorf("uploaded body = %q", classes.uploaded)
	}

	rec = doRequest(t, router, multipartRequest(t, "/classes/c1/resources/upload", map[string]string{"title": "x"}, "", ""))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d, want 400", rec.Code)
	}
}

func TestSubmit(t *testing.T) {
	t.Run("json text", func(t *testing.T) {
		submissions := &fakeSubmissions{}
		router := newContentRouter(&fakeClasses{}, submissions, "kid@school.edu")

		rec := doRequest(t, router, jsonRequest(t, http.MethodPost, "/assignments/a1/submissions", map[string]string{"content": "mi respuesta"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if submissions.submitted.Content == nil || *submissions.submitted.Content != "mi respuesta" || submissions.submitted.File != nil {
			t.Errorf("submitted = %+v", submissions.submitted)
		}
	})

	t.Run("multipart with file", func(t *testing.T) {
		submissions := &fakeSubmissions{}
		router := newContentRouter(&fakeClasses{}, submissions, "kid@school.edu")

		req := multipartRequest(t, "/assignments/a1/submissions", map[string]string{"content": "adjunto"}, "informe.docx", "docx-bytes")
		rec := doRequest(t, router, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if submissions.submitted.File == nil || submissions.submitted.File.Filename != "informe.docx" {
			t.Fatalf("file not forwarded: %+v", submissions.submitted)
		}
		if submissions.file != "docx-bytes" || *submissions.submitted.Content != "adjunto" {
			t.Errorf("file = %q content = %v", submissions.file, submissions.submitted.Content)
		}
	})
}

func TestExportGradebook(t *testing.T) {
	router := newContentRouter(&fakeClasses{}, &fakeSubmissions{}, "teacher@school.edu")

	rec := doRequest(t, router, jsonRequest(t, http.MethodGet, "/courses/c1/gradebook", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="calificaciones_Fisica.xlsx"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "PK-xlsx" {
		t.Errorf("body = %q", rec.Body.String())
	}

	student := newContentRouter(&fakeClasses{}, &fakeSubmissions{}, "kid@school.edu")
	rec = doRequest(t, student, jsonRequest(t, http.MethodGet, "/courses/c1/gradebook", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("student status = %d, want 403", rec.Code)
	}
}
