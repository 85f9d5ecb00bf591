package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

type enrollRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,course_role"`
}

type courseRequest struct {
	Name   string `json:"name" validate:"notblank,max=200"`
	Status string `json:"status" validate:"omitempty,course_status"`
}

func TestValidator_CustomRules(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
	}{
		{"valid enrollment", &enrollRequest{Email: "a@school.edu", Role: "docente"}, ""},
		{"legacy student role accepted", &enrollRequest{Email: "a@school.edu", Role: "Alumno"}, ""},
		{"institution role rejected on course", &enrollRequest{Email: "a@school.edu", Role: "no-docente"}, "role"},
		{"bad email", &enrollRequest{Email: "nope", Role: "invitado"}, "email"},
		{"blank name", &courseRequest{Name: "   "}, "name"},
		{"unknown status", &courseRequest{Name: "Física", Status: "Archivado"}, "status"},
		{"valid status", &courseRequest{Name: "Física", Status: "En Prueba"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var errs ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestBusinessValidator_StatusTransition(t *testing.T) {
	bv := New().GetBusinessValidator()

	tests := []struct {
		from, to models.CourseStatus
		ok       bool
	}{
		{models.CourseDraft, models.CourseTesting, true},
		{models.CourseDraft, models.CourseActive, true},
		{models.CourseTesting, models.CourseDraft, true},
		{models.CourseActive, models.CourseFinished, true},
		{models.CourseFinished, models.CourseActive, true},
		{models.CourseActive, models.CourseActive, true},
		{models.CourseActive, models.CourseDraft, false},
		{models.CourseDraft, models.CourseFinished, false},
		{models.CourseDraft, "Cerrado", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			errs := bv.ValidateStatusTransition(tt.from, tt.to)
			if (len(errs) == 0) != tt.ok {
				t.Errorf("ValidateStatusTransition(%s, %s) = %v, want ok=%v", tt.from, tt.to, errs, tt.ok)
			}
		})
	}
}

func TestBusinessValidator_GradeAndDates(t *testing.T) {
	bv := New().GetBusinessValidator()

	if errs := bv.ValidateGrade("grade", 10, 10); len(errs) != 0 {
		t.Errorf("max grade should be accepted: %v", errs)
	}
	if errs := bv.ValidateGrade("grade", 10.5, 10); len(errs) != 1 {
		t.Error("grade above max should fail")
	}
	if errs := bv.ValidateGrade("grade", -1, 10); len(errs) != 1 {
		t.Error("negative grade should fail")
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	if errs := bv.ValidateDateRange("ends_at", &start, &end); len(errs) != 1 {
		t.Error("end before start should fail")
	}
	if errs := bv.ValidateDateRange("ends_at", &start, nil); len(errs) != 0 {
		t.Error("open range should pass")
	}
}

func TestBusinessValidator_CourseFeature(t *testing.T) {
	bv := New().GetBusinessValidator()
	course := &models.Course{ID: "c1", HasClasses: true}

	if errs := bv.ValidateCourseFeature(course, "classes"); len(errs) != 0 {
		t.Errorf("classes enabled: %v", errs)
	}
	if errs := bv.ValidateCourseFeature(course, "teams"); len(errs) != 1 {
		t.Error("teams disabled should fail")
	}
}
