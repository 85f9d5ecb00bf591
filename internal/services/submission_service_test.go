package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

type gradingFixture struct {
	env        *testEnv
	course     *models.Course
	assignment *models.Assignment
	teacher    string
}

func newGradingFixture(t *testing.T, students ...string) *gradingFixture {
	t.Helper()
	env := newTestEnv(t)
	inst := env.institution(t, "Alfa")
	course := env.course(t, inst.ID, "Física 1")
	env.enroll(t, course.ID, "teacher@school.edu", "docente")
	for _, s := range students {
		env.enroll(t, course.ID, s, "estudiante")
	}
	assignment := &models.Assignment{CourseID: course.ID, Title: "Laboratorio", MaxGrade: 10}
	env.create(t, assignment)
	return &gradingFixture{env: env, course: course, assignment: assignment, teacher: "teacher@school.edu"}
}

func TestSubmissionService_SubmitRoles(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu")
	f.env.enroll(t, f.course.ID, "legacy@school.edu", "alumno")
	f.env.enroll(t, f.course.ID, "guest@school.edu", "invitado")
	svc := NewSubmissionService(f.env.deps)
	content := "mi respuesta"

	tests := []struct {
		name   string
		caller string
		check  func(error) bool
	}{
		{name: "student", caller: "kid@school.edu"},
		{name: "legacy alumno role", caller: "legacy@school.edu"},
		{name: "teacher cannot submit", caller: "teacher@school.edu", check: IsPermissionError},
		{name: "guest cannot submit", caller: "guest@school.edu", check: IsPermissionError},
		{name: "stranger", caller: "nobody@school.edu", check: IsPermissionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := svc.Submit(context.Background(), who(tt.caller), f.assignment.ID, &SubmitRequest{Content: &content})
			if tt.check != nil {
				if !tt.check(err) {
					t.Fatalf("Submit() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if sub.StudentEmail != tt.caller || sub.SubmittedAt == nil {
				t.Errorf("Submit() = %+v", sub)
			}
		})
	}

	if n := f.env.events.count(events.SubmissionCreated); n != 2 {
		t.Errorf("SubmissionCreated events = %d, want 2", n)
	}
}

func TestSubmissionService_SubmitNeedsContent(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu")
	svc := NewSubmissionService(f.env.deps)

	_, err := svc.Submit(context.Background(), who("kid@school.edu"), f.assignment.ID, &SubmitRequest{})
	if !IsValidationError(err) {
		t.Fatalf("Submit() error = %v, want validation error", err)
	}
}

func TestSubmissionService_ResubmitReplacesFile(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu")
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()
	kid := who("kid@school.edu")

	first, err := svc.Submit(ctx, kid, f.assignment.ID, &SubmitRequest{File: uploadOf("v1.txt", "uno")})
	if err != nil {
		t.Fatal(err)
	}
	firstKey := *first.StoragePath

	second, err := svc.Submit(ctx, kid, f.assignment.ID, &SubmitRequest{File: uploadOf("v2.txt", "dos")})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("resubmission created a new row")
	}
	if f.env.blobs.has(testSubmissionsBucket, firstKey) {
		t.Errorf("previous file %q not removed", firstKey)
	}
	if !f.env.blobs.has(testSubmissionsBucket, *second.StoragePath) {
		t.Errorf("new file missing")
	}
	if n := f.env.count(t, &models.AssignmentSubmission{}, "assignment_id = ?", f.assignment.ID); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestSubmissionService_SetGrade(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu")
	f.env.enroll(t, f.course.ID, "guest@school.edu", "invitado")
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()
	teacher := who(f.teacher)

	tests := []struct {
		name  string
		req   SetGradeRequest
		check func(error) bool
	}{
		{name: "first grade creates a row", req: SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(7)}},
		{name: "second grade updates it", req: SetGradeRequest{StudentEmail: "Kid@School.edu", Grade: floatPtr(9.5)}},
		{name: "above maximum", req: SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(11)}, check: IsValidationError},
		{name: "negative", req: SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(-1)}, check: IsValidationError},
		{name: "not enrolled", req: SetGradeRequest{StudentEmail: "ghost@school.edu", Grade: floatPtr(5)}, check: IsValidationError},
		{name: "not a student", req: SetGradeRequest{StudentEmail: "guest@school.edu", Grade: floatPtr(5)}, check: IsValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := svc.SetGrade(ctx, teacher, f.assignment.ID, &tt.req)
			if tt.check != nil {
				if !tt.check(err) {
					t.Fatalf("SetGrade() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetGrade() error = %v", err)
			}
			if sub.GradedBy == nil || *sub.GradedBy != f.teacher || sub.GradedAt == nil {
				t.Errorf("grader not recorded: %+v", sub)
			}
		})
	}

	var rows []models.AssignmentSubmission
	f.env.db.Where("assignment_id = ?", f.assignment.ID).Find(&rows)
	if len(rows) != 1 || !rows[0].IsGraded() || *rows[0].Grade != 9.5 {
		t.Errorf("stored rows = %+v", rows)
	}
	if n := f.env.events.count(events.SubmissionGraded); n != 2 {
		t.Errorf("SubmissionGraded events = %d, want 2", n)
	}

	if _, err := svc.SetGrade(ctx, who("kid@school.edu"), f.assignment.ID, &SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(10)}); !IsPermissionError(err) {
		t.Errorf("student SetGrade() error = %v, want permission error", err)
	}
}

func TestSubmissionService_BulkGrade(t *testing.T) {
	students := []string{"a@school.edu", "b@school.edu", "c@school.edu", "d@school.edu", "e@school.edu"}
	f := newGradingFixture(t, students...)
	f.env.deps.GradeBatchSize = 2
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()

	req := &BulkGradeRequest{}
	for i, s := range students {
		req.Grades = append(req.Grades, SetGradeRequest{StudentEmail: s, Grade: floatPtr(float64(i + 5))})
	}
	res, err := svc.BulkGrade(ctx, who(f.teacher), f.assignment.ID, req)
	if err != nil {
		t.Fatalf("BulkGrade() error = %v", err)
	}
	if res.Updated != len(students) {
		t.Errorf("Updated = %d, want %d", res.Updated, len(students))
	}
	if n := f.env.count(t, &models.AssignmentSubmission{}, "grade IS NOT NULL"); n != int64(len(students)) {
		t.Errorf("graded rows = %d", n)
	}
}

func TestSubmissionService_BulkGradeValidatesEverythingFirst(t *testing.T) {
	f := newGradingFixture(t, "a@school.edu", "b@school.edu")
	svc := NewSubmissionService(f.env.deps)

	_, err := svc.BulkGrade(context.Background(), who(f.teacher), f.assignment.ID, &BulkGradeRequest{Grades: []SetGradeRequest{
		{StudentEmail: "a@school.edu", Grade: floatPtr(8)},
		{StudentEmail: "b@school.edu", Grade: floatPtr(80)},
		{StudentEmail: "z@school.edu", Grade: floatPtr(3)},
	}})
	if !IsValidationError(err) {
		t.Fatalf("BulkGrade() error = %v, want validation error", err)
	}
	for _, field := range []string{"grades[1].grade", "grades[2].student_email"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
	if n := f.env.count(t, &models.AssignmentSubmission{}, "1 = 1"); n != 0 {
		t.Errorf("rows written = %d, want 0", n)
	}
}

func TestSubmissionService_ListScopesByRole(t *testing.T) {
	f := newGradingFixture(t, "a@school.edu", "b@school.edu")
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()
	text := "hecho"
	for _, s := range []string{"a@school.edu", "b@school.edu"} {
		if _, err := svc.Submit(ctx, who(s), f.assignment.ID, &SubmitRequest{Content: &text}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.List(ctx, who(f.teacher), f.assignment.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("teacher List() = %d, %v", len(all), err)
	}
	own, err := svc.List(ctx, who("a@school.edu"), f.assignment.ID)
	if err != nil || len(own) != 1 || own[0].StudentEmail != "a@school.edu" {
		t.Fatalf("student List() = %+v, %v", own, err)
	}
}

func TestSubmissionService_ExportGradebook(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu", "ana@school.edu")
	second := &models.Assignment{CourseID: f.course.ID, Title: "Examen", MaxGrade: 20}
	f.env.create(t, second)
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()
	teacher := who(f.teacher)

	if _, err := svc.SetGrade(ctx, teacher, f.assignment.ID, &SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(8)}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetGrade(ctx, teacher, second.ID, &SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(10)}); err != nil {
		t.Fatal(err)
	}

	export, err := svc.ExportGradebook(ctx, teacher, f.course.ID)
	if err != nil {
		t.Fatalf("ExportGradebook() error = %v", err)
	}
	if !strings.HasPrefix(export.Filename, "calificaciones_F_sica_1_") || !strings.HasSuffix(export.Filename, ".xlsx") {
		t.Errorf("Filename = %q", export.Filename)
	}

	book, err := excelize.OpenReader(bytes.NewReader(export.Content))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows(gradebookSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header and two students", len(rows))
	}
	if got := rows[0][len(rows[0])-1]; got != "Promedio" {
		t.Errorf("last header = %q", got)
	}
	averages := map[string]string{}
	for _, r := range rows[1:] {
		avg := ""
		if len(r) == len(rows[0]) {
			avg = r[len(r)-1]
		}
		averages[r[0]] = avg
	}
	if averages["kid@school.edu"] != fmt.Sprint(6.5) {
		t.Errorf("kid average = %q, want 6.5", averages["kid@school.edu"])
	}
	if _, ok := averages["ana@school.edu"]; !ok {
		t.Errorf("ungraded student missing from gradebook")
	}

	if _, err := svc.ExportGradebook(ctx, who("kid@school.edu"), f.course.ID); !IsPermissionError(err) {
		t.Errorf("student ExportGradebook() error = %v, want permission error", err)
	}
}

func TestSubmissionService_BulkGradeRejectsRepeatedStudent(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu", "ana@school.edu")
	f.env.deps.GradeBatchSize = 10
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()

	_, err := svc.BulkGrade(ctx, who(f.teacher), f.assignment.ID, &BulkGradeRequest{Grades: []SetGradeRequest{
		{StudentEmail: "kid@school.edu", Grade: floatPtr(6)},
		{StudentEmail: "ana@school.edu", Grade: floatPtr(9)},
		{StudentEmail: "Kid@School.edu", Grade: floatPtr(7)},
	}})
	if !IsValidationError(err) {
		t.Fatalf("BulkGrade() error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "grades[2].student_email") || !strings.Contains(err.Error(), "duplicado") {
		t.Errorf("error %q does not point at the repeated entry", err)
	}
	if n := f.env.count(t, &models.AssignmentSubmission{}, "1 = 1"); n != 0 {
		t.Errorf("rows written = %d, want 0", n)
	}

	// grading the same student again in a later request updates the row
	for _, grade := range []float64{6, 7} {
		if _, err := svc.BulkGrade(ctx, who(f.teacher), f.assignment.ID, &BulkGradeRequest{Grades: []SetGradeRequest{
			{StudentEmail: "Kid@School.edu", Grade: floatPtr(grade)},
		}}); err != nil {
			t.Fatalf("BulkGrade(%g) error = %v", grade, err)
		}
	}
	var rows []models.AssignmentSubmission
	f.env.db.Where("assignment_id = ?", f.assignment.ID).Find(&rows)
	if len(rows) != 1 || *rows[0].Grade != 7 || rows[0].StudentEmail != "kid@school.edu" {
		t.Errorf("stored rows = %+v, want one row graded 7", rows)
	}
}

func TestSubmissionService_ExportGradebookLegacyMixedCaseEnrollment(t *testing.T) {
	f := newGradingFixture(t, "kid@school.edu")
	if err := f.env.db.Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND email = ?", f.course.ID, "kid@school.edu").
		Update("email", "Kid@School.edu").Error; err != nil {
		t.Fatal(err)
	}
	svc := NewSubmissionService(f.env.deps)
	ctx := context.Background()

	if _, err := svc.SetGrade(ctx, who(f.teacher), f.assignment.ID, &SetGradeRequest{StudentEmail: "kid@school.edu", Grade: floatPtr(7)}); err != nil {
		t.Fatalf("SetGrade() error = %v", err)
	}

	export, err := svc.ExportGradebook(ctx, who(f.teacher), f.course.ID)
	if err != nil {
		t.Fatalf("ExportGradebook() error = %v", err)
	}
	book, err := excelize.OpenReader(bytes.NewReader(export.Content))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()
	rows, err := book.GetRows(gradebookSheet)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %v, want header and one student", rows[1:])
	}
	if rows[1][0] != "kid@school.edu" || len(rows[1]) < 3 || rows[1][2] != "7" {
		t.Errorf("student row = %v, want kid@school.edu graded 7", rows[1])
	}
}
