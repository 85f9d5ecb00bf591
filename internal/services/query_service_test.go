package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

func newQueryFixture(t *testing.T) (*testEnv, *models.Course, QueryService) {
	t.Helper()
	env := newTestEnv(t)
	inst := env.institution(t, "Alfa")
	course := env.course(t, inst.ID, "Física")
	env.enroll(t, course.ID, "teacher@school.edu", "docente")
	env.enroll(t, course.ID, "kid@school.edu", "estudiante")
	env.enroll(t, course.ID, "ana@school.edu", "alumno")
	env.enroll(t, course.ID, "guest@school.edu", "invitado")
	return env, course, NewQueryService(env.deps)
}

func TestQueryService_CreateAndList(t *testing.T) {
	env, course, svc := newQueryFixture(t)
	ctx := context.Background()
	other := env.course(t, course.InstitutionID, "Arte")
	foreignAssignment := &models.Assignment{CourseID: other.ID, Title: "Acuarela"}
	env.create(t, foreignAssignment)

	q, err := svc.Create(ctx, who("Kid@School.edu"), course.ID, &CreateQueryRequest{Title: "Duda", Body: "¿Cómo se hace?"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.AuthorEmail != "kid@school.edu" || q.Resolved {
		t.Errorf("Create() = %+v", q)
	}
	if env.events.count(events.QueryCreated) != 1 {
		t.Errorf("QueryCreated not published")
	}

	if _, err := svc.Create(ctx, who("guest@school.edu"), course.ID, &CreateQueryRequest{Title: "X", Body: "Y"}); !IsPermissionError(err) {
		t.Errorf("guest Create() error = %v, want permission error", err)
	}
	if _, err := svc.Create(ctx, who("kid@school.edu"), course.ID, &CreateQueryRequest{Title: "X", Body: "Y", AssignmentID: &foreignAssignment.ID}); !IsValidationError(err) {
		t.Errorf("foreign assignment error = %v, want validation error", err)
	}

	list, err := svc.List(ctx, who("guest@school.edu"), course.ID, &ListQueriesRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Total != 1 || len(list.Queries) != 1 {
		t.Errorf("List() = %+v", list)
	}
	resolved := true
	list, err = svc.List(ctx, who("kid@school.edu"), course.ID, &ListQueriesRequest{Resolved: &resolved})
	if err != nil {
		t.Fatalf("List(resolved) error = %v", err)
	}
	if list.Total != 0 {
		t.Errorf("resolved queries = %d, want 0", list.Total)
	}
}

func TestQueryService_RespondNotifiesOnTeacherAnswer(t *testing.T) {
	env, course, svc := newQueryFixture(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, who("kid@school.edu"), course.ID, &CreateQueryRequest{Title: "Duda", Body: "?"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		responder  string
		wantEvents int
	}{
		{name: "classmate answers", responder: "ana@school.edu", wantEvents: 0},
		{name: "teacher answers", responder: "teacher@school.edu", wantEvents: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Respond(ctx, who(tt.responder), q.ID, &RespondQueryRequest{Body: "respuesta"}); err != nil {
				t.Fatalf("Respond() error = %v", err)
			}
			if n := env.events.count(events.QueryAnswered); n != tt.wantEvents {
				t.Errorf("QueryAnswered events = %d, want %d", n, tt.wantEvents)
			}
		})
	}

	thread, err := svc.GetThread(ctx, who("kid@school.edu"), q.ID, 1, 10)
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if thread.Total != 2 || thread.Query.ResponseCount != 2 || !thread.CanModerate {
		t.Errorf("GetThread() = total %d count %d moderate %v", thread.Total, thread.Query.ResponseCount, thread.CanModerate)
	}

	if _, err := svc.Respond(ctx, who("guest@school.edu"), q.ID, &RespondQueryRequest{Body: "yo"}); !IsPermissionError(err) {
		t.Errorf("guest Respond() error = %v, want permission error", err)
	}
}

func TestQueryService_Moderation(t *testing.T) {
	env, course, svc := newQueryFixture(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, who("kid@school.edu"), course.ID, &CreateQueryRequest{Title: "Duda", Body: "?"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Respond(ctx, who("teacher@school.edu"), q.ID, &RespondQueryRequest{Body: "mira el libro"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetResolved(ctx, who("ana@school.edu"), q.ID, &ResolveQueryRequest{Resolved: true}); !IsPermissionError(err) {
		t.Errorf("classmate SetResolved() error = %v, want permission error", err)
	}
	if err := svc.Delete(ctx, who("ana@school.edu"), q.ID); !IsPermissionError(err) {
		t.Errorf("classmate Delete() error = %v, want permission error", err)
	}

	got, err := svc.SetResolved(ctx, who("kid@school.edu"), q.ID, &ResolveQueryRequest{Resolved: true})
	if err != nil {
		t.Fatalf("author SetResolved() error = %v", err)
	}
	if !got.Resolved {
		t.Errorf("query not resolved")
	}

	if err := svc.Delete(ctx, who("teacher@school.edu"), q.ID); err != nil {
		t.Fatalf("teacher Delete() error = %v", err)
	}
	if n := env.count(t, &models.QueryResponse{}, "query_id = ?", q.ID); n != 0 {
		t.Errorf("responses left = %d", n)
	}
	if _, err := svc.GetThread(ctx, who("kid@school.edu"), q.ID, 1, 10); !IsNotFound(err) {
		t.Errorf("GetThread() after delete error = %v, want not found", err)
	}
}

func TestQueryService_LegacyMixedCaseAuthorModerates(t *testing.T) {
	env, course, svc := newQueryFixture(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, who("kid@school.edu"), course.ID, &CreateQueryRequest{Title: "Duda", Body: "?"})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.db.Model(&models.CourseQuery{}).Where("id = ?", q.ID).Update("author_email", "Kid@School.edu").Error; err != nil {
		t.Fatal(err)
	}

	thread, err := svc.GetThread(ctx, who("kid@school.edu"), q.ID, 1, 10)
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if !thread.CanModerate {
		t.Error("author of a mixed-case thread cannot moderate it")
	}
	if _, err := svc.SetResolved(ctx, who(" KID@school.edu "), q.ID, &ResolveQueryRequest{Resolved: true}); err != nil {
		t.Fatalf("author SetResolved() error = %v", err)
	}
	if _, err := svc.SetResolved(ctx, who("ana@school.edu"), q.ID, &ResolveQueryRequest{Resolved: false}); !IsPermissionError(err) {
		t.Errorf("classmate SetResolved() error = %v, want permission error", err)
	}
	if err := svc.Delete(ctx, who("kid@school.edu"), q.ID); err != nil {
		t.Fatalf("author Delete() error = %v", err)
	}
	if n := env.count(t, &models.CourseQuery{}, "id = ?", q.ID); n != 0 {
		t.Errorf("query rows left = %d", n)
	}
}
