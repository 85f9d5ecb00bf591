package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

func TestDashboardService_Get(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t)
	env.profile(t, "root@platform.edu", "admin-plataforma")
	alfa := env.institution(t, "Alfa")
	beta := env.institution(t, "Beta")
	env.institutionRole(t, alfa.ID, "boss@school.edu", "admin")
	env.institutionRole(t, beta.ID, "clerk@school.edu", "no-docente")

	fisica := env.course(t, alfa.ID, "Física")
	arte := env.course(t, beta.ID, "Arte")
	env.enroll(t, fisica.ID, "teacher@school.edu", "docente")
	env.enroll(t, fisica.ID, "kid@school.edu", "alumno")
	env.enroll(t, arte.ID, "kid@school.edu", "invitado")

	soon := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)
	upcoming := &models.Assignment{CourseID: fisica.ID, Title: "Informe", DueAt: &soon}
	overdue := &models.Assignment{CourseID: fisica.ID, Title: "Viejo", DueAt: &past}
	env.create(t, upcoming, overdue)
	submitted := now.Add(-time.Hour)
	env.create(t,
		&models.AssignmentSubmission{AssignmentID: upcoming.ID, StudentEmail: "kid@school.edu", SubmittedAt: &submitted},
		&models.CourseQuery{CourseID: fisica.ID, AuthorEmail: "kid@school.edu", Title: "Duda", Body: "?"},
	)

	svc := NewDashboardService(env.deps).(*dashboardService)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("platform admin sees totals", func(t *testing.T) {
		d, err := svc.Get(ctx, who("root@platform.edu"))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d.Platform == nil || d.Platform.Institutions != 2 || d.Platform.Courses != 2 {
			t.Errorf("Platform = %+v", d.Platform)
		}
	})

	t.Run("institution admin", func(t *testing.T) {
		d, err := svc.Get(ctx, who("boss@school.edu"))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d.Platform != nil {
			t.Errorf("institution admin got platform totals")
		}
		if len(d.AdministeredInstitutions) != 1 || d.AdministeredInstitutions[0].CourseCount != 1 {
			t.Errorf("AdministeredInstitutions = %+v", d.AdministeredInstitutions)
		}
	})

	t.Run("staff sees institution courses", func(t *testing.T) {
		d, err := svc.Get(ctx, who("clerk@school.edu"))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(d.StaffInstitutions) != 1 || len(d.StaffCourses) != 1 || d.StaffCourses[0].Name != "Arte" {
			t.Errorf("staff dashboard = %+v / %+v", d.StaffInstitutions, d.StaffCourses)
		}
	})

	t.Run("teacher sees pending work", func(t *testing.T) {
		d, err := svc.Get(ctx, who("teacher@school.edu"))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(d.TeachingCourses) != 1 {
			t.Fatalf("TeachingCourses = %+v", d.TeachingCourses)
		}
		tc := d.TeachingCourses[0]
		if tc.UngradedSubmissions != 1 || tc.OpenQueries != 1 {
			t.Errorf("teaching course = %+v", tc)
		}
	})

	t.Run("student sees upcoming assignments", func(t *testing.T) {
		d, err := svc.Get(ctx, who("kid@school.edu"))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(d.EnrolledCourses) != 2 {
			t.Errorf("EnrolledCourses = %+v", d.EnrolledCourses)
		}
		if len(d.UpcomingAssignments) != 1 || d.UpcomingAssignments[0].Title != "Informe" {
			t.Errorf("UpcomingAssignments = %+v", d.UpcomingAssignments)
		}
		roles := map[string]bool{}
		for _, r := range d.Roles {
			roles[r] = true
		}
		if !roles["estudiante"] || !roles["invitado"] {
			t.Errorf("Roles = %v", d.Roles)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		if _, err := svc.Get(ctx, who("")); !IsUnauthenticated(err) {
			t.Errorf("Get() error = %v, want unauthenticated", err)
		}
	})
}
