package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

func seedAssignment(t *testing.T, repo *PostgreSQLRepository) (*models.Course, *models.Assignment) {
	t.Helper()
	inst := &models.Institution{Name: "Colegio"}
	mustCreate(t, repo.db, inst)
	course := &models.Course{InstitutionID: inst.ID, Name: "Matemática"}
	mustCreate(t, repo.db, course)
	due := time.Now().UTC().Add(48 * time.Hour)
	assignment := &models.Assignment{CourseID: course.ID, Title: "TP 1", DueAt: &due}
	mustCreate(t, repo.db, assignment)
	return course, assignment
}

func newTestRepository(t *testing.T) *PostgreSQLRepository {
	t.Helper()
	return NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)}).(*PostgreSQLRepository)
}

func TestSubmissionRepository_OldestRowWins(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, assignment := seedAssignment(t, repo)

	base := time.Now().UTC().Add(-time.Hour)
	first := &models.AssignmentSubmission{
		AssignmentID: assignment.ID,
		StudentEmail: "alumna@school.edu",
		Content:      ptr("primera"),
		CreatedAt:    base,
	}
	second := &models.AssignmentSubmission{
		AssignmentID: assignment.ID,
		StudentEmail: "Alumna@School.edu",
		Content:      ptr("segunda"),
		CreatedAt:    base.Add(time.Minute),
	}
	mustCreate(t, repo.db, first, second)

	got, err := repo.Submission().GetByAssignmentAndStudent(ctx, nil, assignment.ID, "ALUMNA@school.edu")
	if err != nil {
		t.Fatalf("GetByAssignmentAndStudent() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("got submission %s, want oldest %s", got.ID, first.ID)
	}

	count, err := repo.Submission().CountByAssignmentAndStudent(ctx, nil, assignment.ID, "alumna@school.edu")
	if err != nil {
		t.Fatalf("CountByAssignmentAndStudent() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestSubmissionRepository_MissingIsNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, assignment := seedAssignment(t, repo)

	_, err := repo.Submission().GetByAssignmentAndStudent(context.Background(), nil, assignment.ID, "nadie@school.edu")
	if !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSubmissionRepository_GradebookAndListByStudent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	course, assignment := seedAssignment(t, repo)

	now := time.Now().UTC()
	mustCreate(t, repo.db,
		&models.AssignmentSubmission{AssignmentID: assignment.ID, StudentEmail: "a@school.edu", Grade: ptr(8.5), GradedAt: &now, SubmittedAt: &now},
		&models.AssignmentSubmission{AssignmentID: assignment.ID, StudentEmail: "b@school.edu", SubmittedAt: &now},
	)

	rows, err := repo.Submission().Gradebook(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("Gradebook() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Gradebook() returned %d rows, want 2", len(rows))
	}
	if rows[0].StudentEmail != "a@school.edu" || rows[0].Grade == nil || *rows[0].Grade != 8.5 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Grade != nil {
		t.Errorf("ungraded row has grade %v", *rows[1].Grade)
	}
	if rows[0].MaxGrade != 10 {
		t.Errorf("MaxGrade = %v, want default 10", rows[0].MaxGrade)
	}

	mine, err := repo.Submission().ListByStudent(ctx, nil, course.ID, "B@school.edu")
	if err != nil {
		t.Fatalf("ListByStudent() error = %v", err)
	}
	if len(mine) != 1 || mine[0].StudentEmail != "b@school.edu" {
		t.Errorf("ListByStudent() = %+v", mine)
	}

	ungraded, err := repo.Dashboard().CountUngradedByCourse(ctx, nil, []string{course.ID})
	if err != nil {
		t.Fatalf("CountUngradedByCourse() error = %v", err)
	}
	if ungraded[course.ID] != 1 {
		t.Errorf("ungraded = %d, want 1", ungraded[course.ID])
	}
}

func TestDashboardRepository_UpcomingAssignments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	course, upcoming := seedAssignment(t, repo)

	past := time.Now().UTC().Add(-48 * time.Hour)
	mustCreate(t, repo.db,
		&models.Assignment{CourseID: course.ID, Title: "Vencida", DueAt: &past},
		&models.Assignment{CourseID: course.ID, Title: "Sin fecha"},
	)

	rows, err := repo.Dashboard().GetUpcomingAssignments(ctx, nil, []string{course.ID}, time.Now().UTC(), 5)
	if err != nil {
		t.Fatalf("GetUpcomingAssignments() error = %v", err)
	}
	if len(rows) != 1 || rows[0].AssignmentID != upcoming.ID {
		t.Fatalf("GetUpcomingAssignments() = %+v", rows)
	}
	if rows[0].CourseName != "Matemática" {
		t.Errorf("CourseName = %q", rows[0].CourseName)
	}

	empty, err := repo.Dashboard().GetUpcomingAssignments(ctx, nil, nil, time.Now(), 5)
	if err != nil || len(empty) != 0 {
		t.Errorf("no courses should return nothing, got %v %v", empty, err)
	}
}
