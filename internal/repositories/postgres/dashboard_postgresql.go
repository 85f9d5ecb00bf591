package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

type dashboardRepository struct {
	baseRepository
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{baseRepository{db: db}}
}

// ===== PLATFORM TOTALS =====

func (r *dashboardRepository) GetPlatformTotals(ctx context.Context, tx *gorm.DB) (*repositories.PlatformTotals, error) {
	db := r.getDB(tx).WithContext(ctx)
	totals := &repositories.PlatformTotals{}

	counts := []struct {
		model any
		dest  *int64
		where string
		args  []any
		label string
	}{
		{&models.Institution{}, &totals.Institutions, "", nil, "institutions"},
		{&models.Course{}, &totals.Courses, "", nil, "courses"},
		{&models.Course{}, &totals.ActiveCourses, "status = ?", []any{models.CourseActive}, "active courses"},
		{&models.Profile{}, &totals.Profiles, "", nil, "profiles"},
		{&models.CourseEnrollment{}, &totals.Enrollments, "", nil, "enrollments"},
		{&models.AssignmentSubmission{}, &totals.Submissions, "", nil, "submissions"},
	}

	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.label, err)
		}
	}

	return totals, nil
}

// ===== PER-ID COUNTS =====

func (r *dashboardRepository) CountUngradedByCourse(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID string
		Total    int64
	}
	if err := r.getDB(tx).WithContext(ctx).
		Table("assignment_submissions AS s").
		Select("a.course_id AS course_id, COUNT(*) AS total").
		Joins("JOIN assignments AS a ON a.id = s.assignment_id").
		Where("a.course_id IN ? AND s.grade IS NULL AND s.submitted_at IS NOT NULL", courseIDs).
		Group("a.course_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count ungraded submissions: %w", err)
	}

	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}

func (r *dashboardRepository) CountOpenQueriesByCourse(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int64, error) {
	counts, err := countByColumn(r.getDB(tx).WithContext(ctx), &models.CourseQuery{}, "course_id", courseIDs,
		func(q *gorm.DB) *gorm.DB { return q.Where("resolved = ?", false) })
	if err != nil {
		return nil, fmt.Errorf("failed to count open queries: %w", err)
	}
	return counts, nil
}

// ===== UPCOMING ASSIGNMENTS =====

func (r *dashboardRepository) GetUpcomingAssignments(ctx context.Context, tx *gorm.DB, courseIDs []string, from time.Time, limit int) ([]repositories.UpcomingAssignmentData, error) {
	var rows []repositories.UpcomingAssignmentData
	if len(courseIDs) == 0 {
		return rows, nil
	}

	query := r.getDB(tx).WithContext(ctx).
		Table("assignments AS a").
		Select("a.id AS assignment_id, a.course_id AS course_id, c.name AS course_name, a.title AS title, a.due_at AS due_at").
		Joins("JOIN courses AS c ON c.id = a.course_id").
		Where("a.course_id IN ? AND a.due_at IS NOT NULL AND a.due_at >= ?", courseIDs, from).
		Order("a.due_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get upcoming assignments: %w", err)
	}
	return rows, nil
}
