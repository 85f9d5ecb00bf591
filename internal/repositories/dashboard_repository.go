package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardRepository interface for dashboard aggregate reads
type DashboardRepository interface {
	// Platform totals
	GetPlatformTotals(ctx context.Context, tx *gorm.DB) (*PlatformTotals, error)

	// Per-id counts, missing ids are absent from the map
	CountUngradedByCourse(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int64, error)
	CountOpenQueriesByCourse(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int64, error)

	// Upcoming assignments of the given courses due after from
	GetUpcomingAssignments(ctx context.Context, tx *gorm.DB, courseIDs []string, from time.Time, limit int) ([]UpcomingAssignmentData, error)
}

// Data structures for dashboard responses

type PlatformTotals struct {
	Institutions  int64 `json:"institutions"`
	Courses       int64 `json:"courses"`
	ActiveCourses int64 `json:"active_courses"`
	Profiles      int64 `json:"profiles"`
	Enrollments   int64 `json:"enrollments"`
	Submissions   int64 `json:"submissions"`
}

type UpcomingAssignmentData struct {
	AssignmentID string    `json:"assignment_id"`
	CourseID     string    `json:"course_id"`
	CourseName   string    `json:"course_name"`
	Title        string    `json:"title"`
	DueAt        time.Time `json:"due_at"`
}
