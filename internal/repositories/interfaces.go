package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// IsNotFoundError reports whether err wraps a missing-row error
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type ProfileFilters struct {
	Search    string `json:"search"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "email", "full_name"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type InstitutionFilters struct {
	IDs       []string `json:"ids"` // nil means no restriction
	Name      *string  `json:"name"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
}

type CourseFilters struct {
	Status    *models.CourseStatus `json:"status"`
	Name      *string              `json:"name"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"` // "created_at", "name", "status"
	SortOrder string               `json:"sort_order"`
}

// EnrollmentFilters has no role filter: stored roles may be legacy spellings,
// filter on canonical roles after loading.
type EnrollmentFilters struct {
	TeamID *string `json:"team_id"`
}

type AssignmentFilters struct {
	ClassID   *string    `json:"class_id"`
	DueAfter  *time.Time `json:"due_after"`
	DueBefore *time.Time `json:"due_before"`
}

type QueryFilters struct {
	CourseID     string  `json:"course_id"`
	Resolved     *bool   `json:"resolved"`
	ClassID      *string `json:"class_id"`
	AssignmentID *string `json:"assignment_id"`
	AuthorEmail  *string `json:"author_email"`
	Limit        int     `json:"limit"`
	Offset       int     `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// GradebookRow is one (assignment, student) cell of a course gradebook
type GradebookRow struct {
	AssignmentID    string     `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	MaxGrade        float64    `json:"max_grade"`
	StudentEmail    string     `json:"student_email"`
	Grade           *float64   `json:"grade"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	GradedAt        *time.Time `json:"graded_at"`
}
