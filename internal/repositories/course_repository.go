package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// CourseRepository interface for course operations
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.CourseStatus) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListByInstitution(ctx context.Context, tx *gorm.DB, institutionID string, filters CourseFilters) ([]*models.Course, int64, error)
}

// EnrollmentRepository holds course membership rows. Role values are returned
// as stored; callers canonicalize them.
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error
	CreateBatch(ctx context.Context, tx *gorm.DB, enrollments []*models.CourseEnrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseEnrollment, error)
	GetByCourseAndEmail(ctx context.Context, tx *gorm.DB, courseID, email string) (*models.CourseEnrollment, error)
	Update(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters EnrollmentFilters) ([]*models.CourseEnrollment, error)
	ListByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*models.CourseEnrollment, error)
	ClearTeam(ctx context.Context, tx *gorm.DB, teamID string) error
}

type TeamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, team *models.Team) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Team, error)
	Update(ctx context.Context, tx *gorm.DB, team *models.Team) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Team, error)
}

type TeamMessageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, message *models.TeamMessage) error
	// ListByTeam returns newest messages first
	ListByTeam(ctx context.Context, tx *gorm.DB, teamID string, limit, offset int) ([]*models.TeamMessage, int64, error)
	DeleteByTeam(ctx context.Context, tx *gorm.DB, teamID string) error
}

type SprintRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sprint *models.Sprint) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Sprint, error)
	Update(ctx context.Context, tx *gorm.DB, sprint *models.Sprint) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Sprint, error)
}

type SprintReviewRepository interface {
	Create(ctx context.Context, tx *gorm.DB, review *models.SprintReview) error
	Update(ctx context.Context, tx *gorm.DB, review *models.SprintReview) error
	GetBySprintAndTeam(ctx context.Context, tx *gorm.DB, sprintID, teamID string) (*models.SprintReview, error)
	ListBySprint(ctx context.Context, tx *gorm.DB, sprintID string) ([]*models.SprintReview, error)
	DeleteBySprint(ctx context.Context, tx *gorm.DB, sprintID string) error
}
