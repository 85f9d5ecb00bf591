package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

type ClassRepository interface {
	Create(ctx context.Context, tx *gorm.DB, class *models.Class) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error)
	Update(ctx context.Context, tx *gorm.DB, class *models.Class) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Class, error)
}

type ClassResourceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, resource *models.ClassResource) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ClassResource, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByClass(ctx context.Context, tx *gorm.DB, classID string) error
	ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]*models.ClassResource, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters AssignmentFilters) ([]*models.Assignment, error)
}

type AssignmentResourceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, resource *models.AssignmentResource) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentResource, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) error
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.AssignmentResource, error)
}

// SubmissionRepository has no uniqueness guarantee on (assignment, student);
// lookups return the oldest matching row.
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentSubmission, error)
	GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, email string) (*models.AssignmentSubmission, error)
	Update(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.AssignmentSubmission, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, courseID, email string) ([]*models.AssignmentSubmission, error)
	CountByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, email string) (int64, error)
	DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) error
	Gradebook(ctx context.Context, tx *gorm.DB, courseID string) ([]GradebookRow, error)
}
