package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// QueryRepository interface for course Q&A threads
type QueryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, query *models.CourseQuery) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseQuery, error)
	Update(ctx context.Context, tx *gorm.DB, query *models.CourseQuery) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// List orders by last activity, newest first
	List(ctx context.Context, tx *gorm.DB, filters QueryFilters) ([]*models.CourseQuery, int64, error)

	// RecordResponse bumps response_count and last_activity_at
	RecordResponse(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
	SetResolved(ctx context.Context, tx *gorm.DB, id string, resolved bool) error
}

type QueryResponseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, response *models.QueryResponse) error
	// ListByQuery returns responses oldest first
	ListByQuery(ctx context.Context, tx *gorm.DB, queryID string, limit, offset int) ([]*models.QueryResponse, int64, error)
	DeleteByQuery(ctx context.Context, tx *gorm.DB, queryID string) error
}

type ExtractionRunRepository interface {
	Create(ctx context.Context, tx *gorm.DB, run *models.ExtractionRun) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, limit int) ([]*models.ExtractionRun, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error
}
