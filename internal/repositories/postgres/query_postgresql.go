package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// ===== QUERIES =====

type queryRepository struct {
	baseRepository
}

func NewQueryRepository(db *gorm.DB) repositories.QueryRepository {
	return &queryRepository{baseRepository{db: db}}
}

func (r *queryRepository) Create(ctx context.Context, tx *gorm.DB, query *models.CourseQuery) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(query).Error, "create query")
}

func (r *queryRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseQuery, error) {
	var query models.CourseQuery
	if err := r.getDB(tx).WithContext(ctx).First(&query, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get query")
	}
	return &query, nil
}

func (r *queryRepository) Update(ctx context.Context, tx *gorm.DB, query *models.CourseQuery) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(query).Error, "update query")
}

func (r *queryRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.CourseQuery{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete query")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete query")
	}
	return nil
}

func (r *queryRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.QueryFilters) ([]*models.CourseQuery, int64, error) {
	var queries []*models.CourseQuery
	var total int64

	query := r.getDB(tx).WithContext(ctx).
		Model(&models.CourseQuery{}).
		Where("course_id = ?", filters.CourseID)
	if filters.Resolved != nil {
		query = query.Where("resolved = ?", *filters.Resolved)
	}
	if filters.ClassID != nil {
		query = query.Where("class_id = ?", *filters.ClassID)
	}
	if filters.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filters.AssignmentID)
	}
	if filters.AuthorEmail != nil {
		query = whereEmail(query, "author_email", *filters.AuthorEmail)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count queries")
	}

	query = ApplyPaginationAndSort(query, []string{"last_activity_at"}, "", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&queries).Error; err != nil {
		return nil, 0, handleDBError(err, "list queries")
	}
	return queries, total, nil
}

func (r *queryRepository) RecordResponse(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.CourseQuery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"response_count":   gorm.Expr("response_count + 1"),
			"last_activity_at": at,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "record query response")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "record query response")
	}
	return nil
}

func (r *queryRepository) SetResolved(ctx context.Context, tx *gorm.DB, id string, resolved bool) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Model(&models.CourseQuery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":         resolved,
			"last_activity_at": time.Now(),
		}).Error, "set query resolved")
}

// ===== QUERY RESPONSES =====

type queryResponseRepository struct {
	baseRepository
}

func NewQueryResponseRepository(db *gorm.DB) repositories.QueryResponseRepository {
	return &queryResponseRepository{baseRepository{db: db}}
}

func (r *queryResponseRepository) Create(ctx context.Context, tx *gorm.DB, response *models.QueryResponse) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(response).Error, "create query response")
}

func (r *queryResponseRepository) ListByQuery(ctx context.Context, tx *gorm.DB, queryID string, limit, offset int) ([]*models.QueryResponse, int64, error) {
	var responses []*models.QueryResponse
	var total int64

	query := r.getDB(tx).WithContext(ctx).Model(&models.QueryResponse{}).Where("query_id = ?", queryID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count query responses")
	}

	query = ApplyPaginationAndSort(query, []string{"created_at"}, "", "asc", limit, offset)
	if err := query.Find(&responses).Error; err != nil {
		return nil, 0, handleDBError(err, "list query responses")
	}
	return responses, total, nil
}

func (r *queryResponseRepository) DeleteByQuery(ctx context.Context, tx *gorm.DB, queryID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("query_id = ?", queryID).
		Delete(&models.QueryResponse{}).Error, "delete query responses")
}

// ===== EXTRACTION RUNS =====

type extractionRunRepository struct {
	baseRepository
}

func NewExtractionRunRepository(db *gorm.DB) repositories.ExtractionRunRepository {
	return &extractionRunRepository{baseRepository{db: db}}
}

func (r *extractionRunRepository) Create(ctx context.Context, tx *gorm.DB, run *models.ExtractionRun) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(run).Error, "create extraction run")
}

func (r *extractionRunRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, limit int) ([]*models.ExtractionRun, error) {
	var runs []*models.ExtractionRun
	query := r.getDB(tx).WithContext(ctx).Where("course_id = ?", courseID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, handleDBError(err, "list extraction runs")
	}
	return runs, nil
}

func (r *extractionRunRepository) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.ExtractionRun{}).Error, "delete extraction runs")
}
