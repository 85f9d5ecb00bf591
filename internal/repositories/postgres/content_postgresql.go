package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// ===== CLASSES =====

type classRepository struct {
	baseRepository
}

func NewClassRepository(db *gorm.DB) repositories.ClassRepository {
	return &classRepository{baseRepository{db: db}}
}

func (r *classRepository) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Resources").Create(class).Error, "create class")
}

func (r *classRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error) {
	var class models.Class
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Resources", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&class, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get class")
	}
	return &class, nil
}

func (r *classRepository) Update(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Resources").Save(class).Error, "update class")
}

func (r *classRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Delete(&models.Class{}, "id = ?", id).Error, "delete class")
}

func (r *classRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Class, error) {
	var classes []*models.Class
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Resources", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("course_id = ?", courseID).
		Order("position ASC, created_at ASC").
		Find(&classes).Error; err != nil {
		return nil, handleDBError(err, "list classes")
	}
	return classes, nil
}

// ===== CLASS RESOURCES =====

type classResourceRepository struct {
	baseRepository
}

func NewClassResourceRepository(db *gorm.DB) repositories.ClassResourceRepository {
	return &classResourceRepository{baseRepository{db: db}}
}

func (r *classResourceRepository) Create(ctx context.Context, tx *gorm.DB, resource *models.ClassResource) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(resource).Error, "create class resource")
}

func (r *classResourceRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ClassResource, error) {
	var resource models.ClassResource
	if err := r.getDB(tx).WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get class resource")
	}
	return &resource, nil
}

func (r *classResourceRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.ClassResource{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete class resource")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete class resource")
	}
	return nil
}

func (r *classResourceRepository) DeleteByClass(ctx context.Context, tx *gorm.DB, classID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&models.ClassResource{}).Error, "delete class resources")
}

func (r *classResourceRepository) ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]*models.ClassResource, error) {
	var resources []*models.ClassResource
	if err := r.getDB(tx).WithContext(ctx).
		Where("class_id = ?", classID).
		Order("created_at ASC").
		Find(&resources).Error; err != nil {
		return nil, handleDBError(err, "list class resources")
	}
	return resources, nil
}

// ===== ASSIGNMENTS =====

type assignmentRepository struct {
	baseRepository
}

func NewAssignmentRepository(db *gorm.DB) repositories.AssignmentRepository {
	return &assignmentRepository{baseRepository{db: db}}
}

func (r *assignmentRepository) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Resources").Create(assignment).Error, "create assignment")
}

func (r *assignmentRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Resources", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&assignment, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get assignment")
	}
	return &assignment, nil
}

func (r *assignmentRepository) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Resources").Save(assignment).Error, "update assignment")
}

func (r *assignmentRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id).Error, "delete assignment")
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.AssignmentFilters) ([]*models.Assignment, error) {
	var assignments []*models.Assignment

	query := r.getDB(tx).WithContext(ctx).Where("course_id = ?", courseID)
	if filters.ClassID != nil {
		query = query.Where("class_id = ?", *filters.ClassID)
	}
	if filters.DueAfter != nil {
		query = query.Where("due_at >= ?", *filters.DueAfter)
	}
	if filters.DueBefore != nil {
		query = query.Where("due_at <= ?", *filters.DueBefore)
	}

	if err := query.Order("due_at ASC, created_at ASC").Find(&assignments).Error; err != nil {
		return nil, handleDBError(err, "list assignments")
	}
	return assignments, nil
}

// ===== ASSIGNMENT RESOURCES =====

type assignmentResourceRepository struct {
	baseRepository
}

func NewAssignmentResourceRepository(db *gorm.DB) repositories.AssignmentResourceRepository {
	return &assignmentResourceRepository{baseRepository{db: db}}
}

func (r *assignmentResourceRepository) Create(ctx context.Context, tx *gorm.DB, resource *models.AssignmentResource) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(resource).Error, "create assignment resource")
}

func (r *assignmentResourceRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentResource, error) {
	var resource models.AssignmentResource
	if err := r.getDB(tx).WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get assignment resource")
	}
	return &resource, nil
}

func (r *assignmentResourceRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.AssignmentResource{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete assignment resource")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete assignment resource")
	}
	return nil
}

func (r *assignmentResourceRepository) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.AssignmentResource{}).Error, "delete assignment resources")
}

func (r *assignmentResourceRepository) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.AssignmentResource, error) {
	var resources []*models.AssignmentResource
	if err := r.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&resources).Error; err != nil {
		return nil, handleDBError(err, "list assignment resources")
	}
	return resources, nil
}
