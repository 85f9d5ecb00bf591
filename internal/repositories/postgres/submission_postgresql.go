package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

type submissionRepository struct {
	baseRepository
}

func NewSubmissionRepository(db *gorm.DB) repositories.SubmissionRepository {
	return &submissionRepository{baseRepository{db: db}}
}

func (r *submissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(submission).Error, "create submission")
}

func (r *submissionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentSubmission, error) {
	var submission models.AssignmentSubmission
	if err := r.getDB(tx).WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get submission")
	}
	return &submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, email string) (*models.AssignmentSubmission, error) {
	var submission models.AssignmentSubmission
	query := r.getDB(tx).WithContext(ctx).Where("assignment_id = ?", assignmentID)
	if err := whereEmail(query, "student_email", email).
		Order("created_at ASC").
		First(&submission).Error; err != nil {
		return nil, handleDBError(err, "get submission by student")
	}
	return &submission, nil
}

func (r *submissionRepository) Update(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(submission).Error, "update submission")
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.AssignmentSubmission, error) {
	var submissions []*models.AssignmentSubmission
	if err := r.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("student_email ASC, created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, handleDBError(err, "list submissions")
	}
	return submissions, nil
}

func (r *submissionRepository) ListByStudent(ctx context.Context, tx *gorm.DB, courseID, email string) ([]*models.AssignmentSubmission, error) {
	var submissions []*models.AssignmentSubmission
	query := r.getDB(tx).WithContext(ctx).
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Where("assignments.course_id = ?", courseID)
	if err := whereEmail(query, "assignment_submissions.student_email", email).
		Order("assignment_submissions.created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, handleDBError(err, "list student submissions")
	}
	return submissions, nil
}

func (r *submissionRepository) CountByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, email string) (int64, error) {
	var count int64
	query := r.getDB(tx).WithContext(ctx).
		Model(&models.AssignmentSubmission{}).
		Where("assignment_id = ?", assignmentID)
	if err := whereEmail(query, "student_email", email).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count submissions")
	}
	return count, nil
}

func (r *submissionRepository) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.AssignmentSubmission{}).Error, "delete submissions")
}

// Gradebook returns every submission row of the course joined with its
// assignment. Students without a submission are filled in by the caller.
func (r *submissionRepository) Gradebook(ctx context.Context, tx *gorm.DB, courseID string) ([]repositories.GradebookRow, error) {
	var rows []repositories.GradebookRow
	if err := r.getDB(tx).WithContext(ctx).
		Table("assignment_submissions AS s").
		Select(`a.id AS assignment_id, a.title AS assignment_title, a.max_grade AS max_grade,
			LOWER(s.student_email) AS student_email, s.grade AS grade,
			s.submitted_at AS submitted_at, s.graded_at AS graded_at`).
		Joins("JOIN assignments AS a ON a.id = s.assignment_id").
		Where("a.course_id = ?", courseID).
		Order("a.due_at ASC, a.created_at ASC, s.student_email ASC, s.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, handleDBError(err, "load gradebook")
	}
	return rows, nil
}
