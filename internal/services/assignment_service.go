package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

type assignmentService struct {
	*baseService
}

func NewAssignmentService(deps Dependencies) AssignmentService {
	return &assignmentService{baseService: newBaseService(deps)}
}

// ===== ASSIGNMENTS =====

func (s *assignmentService) Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateAssignmentRequest) (*models.Assignment, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "create_assignment"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkClass(ctx, courseID, req.ClassID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		CourseID:    courseID,
		ClassID:     req.ClassID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueAt:       req.DueAt,
		CreatedBy:   authz.NormalizeEmail(caller.Email),
	}
	if req.MaxGrade != nil {
		assignment.MaxGrade = *req.MaxGrade
	}
	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("Assignment created", "assignment_id", assignment.ID, "course_id", courseID, "by", caller.Email)
	s.invalidateDashboards(ctx)
	return assignment, nil
}

func (s *assignmentService) Get(ctx context.Context, caller authz.Identity, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapRead, "read_assignment"); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *assignmentService) Update(ctx context.Context, caller authz.Identity, assignmentID string, req *UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "update_assignment"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.ClassID != nil {
		if *req.ClassID == "" {
			assignment.ClassID = nil
		} else {
			if err := s.checkClass(ctx, assignment.CourseID, req.ClassID); err != nil {
				return nil, err
			}
			assignment.ClassID = req.ClassID
		}
	}
	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.DueAt != nil {
		assignment.DueAt = req.DueAt
	}
	if req.MaxGrade != nil {
		assignment.MaxGrade = *req.MaxGrade
	}

	if err := s.repo.Assignment().Update(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	s.invalidateDashboards(ctx)
	return assignment, nil
}

// Delete removes the assignment, its resources and its submissions, then the
// stored files of both.
func (s *assignmentService) Delete(ctx context.Context, caller authz.Identity, assignmentID string) error {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "delete_assignment"); err != nil {
		return err
	}

	submissions, err := s.repo.Submission().ListByAssignment(ctx, nil, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.AssignmentResource().DeleteByAssignment(ctx, tx, assignmentID); err != nil {
			return fmt.Errorf("failed to delete assignment resources: %w", err)
		}
		if err := s.repo.Submission().DeleteByAssignment(ctx, tx, assignmentID); err != nil {
			return fmt.Errorf("failed to delete submissions: %w", err)
		}
		if err := s.repo.Assignment().Delete(ctx, tx, assignmentID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range assignment.Resources {
		if r.Kind != models.ResourceLink {
			s.blobs.remove(ctx, s.deps.Buckets.ClassResources, r.StoragePath, r.URL)
		}
	}
	for _, sub := range submissions {
		if sub.FileURL != nil || sub.StoragePath != nil {
			s.blobs.remove(ctx, s.deps.Buckets.Submissions, sub.StoragePath, stringValue(sub.FileURL))
		}
	}

	s.logger.Info("Assignment deleted", "assignment_id", assignmentID, "course_id", assignment.CourseID,
		"submissions", len(submissions), "by", caller.Email)
	s.invalidateDashboards(ctx)
	return nil
}

func (s *assignmentService) List(ctx context.Context, caller authz.Identity, courseID string, req *ListAssignmentsRequest) ([]*models.Assignment, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_assignments"); err != nil {
		return nil, err
	}

	var filters repositories.AssignmentFilters
	if req != nil && req.ClassID != "" {
		filters.ClassID = &req.ClassID
	}
	assignments, err := s.repo.Assignment().ListByCourse(ctx, nil, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// checkClass verifies that an optional class belongs to the course
func (s *assignmentService) checkClass(ctx context.Context, courseID string, classID *string) error {
	if classID == nil || *classID == "" {
		return nil
	}
	class, err := s.repo.Class().GetByID(ctx, nil, *classID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError("class_id", "la clase no existe", *classID)
		}
		return fmt.Errorf("failed to get class: %w", err)
	}
	if class.CourseID != courseID {
		return NewValidationError("class_id", "la clase no pertenece al curso", *classID)
	}
	return nil
}

// ===== RESOURCES =====

func (s *assignmentService) AddLink(ctx context.Context, caller authz.Identity, assignmentID string, req *AddResourceRequest) (*models.AssignmentResource, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "add_resource"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	kind := models.ResourceKind(req.Kind)
	if kind == "" {
		kind = models.ResourceLink
	}
	resource := &models.AssignmentResource{
		AssignmentID: assignmentID,
		Title:        strings.TrimSpace(req.Title),
		Kind:         kind,
		URL:          req.URL,
		CreatedBy:    authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.AssignmentResource().Create(ctx, nil, resource); err != nil {
		return nil, fmt.Errorf("failed to create assignment resource: %w", err)
	}
	return resource, nil
}

func (s *assignmentService) UploadFile(ctx context.Context, caller authz.Identity, assignmentID string, req *UploadFileRequest) (*models.AssignmentResource, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "upload_resource"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	bucket := s.deps.Buckets.ClassResources
	obj, err := s.upload(ctx, bucket, req, "assignments", assignmentID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Filename
	}
	resource := &models.AssignmentResource{
		AssignmentID: assignmentID,
		Title:        title,
		Kind:         models.ResourceFile,
		URL:          obj.URL,
		StoragePath:  &obj.Key,
		CreatedBy:    authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.AssignmentResource().Create(ctx, nil, resource); err != nil {
		s.blobs.remove(ctx, bucket, &obj.Key, obj.URL)
		return nil, fmt.Errorf("failed to create assignment resource: %w", err)
	}

	s.logger.Info("Assignment resource uploaded", "assignment_id", assignmentID, "key", obj.Key, "size", obj.Size)
	return resource, nil
}

// DeleteResource succeeds even when the stored file is already gone
func (s *assignmentService) DeleteResource(ctx context.Context, caller authz.Identity, assignmentID, resourceID string) error {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "delete_resource"); err != nil {
		return err
	}

	resource, err := s.repo.AssignmentResource().GetByID(ctx, nil, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to get assignment resource: %w", err)
	}
	if resource.AssignmentID != assignmentID {
		return ErrResourceNotFound
	}

	if err := s.repo.AssignmentResource().Delete(ctx, nil, resourceID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to delete assignment resource: %w", err)
	}

	if resource.Kind != models.ResourceLink {
		s.blobs.remove(ctx, s.deps.Buckets.ClassResources, resource.StoragePath, resource.URL)
	}
	return nil
}
