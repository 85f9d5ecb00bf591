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

type classService struct {
	*baseService
}

func NewClassService(deps Dependencies) ClassService {
	return &classService{baseService: newBaseService(deps)}
}

// ===== CLASSES =====

func (s *classService) Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateClassRequest) (*models.Class, error) {
	course, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "create_class")
	if err != nil {
		return nil, err
	}
	if err := s.requireFeature(course, "classes"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Creating class", "course_id", courseID, "title", req.Title, "by", caller.Email)

	class := &models.Class{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   authz.NormalizeEmail(caller.Email),
	}
	if req.Position != nil {
		class.Position = *req.Position
	}
	if err := s.repo.Class().Create(ctx, nil, class); err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}
	return class, nil
}

func (s *classService) Get(ctx context.Context, caller authz.Identity, classID string) (*models.Class, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapRead, "read_class"); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *classService) Update(ctx context.Context, caller authz.Identity, classID string, req *UpdateClassRequest) (*models.Class, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapManage, "update_class"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.Title != nil {
		class.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		class.Description = req.Description
	}
	if req.ScheduledAt != nil {
		class.ScheduledAt = req.ScheduledAt
	}
	if req.Position != nil {
		class.Position = *req.Position
	}

	if err := s.repo.Class().Update(ctx, nil, class); err != nil {
		return nil, fmt.Errorf("failed to update class: %w", err)
	}
	return class, nil
}

// Delete removes the class with its resources. Assignments linked to the
// class stay in the course with no class.
func (s *classService) Delete(ctx context.Context, caller authz.Identity, classID string) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapManage, "delete_class"); err != nil {
		return err
	}

	assignments, err := s.repo.Assignment().ListByCourse(ctx, nil, class.CourseID, repositories.AssignmentFilters{ClassID: &class.ID})
	if err != nil {
		return fmt.Errorf("failed to list class assignments: %w", err)
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		for _, a := range assignments {
			a.ClassID = nil
			if err := s.repo.Assignment().Update(ctx, tx, a); err != nil {
				return fmt.Errorf("failed to detach assignment: %w", err)
			}
		}
		if err := s.repo.ClassResource().DeleteByClass(ctx, tx, class.ID); err != nil {
			return fmt.Errorf("failed to delete class resources: %w", err)
		}
		if err := s.repo.Class().Delete(ctx, tx, class.ID); err != nil {
			return fmt.Errorf("failed to delete class: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range class.Resources {
		if r.Kind != models.ResourceLink {
			s.blobs.remove(ctx, s.deps.Buckets.ClassResources, r.StoragePath, r.URL)
		}
	}

	s.logger.Info("Class deleted", "class_id", classID, "course_id", class.CourseID, "by", caller.Email)
	return nil
}

func (s *classService) List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Class, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_classes"); err != nil {
		return nil, err
	}
	classes, err := s.repo.Class().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

// ===== RESOURCES =====

func (s *classService) AddLink(ctx context.Context, caller authz.Identity, classID string, req *AddResourceRequest) (*models.ClassResource, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapManage, "add_resource"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	kind := models.ResourceKind(req.Kind)
	if kind == "" {
		kind = models.ResourceLink
	}
	resource := &models.ClassResource{
		ClassID:   classID,
		Title:     strings.TrimSpace(req.Title),
		Kind:      kind,
		URL:       req.URL,
		CreatedBy: authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.ClassResource().Create(ctx, nil, resource); err != nil {
		return nil, fmt.Errorf("failed to create class resource: %w", err)
	}
	return resource, nil
}

func (s *classService) UploadFile(ctx context.Context, caller authz.Identity, classID string, req *UploadFileRequest) (*models.ClassResource, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapManage, "upload_resource"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	bucket := s.deps.Buckets.ClassResources
	obj, err := s.upload(ctx, bucket, req, "classes", classID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Filename
	}
	resource := &models.ClassResource{
		ClassID:     classID,
		Title:       title,
		Kind:        models.ResourceFile,
		URL:         obj.URL,
		StoragePath: &obj.Key,
		CreatedBy:   authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.ClassResource().Create(ctx, nil, resource); err != nil {
		// the row is the only reference to the object
		s.blobs.remove(ctx, bucket, &obj.Key, obj.URL)
		return nil, fmt.Errorf("failed to create class resource: %w", err)
	}

	s.logger.Info("Class resource uploaded", "class_id", classID, "key", obj.Key, "size", obj.Size)
	return resource, nil
}

// DeleteResource removes the row first; the stored file is removed best effort
func (s *classService) DeleteResource(ctx context.Context, caller authz.Identity, classID, resourceID string) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, class.CourseID, authz.CapManage, "delete_resource"); err != nil {
		return err
	}

	resource, err := s.repo.ClassResource().GetByID(ctx, nil, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to get class resource: %w", err)
	}
	if resource.ClassID != classID {
		return ErrResourceNotFound
	}

	if err := s.repo.ClassResource().Delete(ctx, nil, resourceID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to delete class resource: %w", err)
	}

	if resource.Kind != models.ResourceLink {
		s.blobs.remove(ctx, s.deps.Buckets.ClassResources, resource.StoragePath, resource.URL)
	}
	return nil
}
