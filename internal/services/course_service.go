package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

type courseService struct {
	*baseService
}

func NewCourseService(deps Dependencies) CourseService {
	return &courseService{baseService: newBaseService(deps)}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, caller authz.Identity, req *CreateCourseRequest) (*models.Course, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.require(ctx, caller, authz.Institution(req.InstitutionID), authz.CapAdminister, "create_course"); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateDateRange("end_date", req.StartDate, req.EndDate); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.repo.Institution().GetByID(ctx, nil, req.InstitutionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}

	s.logger.Info("Creating course", "institution_id", req.InstitutionID, "name", req.Name, "by", caller.Email)

	course := &models.Course{
		InstitutionID: req.InstitutionID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Status:        models.CourseDraft,
		HasClasses:    req.HasClasses,
		HasSprints:    req.HasSprints,
		HasTeams:      req.HasTeams,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		CreatedBy:     authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.invalidateDashboards(ctx)
	s.logger.Info("Course created successfully", "course_id", course.ID)
	return course, nil
}

func (s *courseService) Get(ctx context.Context, caller authz.Identity, id string) (*CourseResponse, error) {
	course, err := s.requireCourse(ctx, caller, id, authz.CapRead, "read")
	if err != nil {
		return nil, err
	}

	roles, err := s.courseRoles(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	canManage, err := s.allowed(ctx, caller, authz.Course(id), authz.CapManage)
	if err != nil {
		return nil, err
	}

	return &CourseResponse{Course: course, Roles: roles.Strings(), CanManage: canManage}, nil
}

func (s *courseService) Update(ctx context.Context, caller authz.Identity, id string, req *UpdateCourseRequest) (*models.Course, error) {
	course, err := s.requireCourse(ctx, caller, id, authz.CapManage, "update")
	if err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.HasClasses != nil {
		course.HasClasses = *req.HasClasses
	}
	if req.HasSprints != nil {
		course.HasSprints = *req.HasSprints
	}
	if req.HasTeams != nil {
		course.HasTeams = *req.HasTeams
	}
	if req.StartDate != nil {
		course.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		course.EndDate = req.EndDate
	}
	if errs := s.validator.GetBusinessValidator().ValidateDateRange("end_date", course.StartDate, course.EndDate); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	s.invalidateDashboards(ctx)
	return course, nil
}

// UpdateStatus moves the course along its lifecycle. Setting the current status is a no-op.
func (s *courseService) UpdateStatus(ctx context.Context, caller authz.Identity, id string, req *UpdateCourseStatusRequest) (*models.Course, error) {
	course, err := s.requireCourse(ctx, caller, id, authz.CapManage, "update_status")
	if err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	next := models.CourseStatus(req.Status)
	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(course.Status, next); len(errs) > 0 {
		return nil, errs
	}
	if course.Status == next {
		return course, nil
	}

	previous := course.Status
	if err := s.repo.Course().UpdateStatus(ctx, nil, id, next); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to update course status: %w", err)
	}
	course.Status = next

	s.logger.Info("Course status changed", "course_id", id, "from", previous, "to", next, "by", caller.Email)
	s.publish(ctx, events.CourseStatusChanged, events.CourseStatusChangedData{
		CourseID:  id,
		From:      string(previous),
		To:        string(next),
		ChangedBy: authz.NormalizeEmail(caller.Email),
	})
	s.invalidateDashboards(ctx)
	return course, nil
}

// Delete removes the course and everything hanging from it, then stored files
func (s *courseService) Delete(ctx context.Context, caller authz.Identity, id string) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return err
	}
	if err := s.require(ctx, caller, authz.Institution(course.InstitutionID), authz.CapAdminister, "delete_course"); err != nil {
		return err
	}

	s.logger.Info("Deleting course", "course_id", id, "by", caller.Email)

	blobs, err := s.collectCourseBlobs(ctx, id)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		return s.deleteCourseTree(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	for _, b := range blobs {
		s.blobs.remove(ctx, b.bucket, b.path, b.url)
	}

	s.invalidateDashboards(ctx)
	s.logger.Info("Course deleted successfully", "course_id", id, "files", len(blobs))
	return nil
}

func (s *courseService) ListByInstitution(ctx context.Context, caller authz.Identity, institutionID string, req *ListCoursesRequest) (*CourseListResponse, error) {
	if err := s.require(ctx, caller, authz.Institution(institutionID), authz.CapRead, "list_courses"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	page := utils.NormalizePage(req.Page, req.Size)

	filters := repositories.CourseFilters{
		Limit:     page.Limit(),
		Offset:    page.Offset(),
		SortBy:    "name",
		SortOrder: "asc",
	}
	if req.Status != "" {
		status := models.CourseStatus(req.Status)
		filters.Status = &status
	}
	if req.Name != "" {
		filters.Name = &req.Name
	}

	courses, total, err := s.repo.Course().ListByInstitution(ctx, nil, institutionID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return &CourseListResponse{Courses: courses, Total: total, Page: page.Page, Size: page.Size}, nil
}

// ListMine returns the courses the caller is enrolled in, with the canonical enrollment role
func (s *courseService) ListMine(ctx context.Context, caller authz.Identity) ([]*MyCourse, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	enrollments, err := s.repo.Enrollment().ListByEmail(ctx, nil, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return []*MyCourse{}, nil
	}

	roleByCourse := make(map[string]string, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		if _, seen := roleByCourse[e.CourseID]; !seen {
			ids = append(ids, e.CourseID)
		}
		roleByCourse[e.CourseID] = string(authz.CanonicalRole(e.Role))
	}

	courses, err := s.repo.Course().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}

	result := make([]*MyCourse, 0, len(courses))
	for _, c := range courses {
		result = append(result, &MyCourse{Course: c, Role: roleByCourse[c.ID]})
	}
	return result, nil
}

// ===== CASCADE HELPERS =====

type storedBlob struct {
	bucket string
	path   *string
	url    string
}

// collectCourseBlobs lists the stored files of a course before its rows go away
func (s *courseService) collectCourseBlobs(ctx context.Context, courseID string) ([]storedBlob, error) {
	var blobs []storedBlob
	buckets := s.deps.Buckets

	classes, err := s.repo.Class().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	for _, class := range classes {
		for _, r := range class.Resources {
			if r.Kind == models.ResourceLink {
				continue
			}
			blobs = append(blobs, storedBlob{buckets.ClassResources, r.StoragePath, r.URL})
		}
	}

	assignments, err := s.repo.Assignment().ListByCourse(ctx, nil, courseID, repositories.AssignmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	for _, a := range assignments {
		resources, err := s.repo.AssignmentResource().ListByAssignment(ctx, nil, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list assignment resources: %w", err)
		}
		for _, r := range resources {
			if r.Kind == models.ResourceLink {
				continue
			}
			blobs = append(blobs, storedBlob{buckets.ClassResources, r.StoragePath, r.URL})
		}

		submissions, err := s.repo.Submission().ListByAssignment(ctx, nil, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}
		for _, sub := range submissions {
			if sub.FileURL == nil && sub.StoragePath == nil {
				continue
			}
			blobs = append(blobs, storedBlob{buckets.Submissions, sub.StoragePath, stringValue(sub.FileURL)})
		}
	}
	return blobs, nil
}

func (s *courseService) deleteCourseTree(ctx context.Context, tx *gorm.DB, courseID string) error {
	assignments, err := s.repo.Assignment().ListByCourse(ctx, tx, courseID, repositories.AssignmentFilters{})
	if err != nil {
		return fmt.Errorf("failed to list assignments: %w", err)
	}
	for _, a := range assignments {
		if err := s.repo.AssignmentResource().DeleteByAssignment(ctx, tx, a.ID); err != nil {
			return fmt.Errorf("failed to delete assignment resources: %w", err)
		}
		if err := s.repo.Submission().DeleteByAssignment(ctx, tx, a.ID); err != nil {
			return fmt.Errorf("failed to delete submissions: %w", err)
		}
		if err := s.repo.Assignment().Delete(ctx, tx, a.ID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
	}

	classes, err := s.repo.Class().ListByCourse(ctx, tx, courseID)
	if err != nil {
		return fmt.Errorf("failed to list classes: %w", err)
	}
	for _, c := range classes {
		if err := s.repo.ClassResource().DeleteByClass(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("failed to delete class resources: %w", err)
		}
		if err := s.repo.Class().Delete(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("failed to delete class: %w", err)
		}
	}

	sprints, err := s.repo.Sprint().ListByCourse(ctx, tx, courseID)
	if err != nil {
		return fmt.Errorf("failed to list sprints: %w", err)
	}
	for _, sp := range sprints {
		if err := s.repo.SprintReview().DeleteBySprint(ctx, tx, sp.ID); err != nil {
			return fmt.Errorf("failed to delete sprint reviews: %w", err)
		}
		if err := s.repo.Sprint().Delete(ctx, tx, sp.ID); err != nil {
			return fmt.Errorf("failed to delete sprint: %w", err)
		}
	}

	teams, err := s.repo.Team().ListByCourse(ctx, tx, courseID)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	for _, t := range teams {
		if err := s.repo.TeamMessage().DeleteByTeam(ctx, tx, t.ID); err != nil {
			return fmt.Errorf("failed to delete team messages: %w", err)
		}
	}
	if err := s.repo.Enrollment().DeleteByCourse(ctx, tx, courseID); err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}
	if err := s.repo.Team().DeleteByCourse(ctx, tx, courseID); err != nil {
		return fmt.Errorf("failed to delete teams: %w", err)
	}

	queries, _, err := s.repo.Query().List(ctx, tx, repositories.QueryFilters{CourseID: courseID})
	if err != nil {
		return fmt.Errorf("failed to list queries: %w", err)
	}
	for _, q := range queries {
		if err := s.repo.QueryResponse().DeleteByQuery(ctx, tx, q.ID); err != nil {
			return fmt.Errorf("failed to delete query responses: %w", err)
		}
		if err := s.repo.Query().Delete(ctx, tx, q.ID); err != nil {
			return fmt.Errorf("failed to delete query: %w", err)
		}
	}

	if err := s.repo.ExtractionRun().DeleteByCourse(ctx, tx, courseID); err != nil {
		return fmt.Errorf("failed to delete extraction runs: %w", err)
	}

	if err := s.repo.Course().Delete(ctx, tx, courseID); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}
