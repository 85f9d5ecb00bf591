package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

type submissionService struct {
	*baseService
	batchSize int
}

func NewSubmissionService(deps Dependencies) SubmissionService {
	base := newBaseService(deps)
	return &submissionService{baseService: base, batchSize: base.deps.GradeBatchSize}
}

// Submit records the caller's work for an assignment. Only students of the
// course may submit; a second submission replaces the first and keeps the grade.
func (s *submissionService) Submit(ctx context.Context, caller authz.Identity, assignmentID string, req *SubmitRequest) (*models.AssignmentSubmission, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapParticipate, "submit"); err != nil {
		return nil, err
	}
	roles, err := s.courseRoles(ctx, caller, assignment.CourseID)
	if err != nil {
		return nil, err
	}
	if !roles.Has(authz.RoleStudent) {
		return nil, NewPermissionError(caller.Email, assignment.CourseID, "course", "submit",
			"no tienes permiso para entregar tareas: solo los estudiantes del curso pueden hacerlo")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.File == nil && stringValue(req.Content) == "" {
		return nil, NewValidationError("content", "la entrega necesita contenido o un archivo", nil)
	}

	email := authz.NormalizeEmail(caller.Email)
	bucket := s.deps.Buckets.Submissions

	var uploadedKey, uploadedURL *string
	if req.File != nil {
		if err := s.validate(req.File); err != nil {
			return nil, err
		}
		obj, err := s.upload(ctx, bucket, req.File, "submissions", assignmentID, email)
		if err != nil {
			return nil, err
		}
		uploadedKey, uploadedURL = &obj.Key, &obj.URL
	}

	now := time.Now().UTC()

	// Check then insert or update. Two concurrent submissions from the same
	// student can both miss the lookup and create two rows.
	existing, err := s.repo.Submission().GetByAssignmentAndStudent(ctx, nil, assignmentID, email)
	if err != nil && !repositories.IsNotFoundError(err) {
		s.dropUpload(ctx, bucket, uploadedKey, uploadedURL)
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	var submission *models.AssignmentSubmission
	if existing != nil {
		oldKey, oldURL := existing.StoragePath, existing.FileURL
		existing.Content = req.Content
		existing.SubmittedAt = &now
		if uploadedKey != nil {
			existing.StoragePath, existing.FileURL = uploadedKey, uploadedURL
		}
		if err := s.repo.Submission().Update(ctx, nil, existing); err != nil {
			s.dropUpload(ctx, bucket, uploadedKey, uploadedURL)
			return nil, fmt.Errorf("failed to update submission: %w", err)
		}
		if uploadedKey != nil && (oldKey != nil || oldURL != nil) {
			s.blobs.remove(ctx, bucket, oldKey, stringValue(oldURL))
		}
		submission = existing
	} else {
		submission = &models.AssignmentSubmission{
			AssignmentID: assignmentID,
			StudentEmail: email,
			Content:      req.Content,
			FileURL:      uploadedURL,
			StoragePath:  uploadedKey,
			SubmittedAt:  &now,
		}
		if err := s.repo.Submission().Create(ctx, nil, submission); err != nil {
			s.dropUpload(ctx, bucket, uploadedKey, uploadedURL)
			return nil, fmt.Errorf("failed to create submission: %w", err)
		}
	}

	s.logger.Info("Submission recorded", "assignment_id", assignmentID, "student", email, "submission_id", submission.ID)
	s.publish(ctx, events.SubmissionCreated, events.SubmissionData{
		SubmissionID: submission.ID,
		AssignmentID: assignmentID,
		CourseID:     assignment.CourseID,
		StudentEmail: email,
		At:           &now,
	})
	s.invalidateDashboards(ctx)
	return submission, nil
}

func (s *submissionService) dropUpload(ctx context.Context, bucket string, key, url *string) {
	if key != nil {
		s.blobs.remove(ctx, bucket, key, stringValue(url))
	}
}

// SetGrade writes the grade of one student. Calling it again for the same
// student updates the same row.
func (s *submissionService) SetGrade(ctx context.Context, caller authz.Identity, assignmentID string, req *SetGradeRequest) (*models.AssignmentSubmission, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "grade"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateGrade("grade", *req.Grade, assignment.MaxGrade); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkStudent(ctx, assignment.CourseID, req.StudentEmail, "student_email"); err != nil {
		return nil, err
	}

	submission, err := s.writeGrade(ctx, caller, assignment, req)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboards(ctx)
	return submission, nil
}

// BulkGrade validates every entry, then writes them in concurrent groups of
// batchSize. Each group is awaited before the next starts; the first failure
// stops the remaining groups.
func (s *submissionService) BulkGrade(ctx context.Context, caller authz.Identity, assignmentID string, req *BulkGradeRequest) (*BulkGradeResult, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapManage, "grade"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	bv := s.validator.GetBusinessValidator()
	var invalid ValidationErrors
	// each student at most once per request
	firstEntry := make(map[string]int, len(req.Grades))
	for i := range req.Grades {
		field := fmt.Sprintf("grades[%d]", i)
		email := authz.NormalizeEmail(req.Grades[i].StudentEmail)
		if prev, ok := firstEntry[email]; ok {
			invalid = append(invalid, ValidationError{
				Field:   field + ".student_email",
				Message: fmt.Sprintf("duplicado: ya aparece en grades[%d]", prev),
				Value:   req.Grades[i].StudentEmail,
				Rule:    "unique",
			})
			continue
		}
		firstEntry[email] = i
		invalid = append(invalid, bv.ValidateGrade(field+".grade", *req.Grades[i].Grade, assignment.MaxGrade)...)
		if err := s.checkStudent(ctx, assignment.CourseID, req.Grades[i].StudentEmail, field+".student_email"); err != nil {
			if !IsValidationError(err) {
				return nil, err
			}
			invalid = append(invalid, err.(ValidationErrors)...)
		}
	}
	if len(invalid) > 0 {
		return nil, invalid
	}

	updated := 0
	for start := 0; start < len(req.Grades); start += s.batchSize {
		end := min(start+s.batchSize, len(req.Grades))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			entry := &req.Grades[i]
			g.Go(func() error {
				_, err := s.writeGrade(gctx, caller, assignment, entry)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			s.logger.Error("Bulk grade aborted", "assignment_id", assignmentID, "written", updated, "error", err)
			if updated > 0 {
				s.invalidateDashboards(ctx)
			}
			return nil, err
		}
		updated += end - start
	}

	s.logger.Info("Bulk grade completed", "assignment_id", assignmentID, "count", updated, "by", caller.Email)
	s.invalidateDashboards(ctx)
	return &BulkGradeResult{Updated: updated}, nil
}

// writeGrade updates the student's row or creates a grade-only row
func (s *submissionService) writeGrade(ctx context.Context, caller authz.Identity, assignment *models.Assignment, req *SetGradeRequest) (*models.AssignmentSubmission, error) {
	email := authz.NormalizeEmail(req.StudentEmail)
	grader := authz.NormalizeEmail(caller.Email)
	now := time.Now().UTC()

	submission, err := s.repo.Submission().GetByAssignmentAndStudent(ctx, nil, assignment.ID, email)
	switch {
	case err == nil:
		submission.Grade = req.Grade
		submission.Feedback = req.Feedback
		submission.GradedBy = &grader
		submission.GradedAt = &now
		if err := s.repo.Submission().Update(ctx, nil, submission); err != nil {
			return nil, fmt.Errorf("failed to update grade: %w", err)
		}
	case repositories.IsNotFoundError(err):
		submission = &models.AssignmentSubmission{
			AssignmentID: assignment.ID,
			StudentEmail: email,
			Grade:        req.Grade,
			Feedback:     req.Feedback,
			GradedBy:     &grader,
			GradedAt:     &now,
		}
		if err := s.repo.Submission().Create(ctx, nil, submission); err != nil {
			return nil, fmt.Errorf("failed to create grade: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	s.publish(ctx, events.SubmissionGraded, events.SubmissionData{
		SubmissionID: submission.ID,
		AssignmentID: assignment.ID,
		CourseID:     assignment.CourseID,
		StudentEmail: email,
		Grade:        req.Grade,
		GradedBy:     grader,
		At:           &now,
	})
	return submission, nil
}

// checkStudent requires the email to be enrolled as a student of the course
func (s *submissionService) checkStudent(ctx context.Context, courseID, email, field string) error {
	enrollment, err := s.repo.Enrollment().GetByCourseAndEmail(ctx, nil, courseID, authz.NormalizeEmail(email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError(field, "el estudiante no está inscrito en el curso", email)
		}
		return fmt.Errorf("failed to get enrollment: %w", err)
	}
	if authz.CanonicalRole(enrollment.Role) != authz.RoleStudent {
		return NewValidationError(field, "el usuario no es estudiante del curso", email)
	}
	return nil
}

// List returns every submission to course managers and only the caller's own
// submission to everyone else.
func (s *submissionService) List(ctx context.Context, caller authz.Identity, assignmentID string) ([]*models.AssignmentSubmission, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, assignment.CourseID, authz.CapRead, "list_submissions"); err != nil {
		return nil, err
	}

	canManage, err := s.allowed(ctx, caller, authz.Course(assignment.CourseID), authz.CapManage)
	if err != nil {
		return nil, err
	}
	if canManage {
		submissions, err := s.repo.Submission().ListByAssignment(ctx, nil, assignmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}
		return submissions, nil
	}

	own, err := s.repo.Submission().GetByAssignmentAndStudent(ctx, nil, assignmentID, authz.NormalizeEmail(caller.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return []*models.AssignmentSubmission{}, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return []*models.AssignmentSubmission{own}, nil
}

func (s *submissionService) ExportGradebook(ctx context.Context, caller authz.Identity, courseID string) (*GradebookExport, error) {
	course, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "export_gradebook")
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment().ListByCourse(ctx, nil, courseID, repositories.AssignmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	rows, err := s.repo.Submission().Gradebook(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gradebook: %w", err)
	}
	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID, repositories.EnrollmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	var students []gradebookStudent
	for _, e := range enrollments {
		if authz.CanonicalRole(e.Role) == authz.RoleStudent {
			students = append(students, gradebookStudent{Email: authz.NormalizeEmail(e.Email), Name: stringValue(e.FullName)})
		}
	}

	content, err := buildGradebook(course.Name, assignments, students, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build gradebook: %w", err)
	}

	s.logger.Info("Gradebook exported", "course_id", courseID, "assignments", len(assignments), "students", len(students))
	return &GradebookExport{
		Filename: gradebookFilename(course.Name, time.Now()),
		Content:  content,
	}, nil
}
