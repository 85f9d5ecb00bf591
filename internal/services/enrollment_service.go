package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

const maxRosterRows = 500

type enrollmentService struct {
	*baseService
}

func NewEnrollmentService(deps Dependencies) EnrollmentService {
	return &enrollmentService{baseService: newBaseService(deps)}
}

func (s *enrollmentService) Enroll(ctx context.Context, caller authz.Identity, courseID string, req *EnrollRequest) (*models.CourseEnrollment, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "enroll"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	email := authz.NormalizeEmail(req.Email)
	if _, err := s.repo.Enrollment().GetByCourseAndEmail(ctx, nil, courseID, email); err == nil {
		return nil, NewConflictError("enrollment", fmt.Sprintf("%s ya está inscrito en este curso", email))
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	enrollment := &models.CourseEnrollment{
		CourseID: courseID,
		Email:    email,
		FullName: trimmedOrNil(req.FullName),
		Role:     string(authz.CanonicalRole(req.Role)),
	}
	if err := s.repo.Enrollment().Create(ctx, nil, enrollment); err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.logger.Info("Enrollment created", "course_id", courseID, "email", email, "role", enrollment.Role, "by", caller.Email)
	s.publish(ctx, events.EnrollmentCreated, events.EnrollmentData{
		CourseID: courseID,
		Email:    email,
		Role:     enrollment.Role,
		By:       authz.NormalizeEmail(caller.Email),
	})
	s.invalidateDashboards(ctx)
	return enrollment, nil
}

func (s *enrollmentService) BulkEnroll(ctx context.Context, caller authz.Identity, courseID string, req *BulkEnrollRequest) (*BulkEnrollResult, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "enroll"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.enrollMany(ctx, caller, courseID, req.Entries, nil)
}

// ImportRoster reads the first sheet of an XLSX file. The header row must
// have an email column; name and role columns are optional and role defaults to student.
func (s *enrollmentService) ImportRoster(ctx context.Context, caller authz.Identity, courseID string, file io.Reader) (*BulkEnrollResult, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "import_roster"); err != nil {
		return nil, err
	}

	entries, skipped, err := parseRoster(file)
	if err != nil {
		return nil, err
	}

	valid := make([]EnrollRequest, 0, len(entries))
	for _, entry := range entries {
		if err := s.validate(&entry); err != nil {
			skipped = append(skipped, SkippedEnrollment{Email: entry.Email, Reason: err.Error()})
			continue
		}
		valid = append(valid, entry)
	}

	s.logger.Info("Importing roster", "course_id", courseID, "rows", len(entries), "by", caller.Email)
	return s.enrollMany(ctx, caller, courseID, valid, skipped)
}

// enrollMany inserts the entries that are not already enrolled, in one transaction
func (s *enrollmentService) enrollMany(ctx context.Context, caller authz.Identity, courseID string, entries []EnrollRequest, skipped []SkippedEnrollment) (*BulkEnrollResult, error) {
	existing, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID, repositories.EnrollmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	seen := make(map[string]bool, len(existing)+len(entries))
	for _, e := range existing {
		seen[authz.NormalizeEmail(e.Email)] = true
	}

	result := &BulkEnrollResult{Created: []*models.CourseEnrollment{}, Skipped: skipped}
	if result.Skipped == nil {
		result.Skipped = []SkippedEnrollment{}
	}

	var toCreate []*models.CourseEnrollment
	for _, entry := range entries {
		email := authz.NormalizeEmail(entry.Email)
		if seen[email] {
			result.Skipped = append(result.Skipped, SkippedEnrollment{Email: email, Reason: "ya inscrito"})
			continue
		}
		seen[email] = true
		toCreate = append(toCreate, &models.CourseEnrollment{
			CourseID: courseID,
			Email:    email,
			FullName: trimmedOrNil(entry.FullName),
			Role:     string(authz.CanonicalRole(entry.Role)),
		})
	}

	if len(toCreate) > 0 {
		err := s.withTx(ctx, func(tx *gorm.DB) error {
			return s.repo.Enrollment().CreateBatch(ctx, tx, toCreate)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create enrollments: %w", err)
		}
	}
	result.Created = append(result.Created, toCreate...)

	by := authz.NormalizeEmail(caller.Email)
	for _, e := range toCreate {
		s.publish(ctx, events.EnrollmentCreated, events.EnrollmentData{CourseID: courseID, Email: e.Email, Role: e.Role, By: by})
	}
	if len(toCreate) > 0 {
		s.invalidateDashboards(ctx)
	}

	s.logger.Info("Bulk enrollment finished", "course_id", courseID, "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}

func (s *enrollmentService) UpdateRole(ctx context.Context, caller authz.Identity, courseID, enrollmentID string, req *UpdateEnrollmentRoleRequest) (*models.CourseEnrollment, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "update_enrollment"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	enrollment, err := s.getEnrollment(ctx, courseID, enrollmentID)
	if err != nil {
		return nil, err
	}
	enrollment.Role = string(authz.CanonicalRole(req.Role))
	if err := s.repo.Enrollment().Update(ctx, nil, enrollment); err != nil {
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}

	s.invalidateDashboards(ctx)
	return enrollment, nil
}

// AssignTeam moves a member into a team of the same course, or out of any team when TeamID is nil
func (s *enrollmentService) AssignTeam(ctx context.Context, caller authz.Identity, courseID, enrollmentID string, req *AssignTeamRequest) (*models.CourseEnrollment, error) {
	course, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "assign_team")
	if err != nil {
		return nil, err
	}
	if err := s.requireFeature(course, "teams"); err != nil {
		return nil, err
	}

	enrollment, err := s.getEnrollment(ctx, courseID, enrollmentID)
	if err != nil {
		return nil, err
	}

	if req.TeamID != nil && *req.TeamID != "" {
		team, err := s.loadTeam(ctx, *req.TeamID)
		if err != nil {
			return nil, err
		}
		if team.CourseID != courseID {
			return nil, NewValidationError("team_id", "el equipo no pertenece a este curso", *req.TeamID)
		}
		enrollment.TeamID = &team.ID
	} else {
		enrollment.TeamID = nil
	}

	if err := s.repo.Enrollment().Update(ctx, nil, enrollment); err != nil {
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}
	return enrollment, nil
}

func (s *enrollmentService) Remove(ctx context.Context, caller authz.Identity, courseID, enrollmentID string) error {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "remove_enrollment"); err != nil {
		return err
	}

	enrollment, err := s.getEnrollment(ctx, courseID, enrollmentID)
	if err != nil {
		return err
	}
	if err := s.repo.Enrollment().Delete(ctx, nil, enrollment.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	s.logger.Info("Enrollment removed", "course_id", courseID, "email", enrollment.Email, "by", caller.Email)
	s.publish(ctx, events.EnrollmentRemoved, events.EnrollmentData{
		CourseID: courseID,
		Email:    enrollment.Email,
		Role:     string(authz.CanonicalRole(enrollment.Role)),
		By:       authz.NormalizeEmail(caller.Email),
	})
	s.invalidateDashboards(ctx)
	return nil
}

// List returns the roster. Roles are compared and returned in canonical form.
func (s *enrollmentService) List(ctx context.Context, caller authz.Identity, courseID string, req *ListEnrollmentsRequest) ([]*models.CourseEnrollment, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_enrollments"); err != nil {
		return nil, err
	}

	filters := repositories.EnrollmentFilters{}
	if req.TeamID != "" {
		filters.TeamID = &req.TeamID
	}
	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	var wanted authz.Role
	if req.Role != "" {
		wanted = authz.CanonicalRole(req.Role)
		if wanted == authz.RoleUnknown {
			return nil, NewValidationError("role", "no es un rol de curso válido", req.Role)
		}
	}

	result := make([]*models.CourseEnrollment, 0, len(enrollments))
	for _, e := range enrollments {
		role := authz.CanonicalRole(e.Role)
		if wanted != authz.RoleUnknown && role != wanted {
			continue
		}
		e.Role = string(role)
		result = append(result, e)
	}
	return result, nil
}

func (s *enrollmentService) getEnrollment(ctx context.Context, courseID, enrollmentID string) (*models.CourseEnrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, nil, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment.CourseID != courseID {
		return nil, ErrEnrollmentNotFound
	}
	return enrollment, nil
}

// ===== ROSTER PARSING =====

var rosterHeaders = map[string]string{
	"email":              "email",
	"correo":             "email",
	"correo electronico": "email",
	"correo electrónico": "email",
	"name":               "name",
	"nombre":             "name",
	"nombre completo":    "name",
	"full name":          "name",
	"role":               "role",
	"rol":                "role",
}

func parseRoster(file io.Reader) ([]EnrollRequest, []SkippedEnrollment, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, NewValidationError("file", "no es un archivo XLSX válido", nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, NewValidationError("file", "el archivo no tiene hojas", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, NewValidationError("file", "no se pudo leer la hoja", nil)
	}
	if len(rows) < 2 {
		return nil, nil, NewValidationError("file", "el archivo no tiene filas de datos", nil)
	}
	if len(rows)-1 > maxRosterRows {
		return nil, nil, NewValidationError("file", fmt.Sprintf("el archivo supera las %d filas", maxRosterRows), len(rows)-1)
	}

	columns := map[string]int{}
	for i, header := range rows[0] {
		if key, ok := rosterHeaders[strings.ToLower(strings.TrimSpace(header))]; ok {
			if _, dup := columns[key]; !dup {
				columns[key] = i
			}
		}
	}
	if _, ok := columns["email"]; !ok {
		return nil, nil, NewValidationError("file", "falta la columna email", nil)
	}

	cell := func(row []string, key string) string {
		idx, ok := columns[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var entries []EnrollRequest
	var skipped []SkippedEnrollment
	for n, row := range rows[1:] {
		email := cell(row, "email")
		if email == "" {
			if strings.TrimSpace(strings.Join(row, "")) != "" {
				skipped = append(skipped, SkippedEnrollment{Reason: fmt.Sprintf("fila %d sin email", n+2)})
			}
			continue
		}
		role := cell(row, "role")
		if role == "" {
			role = models.EnrollmentRoleStudent
		}
		entry := EnrollRequest{Email: email, Role: role}
		if name := cell(row, "name"); name != "" {
			entry.FullName = &name
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
