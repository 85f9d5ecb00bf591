package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/llm"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

const extractionRunsLimit = 50

type extractionService struct {
	*baseService
	extractor llm.Extractor
}

func NewExtractionService(deps Dependencies) ExtractionService {
	return &extractionService{baseService: newBaseService(deps), extractor: deps.Extractor}
}

func (s *extractionService) ExtractResources(ctx context.Context, caller authz.Identity, courseID string, req *ExtractTextRequest) (*ResourcesExtraction, error) {
	if err := s.prepare(ctx, caller, courseID, req, "extract_resources"); err != nil {
		return nil, err
	}
	resources, err := s.extractor.ExtractResources(ctx, req.Text)
	if err != nil {
		return nil, s.upstream(llm.TaskResources, err)
	}
	runID := s.record(ctx, caller, courseID, models.ExtractResources, resources)
	return &ResourcesExtraction{RunID: runID, Resources: resources}, nil
}

func (s *extractionService) ExtractAssignments(ctx context.Context, caller authz.Identity, courseID string, req *ExtractAssignmentsRequest) (*AssignmentsExtraction, error) {
	if err := s.prepare(ctx, caller, courseID, req, "extract_assignments"); err != nil {
		return nil, err
	}
	year := req.Year
	if year == 0 {
		year = time.Now().Year()
	}
	assignments, err := s.extractor.ExtractAssignments(ctx, req.Text, year)
	if err != nil {
		return nil, s.upstream(llm.TaskAssignments, err)
	}
	runID := s.record(ctx, caller, courseID, models.ExtractAssignments, assignments)
	return &AssignmentsExtraction{RunID: runID, Assignments: assignments}, nil
}

func (s *extractionService) ExtractRoster(ctx context.Context, caller authz.Identity, courseID string, req *ExtractTextRequest) (*RosterExtraction, error) {
	if err := s.prepare(ctx, caller, courseID, req, "extract_roster"); err != nil {
		return nil, err
	}
	students, err := s.extractor.ExtractRoster(ctx, req.Text)
	if err != nil {
		return nil, s.upstream(llm.TaskRoster, err)
	}
	for i := range students {
		students[i].Email = authz.NormalizeEmail(students[i].Email)
		if role := authz.CanonicalRole(students[i].Role); authz.IsCourseRole(role) {
			students[i].Role = string(role)
		} else {
			students[i].Role = string(authz.RoleStudent)
		}
	}
	runID := s.record(ctx, caller, courseID, models.ExtractStudents, students)
	return &RosterExtraction{RunID: runID, Students: students}, nil
}

// MatchNames matches free-form names against the people enrolled in the course
func (s *extractionService) MatchNames(ctx context.Context, caller authz.Identity, courseID string, req *MatchNamesRequest) (*NameMatchExtraction, error) {
	if err := s.prepare(ctx, caller, courseID, req, "match_names"); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID, repositories.EnrollmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	candidates := make([]llm.NameCandidate, 0, len(enrollments))
	for _, e := range enrollments {
		candidates = append(candidates, llm.NameCandidate{Email: e.Email, FullName: stringValue(e.FullName)})
	}
	if len(candidates) == 0 {
		return nil, NewValidationError("names", "el curso no tiene inscritos con los que comparar", nil)
	}

	names := make([]string, len(req.Names))
	for i, n := range req.Names {
		names[i] = strings.TrimSpace(n)
	}
	matches, err := s.extractor.MatchNames(ctx, names, candidates)
	if err != nil {
		return nil, s.upstream(llm.TaskNameMatch, err)
	}
	runID := s.record(ctx, caller, courseID, models.ExtractNameMatches, matches)
	return &NameMatchExtraction{RunID: runID, Matches: matches}, nil
}

func (s *extractionService) ListRuns(ctx context.Context, caller authz.Identity, courseID string) ([]*models.ExtractionRun, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "list_extractions"); err != nil {
		return nil, err
	}
	runs, err := s.repo.ExtractionRun().ListByCourse(ctx, nil, courseID, extractionRunsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list extraction runs: %w", err)
	}
	return runs, nil
}

func (s *extractionService) prepare(ctx context.Context, caller authz.Identity, courseID string, req any, action string) error {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, action); err != nil {
		return err
	}
	if err := s.validate(req); err != nil {
		return err
	}
	if s.extractor == nil {
		return NewUpstreamError("llm", "la extracción automática no está configurada", nil)
	}
	return nil
}

func (s *extractionService) upstream(task string, err error) error {
	s.logger.Error("Extraction failed", "task", task, "error", err)
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewUpstreamError("llm", "el modelo tardó demasiado en responder", err)
	case errors.Is(err, llm.ErrInvalidJSON), errors.Is(err, llm.ErrEmptyResponse):
		return NewUpstreamError("llm", "el modelo devolvió una respuesta no válida", err)
	case errors.As(err, &apiErr):
		return NewUpstreamError("llm", fmt.Sprintf("el modelo rechazó la solicitud (%d)", apiErr.StatusCode), err)
	default:
		return NewUpstreamError("llm", "no se pudo completar la extracción", err)
	}
}

// record stores the run and returns its id. A failed write is logged only,
// the extraction result is still returned to the caller.
func (s *extractionService) record(ctx context.Context, caller authz.Identity, courseID string, kind models.ExtractionKind, result any) string {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("Failed to encode extraction result", "kind", kind, "error", err)
		return ""
	}
	run := &models.ExtractionRun{
		CourseID:    courseID,
		Kind:        kind,
		RequestedBy: authz.NormalizeEmail(caller.Email),
		Model:       s.extractor.Model(),
		Result:      datatypes.JSON(payload),
	}
	if err := s.repo.ExtractionRun().Create(ctx, nil, run); err != nil {
		s.logger.Warn("Failed to store extraction run", "kind", kind, "course_id", courseID, "error", err)
		return ""
	}
	s.logger.Info("Extraction completed", "kind", kind, "course_id", courseID, "run_id", run.ID)
	return run.ID
}
