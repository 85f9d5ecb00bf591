package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

type queryService struct {
	*baseService
}

func NewQueryService(deps Dependencies) QueryService {
	return &queryService{baseService: newBaseService(deps)}
}

func (s *queryService) Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateQueryRequest) (*models.CourseQuery, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapParticipate, "create_query"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkTargets(ctx, courseID, req.ClassID, req.AssignmentID); err != nil {
		return nil, err
	}

	query := &models.CourseQuery{
		CourseID:     courseID,
		ClassID:      req.ClassID,
		AssignmentID: req.AssignmentID,
		AuthorEmail:  caller.Email,
		Title:        strings.TrimSpace(req.Title),
		Body:         strings.TrimSpace(req.Body),
	}
	if err := s.repo.Query().Create(ctx, nil, query); err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}

	s.publish(ctx, events.QueryCreated, events.QueryData{
		QueryID:     query.ID,
		CourseID:    courseID,
		AuthorEmail: query.AuthorEmail,
	})
	s.invalidateDashboards(ctx)
	return query, nil
}

// checkTargets verifies the optional class and assignment belong to the course
func (s *queryService) checkTargets(ctx context.Context, courseID string, classID, assignmentID *string) error {
	if classID != nil && *classID != "" {
		class, err := s.repo.Class().GetByID(ctx, nil, *classID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get class: %w", err)
		}
		if class == nil || class.CourseID != courseID {
			return NewValidationError("class_id", "la clase no pertenece al curso", *classID)
		}
	}
	if assignmentID != nil && *assignmentID != "" {
		assignment, err := s.repo.Assignment().GetByID(ctx, nil, *assignmentID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get assignment: %w", err)
		}
		if assignment == nil || assignment.CourseID != courseID {
			return NewValidationError("assignment_id", "la tarea no pertenece al curso", *assignmentID)
		}
	}
	return nil
}

func (s *queryService) List(ctx context.Context, caller authz.Identity, courseID string, req *ListQueriesRequest) (*QueryListResponse, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_queries"); err != nil {
		return nil, err
	}
	if req == nil {
		req = &ListQueriesRequest{}
	}

	p := utils.NormalizePage(req.Page, req.Size)
	filters := repositories.QueryFilters{
		CourseID: courseID,
		Resolved: req.Resolved,
		Limit:    p.Limit(),
		Offset:   p.Offset(),
	}
	if req.ClassID != "" {
		filters.ClassID = &req.ClassID
	}
	if req.AssignmentID != "" {
		filters.AssignmentID = &req.AssignmentID
	}

	queries, total, err := s.repo.Query().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return &QueryListResponse{
		Queries: queries,
		Total:   total,
		Page:    p.Page,
		Size:    p.Size,
	}, nil
}

func (s *queryService) GetThread(ctx context.Context, caller authz.Identity, queryID string, page, size int) (*QueryThreadResponse, error) {
	query, err := s.loadQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, query.CourseID, authz.CapRead, "read_query"); err != nil {
		return nil, err
	}

	p := utils.NormalizePage(page, size)
	responses, total, err := s.repo.QueryResponse().ListByQuery(ctx, nil, queryID, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list query responses: %w", err)
	}

	canModerate, err := s.canModerate(ctx, caller, query)
	if err != nil {
		return nil, err
	}

	return &QueryThreadResponse{
		Query:       query,
		Responses:   responses,
		Total:       total,
		Page:        p.Page,
		Size:        p.Size,
		CanModerate: canModerate,
	}, nil
}

// Respond appends a response and bumps the thread activity. Course managers
// are notified through query.answered only when a teacher answers.
func (s *queryService) Respond(ctx context.Context, caller authz.Identity, queryID string, req *RespondQueryRequest) (*models.QueryResponse, error) {
	query, err := s.loadQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, query.CourseID, authz.CapParticipate, "respond_query"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	roles, err := s.courseRoles(ctx, caller, query.CourseID)
	if err != nil {
		return nil, err
	}

	response := &models.QueryResponse{
		QueryID:     queryID,
		AuthorEmail: caller.Email,
		Body:        strings.TrimSpace(req.Body),
	}
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.QueryResponse().Create(ctx, tx, response); err != nil {
			return fmt.Errorf("failed to create query response: %w", err)
		}
		if err := s.repo.Query().RecordResponse(ctx, tx, queryID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record query activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if roles.Has(authz.RoleTeacher) {
		s.publish(ctx, events.QueryAnswered, events.QueryData{
			QueryID:     queryID,
			CourseID:    query.CourseID,
			AuthorEmail: query.AuthorEmail,
			Responder:   response.AuthorEmail,
		})
	}
	return response, nil
}

func (s *queryService) SetResolved(ctx context.Context, caller authz.Identity, queryID string, req *ResolveQueryRequest) (*models.CourseQuery, error) {
	query, err := s.requireModeration(ctx, caller, queryID, "resolve_query")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Query().SetResolved(ctx, nil, queryID, req.Resolved); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQueryNotFound
		}
		return nil, fmt.Errorf("failed to update query: %w", err)
	}
	query.Resolved = req.Resolved
	s.invalidateDashboards(ctx)
	return query, nil
}

func (s *queryService) Delete(ctx context.Context, caller authz.Identity, queryID string) error {
	query, err := s.requireModeration(ctx, caller, queryID, "delete_query")
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.QueryResponse().DeleteByQuery(ctx, tx, queryID); err != nil {
			return fmt.Errorf("failed to delete query responses: %w", err)
		}
		if err := s.repo.Query().Delete(ctx, tx, queryID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQueryNotFound
			}
			return fmt.Errorf("failed to delete query: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Query deleted", "query_id", queryID, "course_id", query.CourseID, "by", caller.Email)
	s.invalidateDashboards(ctx)
	return nil
}

// requireModeration allows the author of the query or a course manager
func (s *queryService) requireModeration(ctx context.Context, caller authz.Identity, queryID, action string) (*models.CourseQuery, error) {
	query, err := s.loadQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, query.CourseID, authz.CapRead, action); err != nil {
		return nil, err
	}
	ok, err := s.canModerate(ctx, caller, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewPermissionError(caller.Email, queryID, "query", action,
			"no tienes permiso para modificar esta consulta")
	}
	return query, nil
}

func (s *queryService) canModerate(ctx context.Context, caller authz.Identity, query *models.CourseQuery) (bool, error) {
	if authz.NormalizeEmail(caller.Email) == authz.NormalizeEmail(query.AuthorEmail) {
		return true, nil
	}
	return s.allowed(ctx, caller, authz.Course(query.CourseID), authz.CapManage)
}

func (s *queryService) loadQuery(ctx context.Context, queryID string) (*models.CourseQuery, error) {
	query, err := s.repo.Query().GetByID(ctx, nil, queryID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQueryNotFound
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return query, nil
}
