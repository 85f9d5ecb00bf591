package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

type sprintService struct {
	*baseService
}

func NewSprintService(deps Dependencies) SprintService {
	return &sprintService{baseService: newBaseService(deps)}
}

func (s *sprintService) Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateSprintRequest) (*models.Sprint, error) {
	course, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "create_sprint")
	if err != nil {
		return nil, err
	}
	if err := s.requireFeature(course, "sprints"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateDateRange("ends_at", req.StartsAt, req.EndsAt); len(errs) > 0 {
		return nil, errs
	}

	sprint := &models.Sprint{
		CourseID: courseID,
		Name:     strings.TrimSpace(req.Name),
		Goal:     req.Goal,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := s.repo.Sprint().Create(ctx, nil, sprint); err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}
	return sprint, nil
}

func (s *sprintService) Update(ctx context.Context, caller authz.Identity, sprintID string, req *UpdateSprintRequest) (*models.Sprint, error) {
	sprint, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, sprint.CourseID, authz.CapManage, "update_sprint"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		sprint.Name = strings.TrimSpace(*req.Name)
	}
	if req.Goal != nil {
		sprint.Goal = req.Goal
	}
	if req.StartsAt != nil {
		sprint.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		sprint.EndsAt = req.EndsAt
	}
	if errs := s.validator.GetBusinessValidator().ValidateDateRange("ends_at", sprint.StartsAt, sprint.EndsAt); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Sprint().Update(ctx, nil, sprint); err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}
	return sprint, nil
}

func (s *sprintService) Delete(ctx context.Context, caller authz.Identity, sprintID string) error {
	sprint, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, sprint.CourseID, authz.CapManage, "delete_sprint"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SprintReview().DeleteBySprint(ctx, tx, sprintID); err != nil {
			return fmt.Errorf("failed to delete sprint reviews: %w", err)
		}
		if err := s.repo.Sprint().Delete(ctx, tx, sprintID); err != nil {
			return fmt.Errorf("failed to delete sprint: %w", err)
		}
		return nil
	})
}

func (s *sprintService) List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Sprint, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_sprints"); err != nil {
		return nil, err
	}
	sprints, err := s.repo.Sprint().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	return sprints, nil
}

// ===== REVIEWS =====

// UpsertReview keeps a single review per sprint and team
func (s *sprintService) UpsertReview(ctx context.Context, caller authz.Identity, sprintID string, req *SprintReviewRequest) (*models.SprintReview, error) {
	sprint, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, sprint.CourseID, authz.CapManage, "review_sprint"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	team, err := s.loadTeam(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return nil, NewValidationError("team_id", "el equipo no existe", req.TeamID)
		}
		return nil, err
	}
	if team.CourseID != sprint.CourseID {
		return nil, NewValidationError("team_id", "el equipo no pertenece al curso", req.TeamID)
	}

	reviewer := authz.NormalizeEmail(caller.Email)
	review, err := s.repo.SprintReview().GetBySprintAndTeam(ctx, nil, sprintID, req.TeamID)
	switch {
	case err == nil:
		review.Feedback = req.Feedback
		review.Grade = req.Grade
		review.ReviewedBy = reviewer
		if err := s.repo.SprintReview().Update(ctx, nil, review); err != nil {
			return nil, fmt.Errorf("failed to update sprint review: %w", err)
		}
	case repositories.IsNotFoundError(err):
		review = &models.SprintReview{
			SprintID:   sprintID,
			TeamID:     req.TeamID,
			Feedback:   req.Feedback,
			Grade:      req.Grade,
			ReviewedBy: reviewer,
		}
		if err := s.repo.SprintReview().Create(ctx, nil, review); err != nil {
			return nil, fmt.Errorf("failed to create sprint review: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to get sprint review: %w", err)
	}

	s.logger.Info("Sprint reviewed", "sprint_id", sprintID, "team_id", req.TeamID, "by", reviewer)
	return review, nil
}

func (s *sprintService) ListReviews(ctx context.Context, caller authz.Identity, sprintID string) ([]*models.SprintReview, error) {
	sprint, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, sprint.CourseID, authz.CapRead, "list_reviews"); err != nil {
		return nil, err
	}
	reviews, err := s.repo.SprintReview().ListBySprint(ctx, nil, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprint reviews: %w", err)
	}
	return reviews, nil
}

func (s *sprintService) loadSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	sprint, err := s.repo.Sprint().GetByID(ctx, nil, sprintID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return sprint, nil
}
