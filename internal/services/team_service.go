package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

type teamService struct {
	*baseService
}

func NewTeamService(deps Dependencies) TeamService {
	return &teamService{baseService: newBaseService(deps)}
}

func (s *teamService) Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateTeamRequest) (*models.Team, error) {
	course, err := s.requireCourse(ctx, caller, courseID, authz.CapManage, "create_team")
	if err != nil {
		return nil, err
	}
	if err := s.requireFeature(course, "teams"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	team := &models.Team{
		CourseID:    courseID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.repo.Team().Create(ctx, nil, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.logger.Info("Team created", "team_id", team.ID, "course_id", courseID)
	return team, nil
}

func (s *teamService) Get(ctx context.Context, caller authz.Identity, teamID string) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, team.CourseID, authz.CapRead, "read_team"); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) Update(ctx context.Context, caller authz.Identity, teamID string, req *UpdateTeamRequest) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, team.CourseID, authz.CapManage, "update_team"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		team.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		team.Description = req.Description
	}
	if err := s.repo.Team().Update(ctx, nil, team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// Delete leaves the members enrolled without a team
func (s *teamService) Delete(ctx context.Context, caller authz.Identity, teamID string) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if _, err := s.requireCourse(ctx, caller, team.CourseID, authz.CapManage, "delete_team"); err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Enrollment().ClearTeam(ctx, tx, teamID); err != nil {
			return fmt.Errorf("failed to clear team members: %w", err)
		}
		if err := s.repo.TeamMessage().DeleteByTeam(ctx, tx, teamID); err != nil {
			return fmt.Errorf("failed to delete team messages: %w", err)
		}
		if err := s.repo.Team().Delete(ctx, tx, teamID); err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Team deleted", "team_id", teamID, "course_id", team.CourseID, "by", caller.Email)
	return nil
}

func (s *teamService) List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Team, error) {
	if _, err := s.requireCourse(ctx, caller, courseID, authz.CapRead, "list_teams"); err != nil {
		return nil, err
	}
	teams, err := s.repo.Team().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ===== MESSAGES =====

func (s *teamService) PostMessage(ctx context.Context, caller authz.Identity, teamID string, req *PostMessageRequest) (*models.TeamMessage, error) {
	team, err := s.requireTeamChat(ctx, caller, teamID, "post_message")
	if err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	message := &models.TeamMessage{
		TeamID:      team.ID,
		AuthorEmail: caller.Email,
		Body:        strings.TrimSpace(req.Body),
	}
	if err := s.repo.TeamMessage().Create(ctx, nil, message); err != nil {
		return nil, fmt.Errorf("failed to create team message: %w", err)
	}
	return message, nil
}

func (s *teamService) ListMessages(ctx context.Context, caller authz.Identity, teamID string, page, size int) (*MessageListResponse, error) {
	if _, err := s.requireTeamChat(ctx, caller, teamID, "list_messages"); err != nil {
		return nil, err
	}

	p := utils.NormalizePage(page, size)
	messages, total, err := s.repo.TeamMessage().ListByTeam(ctx, nil, teamID, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list team messages: %w", err)
	}
	return &MessageListResponse{
		Messages: messages,
		Total:    total,
		Page:     p.Page,
		Size:     p.Size,
	}, nil
}

// requireTeamChat allows course managers, and participants who belong to the team
func (s *teamService) requireTeamChat(ctx context.Context, caller authz.Identity, teamID, action string) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourse(ctx, caller, team.CourseID, authz.CapParticipate, action); err != nil {
		return nil, err
	}

	canManage, err := s.allowed(ctx, caller, authz.Course(team.CourseID), authz.CapManage)
	if err != nil {
		return nil, err
	}
	if canManage {
		return team, nil
	}

	enrollment, err := s.repo.Enrollment().GetByCourseAndEmail(ctx, nil, team.CourseID, authz.NormalizeEmail(caller.Email))
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment == nil || enrollment.TeamID == nil || *enrollment.TeamID != teamID {
		return nil, NewPermissionError(caller.Email, teamID, "team", action,
			"no tienes permiso para acceder a este equipo: no eres miembro")
	}
	return team, nil
}
