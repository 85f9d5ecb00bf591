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

type platformService struct {
	*baseService
}

func NewPlatformService(deps Dependencies) PlatformService {
	return &platformService{baseService: newBaseService(deps)}
}

// ===== INSTITUTIONS =====

func (s *platformService) CreateInstitution(ctx context.Context, caller authz.Identity, req *CreateInstitutionRequest) (*models.Institution, error) {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "create"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Creating institution", "name", req.Name, "by", caller.Email)

	institution := &models.Institution{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		LogoURL:     req.LogoURL,
		CreatedBy:   authz.NormalizeEmail(caller.Email),
	}
	if err := s.repo.Institution().Create(ctx, nil, institution); err != nil {
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}

	s.invalidateDashboards(ctx)
	s.logger.Info("Institution created successfully", "institution_id", institution.ID)
	return institution, nil
}

func (s *platformService) GetInstitution(ctx context.Context, caller authz.Identity, id string) (*models.Institution, error) {
	if err := s.require(ctx, caller, authz.Institution(id), authz.CapRead, "read"); err != nil {
		return nil, err
	}

	institution, err := s.getInstitution(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.Institution().CountCourses(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}
	institution.CourseCount = count
	return institution, nil
}

func (s *platformService) UpdateInstitution(ctx context.Context, caller authz.Identity, id string, req *UpdateInstitutionRequest) (*models.Institution, error) {
	if err := s.require(ctx, caller, authz.Institution(id), authz.CapAdminister, "update"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	institution, err := s.getInstitution(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		institution.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		institution.Description = req.Description
	}
	if req.LogoURL != nil {
		institution.LogoURL = req.LogoURL
	}

	if err := s.repo.Institution().Update(ctx, nil, institution); err != nil {
		return nil, fmt.Errorf("failed to update institution: %w", err)
	}
	s.invalidateDashboards(ctx)
	return institution, nil
}

// DeleteInstitution refuses to remove an institution that still owns courses
func (s *platformService) DeleteInstitution(ctx context.Context, caller authz.Identity, id string) error {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "delete"); err != nil {
		return err
	}
	if _, err := s.getInstitution(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Institution().CountCourses(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to count courses: %w", err)
	}
	if count > 0 {
		return NewConflictError("institution", fmt.Sprintf("la institución tiene %d cursos, elimínalos primero", count))
	}

	s.logger.Info("Deleting institution", "institution_id", id, "by", caller.Email)

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InstitutionRole().DeleteByInstitution(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete institution roles: %w", err)
		}
		if err := s.repo.Institution().Delete(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrInstitutionNotFound
			}
			return fmt.Errorf("failed to delete institution: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateDashboards(ctx)
	return nil
}

// ListInstitutions returns every institution to platform admins and
// supervisors, and only the caller's institutions to everybody else
func (s *platformService) ListInstitutions(ctx context.Context, caller authz.Identity, req *ListInstitutionsRequest) (*InstitutionListResponse, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	page := utils.NormalizePage(req.Page, req.Size)

	global, err := s.gate.EffectiveRoles(ctx, caller, authz.Platform())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	filters := repositories.InstitutionFilters{
		Limit:     page.Limit(),
		Offset:    page.Offset(),
		SortBy:    "name",
		SortOrder: "asc",
	}
	if req.Name != "" {
		filters.Name = &req.Name
	}

	if !global.HasAny(authz.RolePlatformAdmin, authz.RoleSupervisor) {
		roles, err := s.repo.InstitutionRole().ListByEmail(ctx, nil, caller.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to list institution roles: %w", err)
		}
		ids := make([]string, 0, len(roles))
		for _, r := range roles {
			ids = append(ids, r.InstitutionID)
		}
		if len(ids) == 0 {
			return &InstitutionListResponse{Institutions: []*models.Institution{}, Page: page.Page, Size: page.Size}, nil
		}
		filters.IDs = ids
	}

	institutions, total, err := s.repo.Institution().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	return &InstitutionListResponse{
		Institutions: institutions,
		Total:        total,
		Page:         page.Page,
		Size:         page.Size,
	}, nil
}

func (s *platformService) getInstitution(ctx context.Context, id string) (*models.Institution, error) {
	institution, err := s.repo.Institution().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return institution, nil
}

// ===== INSTITUTION ROLES =====

func (s *platformService) AssignInstitutionRole(ctx context.Context, caller authz.Identity, institutionID string, req *AssignInstitutionRoleRequest) (*models.InstitutionRole, error) {
	if err := s.require(ctx, caller, authz.Institution(institutionID), authz.CapAdminister, "assign_role"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.getInstitution(ctx, institutionID); err != nil {
		return nil, err
	}

	email := authz.NormalizeEmail(req.Email)
	role := string(authz.CanonicalRole(req.Role))

	exists, err := s.repo.InstitutionRole().Exists(ctx, nil, institutionID, email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to check institution role: %w", err)
	}
	if exists {
		return nil, NewConflictError("institution_role", fmt.Sprintf("%s ya tiene el rol %s en esta institución", email, role))
	}

	s.logger.Info("Assigning institution role", "institution_id", institutionID, "email", email, "role", role)

	assignment := &models.InstitutionRole{
		InstitutionID: institutionID,
		Email:         email,
		Role:          role,
	}
	if err := s.repo.InstitutionRole().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to assign institution role: %w", err)
	}

	s.invalidateDashboards(ctx)
	return assignment, nil
}

func (s *platformService) RemoveInstitutionRole(ctx context.Context, caller authz.Identity, institutionID, roleID string) error {
	if err := s.require(ctx, caller, authz.Institution(institutionID), authz.CapAdminister, "remove_role"); err != nil {
		return err
	}

	assignment, err := s.repo.InstitutionRole().GetByID(ctx, nil, roleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInstitutionRoleNotFound
		}
		return fmt.Errorf("failed to get institution role: %w", err)
	}
	if assignment.InstitutionID != institutionID {
		return ErrInstitutionRoleNotFound
	}

	if err := s.repo.InstitutionRole().Delete(ctx, nil, roleID); err != nil {
		return fmt.Errorf("failed to remove institution role: %w", err)
	}

	s.logger.Info("Institution role removed", "institution_id", institutionID, "email", assignment.Email, "role", assignment.Role)
	s.invalidateDashboards(ctx)
	return nil
}

func (s *platformService) ListInstitutionRoles(ctx context.Context, caller authz.Identity, institutionID string) ([]*models.InstitutionRole, error) {
	if err := s.require(ctx, caller, authz.Institution(institutionID), authz.CapAdminister, "list_roles"); err != nil {
		return nil, err
	}
	roles, err := s.repo.InstitutionRole().ListByInstitution(ctx, nil, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list institution roles: %w", err)
	}
	return roles, nil
}

// ===== WHITELIST & PROFILES =====

func (s *platformService) AddToWhitelist(ctx context.Context, caller authz.Identity, req *WhitelistRequest) (*models.WhitelistEntry, error) {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "whitelist_add"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	email := authz.NormalizeEmail(req.Email)
	if _, err := s.repo.Whitelist().GetByEmail(ctx, nil, email); err == nil {
		return nil, NewConflictError("whitelist", fmt.Sprintf("%s ya está en la lista de acceso", email))
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check whitelist: %w", err)
	}

	entry := &models.WhitelistEntry{
		Email:   email,
		AddedBy: authz.NormalizeEmail(caller.Email),
		Note:    req.Note,
	}
	entry.SetRoles(canonicalRoles(req.Roles))

	if err := s.repo.Whitelist().Create(ctx, nil, entry); err != nil {
		return nil, fmt.Errorf("failed to add whitelist entry: %w", err)
	}
	s.logger.Info("Whitelist entry added", "email", email, "by", caller.Email)
	return entry, nil
}

func (s *platformService) RemoveFromWhitelist(ctx context.Context, caller authz.Identity, entryID string) error {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "whitelist_remove"); err != nil {
		return err
	}
	if err := s.repo.Whitelist().Delete(ctx, nil, entryID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrWhitelistNotFound
		}
		return fmt.Errorf("failed to remove whitelist entry: %w", err)
	}
	return nil
}

func (s *platformService) ListWhitelist(ctx context.Context, caller authz.Identity, pageNum, size int) (*WhitelistListResponse, error) {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "whitelist_list"); err != nil {
		return nil, err
	}
	page := utils.NormalizePage(pageNum, size)

	entries, total, err := s.repo.Whitelist().List(ctx, nil, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list whitelist: %w", err)
	}
	return &WhitelistListResponse{Entries: entries, Total: total, Page: page.Page, Size: page.Size}, nil
}

func (s *platformService) ListProfiles(ctx context.Context, caller authz.Identity, req *ListProfilesRequest) (*ProfileListResponse, error) {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "profiles_list"); err != nil {
		return nil, err
	}
	page := utils.NormalizePage(req.Page, req.Size)

	profiles, total, err := s.repo.Profile().List(ctx, nil, repositories.ProfileFilters{
		Search:    req.Search,
		Limit:     page.Limit(),
		Offset:    page.Offset(),
		SortBy:    "email",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return &ProfileListResponse{Profiles: profiles, Total: total, Page: page.Page, Size: page.Size}, nil
}

// SetGlobalRoles replaces the global roles of a profile with their canonical names
func (s *platformService) SetGlobalRoles(ctx context.Context, caller authz.Identity, profileID string, req *SetGlobalRolesRequest) (*models.Profile, error) {
	if err := s.require(ctx, caller, authz.Platform(), authz.CapPlatform, "set_roles"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	profile, err := s.repo.Profile().GetByID(ctx, nil, profileID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	roles := canonicalRoles(req.Roles)
	profile.SetRoles(roles)
	if err := s.repo.Profile().Update(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile roles: %w", err)
	}

	s.logger.Info("Global roles updated", "profile_id", profileID, "roles", roles, "by", caller.Email)
	s.invalidateDashboards(ctx)
	return profile, nil
}

// canonicalRoles maps raw role names to their canonical, de-duplicated form
func canonicalRoles(raw []string) []string {
	return authz.ParseRoleSet(raw).Strings()
}
