package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/cache"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

const (
	upcomingAssignmentsLimit = 10
	staffCoursesLimit        = 50
)

type dashboardService struct {
	*baseService
	now func() time.Time
}

func NewDashboardService(deps Dependencies) DashboardService {
	return &dashboardService{baseService: newBaseService(deps), now: time.Now}
}

// Get returns the caller's dashboard. Roles are recomputed on every miss; a
// cached dashboard lives for DashboardCacheConfig.TTL.
func (s *dashboardService) Get(ctx context.Context, caller authz.Identity) (*DashboardResponse, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	email := authz.NormalizeEmail(caller.Email)

	var resp DashboardResponse
	err := s.cache.Dashboard.CacheOrExecute(ctx, cache.DashboardKey(email), &resp, cache.DashboardCacheConfig.TTL, func() (any, error) {
		return s.build(ctx, caller, email)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *dashboardService) build(ctx context.Context, caller authz.Identity, email string) (*DashboardResponse, error) {
	s.logger.Debug("Building dashboard", "email", email)

	global, err := s.gate.EffectiveRoles(ctx, caller, authz.Platform())
	if err != nil {
		return nil, permissionFromGate(err, email, "", string(authz.KindPlatform), "dashboard")
	}

	resp := &DashboardResponse{
		Email:       email,
		GeneratedAt: s.now().UTC(),
	}
	roles := global

	if global.HasAny(authz.RolePlatformAdmin, authz.RoleSupervisor) {
		totals, err := s.repo.Dashboard().GetPlatformTotals(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get platform totals: %w", err)
		}
		resp.Platform = totals
	}

	instRoles, err := s.fillInstitutions(ctx, resp, email)
	if err != nil {
		return nil, err
	}
	roles = roles.Union(instRoles)

	courseRoles, err := s.fillCourses(ctx, resp, email)
	if err != nil {
		return nil, err
	}
	roles = roles.Union(courseRoles)

	resp.Roles = roles.Strings()
	return resp, nil
}

// fillInstitutions adds administered and staff institutions, and the courses
// of institutions where the caller is non-teaching staff.
func (s *dashboardService) fillInstitutions(ctx context.Context, resp *DashboardResponse, email string) (authz.RoleSet, error) {
	rows, err := s.repo.InstitutionRole().ListByEmail(ctx, nil, email)
	if err != nil {
		return authz.RoleSet{}, fmt.Errorf("failed to list institution roles: %w", err)
	}
	if len(rows) == 0 {
		return authz.NewRoleSet(), nil
	}

	roleByInstitution := make(map[string]authz.Role, len(rows))
	ids := make([]string, 0, len(rows))
	var all []authz.Role
	for _, r := range rows {
		role := authz.CanonicalRole(r.Role)
		if role == authz.RoleUnknown {
			continue
		}
		all = append(all, role)
		// admin wins over any other role in the same institution
		if prev, ok := roleByInstitution[r.InstitutionID]; ok {
			if prev == authz.RoleInstitutionAdmin {
				continue
			}
		} else {
			ids = append(ids, r.InstitutionID)
		}
		roleByInstitution[r.InstitutionID] = role
	}

	institutions, _, err := s.repo.Institution().List(ctx, nil, repositories.InstitutionFilters{IDs: ids, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		return authz.RoleSet{}, fmt.Errorf("failed to list institutions: %w", err)
	}

	for _, inst := range institutions {
		role := roleByInstitution[inst.ID]
		summary := InstitutionSummary{ID: inst.ID, Name: inst.Name, Role: string(role), CourseCount: inst.CourseCount}
		if role == authz.RoleInstitutionAdmin {
			resp.AdministeredInstitutions = append(resp.AdministeredInstitutions, summary)
			continue
		}
		resp.StaffInstitutions = append(resp.StaffInstitutions, summary)

		if role == authz.RoleStaff {
			courses, _, err := s.repo.Course().ListByInstitution(ctx, nil, inst.ID, repositories.CourseFilters{
				Limit: staffCoursesLimit, SortBy: "name", SortOrder: "asc",
			})
			if err != nil {
				return authz.RoleSet{}, fmt.Errorf("failed to list institution courses: %w", err)
			}
			for _, c := range courses {
				resp.StaffCourses = append(resp.StaffCourses, EnrolledCourse{ID: c.ID, Name: c.Name, Status: c.Status, Role: string(authz.RoleStaff)})
			}
		}
	}
	return authz.NewRoleSet(all...), nil
}

// fillCourses splits the caller's enrollments into taught and enrolled courses
func (s *dashboardService) fillCourses(ctx context.Context, resp *DashboardResponse, email string) (authz.RoleSet, error) {
	enrollments, err := s.repo.Enrollment().ListByEmail(ctx, nil, email)
	if err != nil {
		return authz.RoleSet{}, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return authz.NewRoleSet(), nil
	}

	roleByCourse := make(map[string]authz.Role, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	var all []authz.Role
	for _, e := range enrollments {
		role := authz.CanonicalRole(e.Role)
		if role == authz.RoleUnknown {
			continue
		}
		all = append(all, role)
		if _, ok := roleByCourse[e.CourseID]; !ok {
			ids = append(ids, e.CourseID)
		}
		if role == authz.RoleTeacher || roleByCourse[e.CourseID] == "" {
			roleByCourse[e.CourseID] = role
		}
	}

	courses, err := s.repo.Course().GetByIDs(ctx, nil, ids)
	if err != nil {
		return authz.RoleSet{}, fmt.Errorf("failed to get courses: %w", err)
	}

	var taught, studied []string
	byID := make(map[string]*models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
		if roleByCourse[c.ID] == authz.RoleTeacher {
			taught = append(taught, c.ID)
		} else {
			studied = append(studied, c.ID)
		}
	}

	if len(taught) > 0 {
		ungraded, err := s.repo.Dashboard().CountUngradedByCourse(ctx, nil, taught)
		if err != nil {
			return authz.RoleSet{}, fmt.Errorf("failed to count ungraded submissions: %w", err)
		}
		open, err := s.repo.Dashboard().CountOpenQueriesByCourse(ctx, nil, taught)
		if err != nil {
			return authz.RoleSet{}, fmt.Errorf("failed to count open queries: %w", err)
		}
		for _, id := range taught {
			c := byID[id]
			resp.TeachingCourses = append(resp.TeachingCourses, TeachingCourse{
				ID:                  c.ID,
				Name:                c.Name,
				Status:              c.Status,
				UngradedSubmissions: ungraded[id],
				OpenQueries:         open[id],
			})
		}
	}

	if len(studied) > 0 {
		var studentCourses []string
		for _, id := range studied {
			c := byID[id]
			role := roleByCourse[id]
			resp.EnrolledCourses = append(resp.EnrolledCourses, EnrolledCourse{ID: c.ID, Name: c.Name, Status: c.Status, Role: string(role)})
			if role == authz.RoleStudent {
				studentCourses = append(studentCourses, id)
			}
		}
		if len(studentCourses) > 0 {
			upcoming, err := s.repo.Dashboard().GetUpcomingAssignments(ctx, nil, studentCourses, s.now(), upcomingAssignmentsLimit)
			if err != nil {
				return authz.RoleSet{}, fmt.Errorf("failed to get upcoming assignments: %w", err)
			}
			resp.UpcomingAssignments = upcoming
		}
	}

	return authz.NewRoleSet(all...), nil
}
