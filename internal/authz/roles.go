package authz

import (
	"sort"
	"strings"
)

// Role is a canonical role name. Every role string read from storage goes
// through CanonicalRole before it is compared.
type Role string

const (
	RoleUnknown Role = ""

	// global roles (profiles.roles)
	RolePlatformAdmin Role = "admin-plataforma"
	RoleSupervisor    Role = "supervisor"

	// institution roles
	RoleInstitutionAdmin Role = "admin"
	RoleStaff            Role = "no-docente"

	// course roles, RoleTeacher is also valid at institution scope
	RoleTeacher Role = "docente"
	RoleStudent Role = "estudiante"
	RoleGuest   Role = "invitado"
)

// roleAliases maps normalized spellings to canonical roles.
// "alumno" is the legacy name for students and must stay here.
var roleAliases = map[string]Role{
	"admin-plataforma":         RolePlatformAdmin,
	"adminplataforma":          RolePlatformAdmin,
	"administrador-plataforma": RolePlatformAdmin,
	"platform-admin":           RolePlatformAdmin,
	"superadmin":               RolePlatformAdmin,

	"supervisor": RoleSupervisor,

	"admin":                     RoleInstitutionAdmin,
	"administrador":             RoleInstitutionAdmin,
	"admin-institucion":         RoleInstitutionAdmin,
	"administrador-institucion": RoleInstitutionAdmin,

	"no-docente": RoleStaff,
	"nodocente":  RoleStaff,
	"staff":      RoleStaff,

	"docente":  RoleTeacher,
	"profesor": RoleTeacher,
	"teacher":  RoleTeacher,

	"estudiante": RoleStudent,
	"alumno":     RoleStudent,
	"student":    RoleStudent,

	"invitado": RoleGuest,
	"guest":    RoleGuest,
}

// CanonicalRole normalizes case, surrounding whitespace and separators, then
// resolves aliases. Unknown names return RoleUnknown.
func CanonicalRole(raw string) Role {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if role, ok := roleAliases[key]; ok {
		return role
	}
	return RoleUnknown
}

// IsCourseRole reports whether r can be stored on a course enrollment
func IsCourseRole(r Role) bool {
	return r == RoleTeacher || r == RoleStudent || r == RoleGuest
}

// IsInstitutionRole reports whether r can be stored on an institution role row
func IsInstitutionRole(r Role) bool {
	return r == RoleInstitutionAdmin || r == RoleTeacher || r == RoleStaff
}

// IsGlobalRole reports whether r can be stored on a profile
func IsGlobalRole(r Role) bool {
	return r == RolePlatformAdmin || r == RoleSupervisor
}

// RoleSet is an immutable set of canonical roles
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set, dropping RoleUnknown
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r != RoleUnknown {
			m[r] = struct{}{}
		}
	}
	return RoleSet{roles: m}
}

// ParseRoleSet canonicalizes raw role strings into a set
func ParseRoleSet(raw []string) RoleSet {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, CanonicalRole(r))
	}
	return NewRoleSet(roles...)
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

func (s RoleSet) Len() int {
	return len(s.roles)
}

func (s RoleSet) Empty() bool {
	return len(s.roles) == 0
}

// Union returns a new set; neither operand is modified
func (s RoleSet) Union(other RoleSet) RoleSet {
	m := make(map[Role]struct{}, len(s.roles)+len(other.roles))
	for r := range s.roles {
		m[r] = struct{}{}
	}
	for r := range other.roles {
		m[r] = struct{}{}
	}
	return RoleSet{roles: m}
}

// Slice returns the roles sorted by name
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings is Slice as plain strings, handy for JSON responses and logs
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
