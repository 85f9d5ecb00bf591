package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Identity is the authenticated caller. An empty email means no session.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (i Identity) Authenticated() bool {
	return NormalizeEmail(i.Email) != ""
}

// NormalizeEmail is the comparison form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Capability string

const (
	CapRead        Capability = "read"
	CapParticipate Capability = "participate"
	CapManage      Capability = "manage"
	CapAdminister  Capability = "administer"
	CapPlatform    Capability = "platform"
)

type ResourceKind string

const (
	KindPlatform    ResourceKind = "platform"
	KindInstitution ResourceKind = "institution"
	KindCourse      ResourceKind = "course"
)

// Resource identifies what a capability is requested on
type Resource struct {
	Kind ResourceKind
	ID   string
}

func Platform() Resource             { return Resource{Kind: KindPlatform} }
func Institution(id string) Resource { return Resource{Kind: KindInstitution, ID: id} }
func Course(id string) Resource      { return Resource{Kind: KindCourse, ID: id} }
func (r Resource) String() string    { return fmt.Sprintf("%s:%s", r.Kind, r.ID) }

type DenyReason string

const (
	ReasonNone            DenyReason = ""
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonNotAuthorized   DenyReason = "not_authorized"
)

// Decision is the outcome of one authorization check
type Decision struct {
	Allowed      bool
	Reason       DenyReason
	Message      string
	MatchedRoles []Role
}

func allow(matched ...Role) Decision {
	return Decision{Allowed: true, MatchedRoles: matched}
}

var (
	ErrUnauthenticated = errors.New("no autenticado: inicia sesión para continuar")
)

// Denied is returned by Require when an authenticated caller lacks the capability
type Denied struct {
	Resource   Resource
	Capability Capability
	Message    string
}

func (d *Denied) Error() string {
	return d.Message
}

// MembershipLookup reads role rows. Implementations must match emails
// case-insensitively and return an empty slice, not an error, when no row exists.
type MembershipLookup interface {
	GlobalRoles(ctx context.Context, email string) ([]string, error)
	InstitutionRoles(ctx context.Context, email, institutionID string) ([]string, error)
	CourseRoles(ctx context.Context, email, courseID string) ([]string, error)
	// CourseInstitution returns "" when the course does not exist
	CourseInstitution(ctx context.Context, courseID string) (string, error)
}

// DecisionObserver receives every decision, used for metrics
type DecisionObserver interface {
	ObserveDecision(capability Capability, kind ResourceKind, decision Decision)
}

// Authorizer is the single authorization entry point for every handler
type Authorizer interface {
	Authorize(ctx context.Context, id Identity, resource Resource, capability Capability) (Decision, error)
	Require(ctx context.Context, id Identity, resource Resource, capability Capability) error
	EffectiveRoles(ctx context.Context, id Identity, resource Resource) (RoleSet, error)
}

type capSet map[Capability]struct{}

func caps(cs ...Capability) capSet {
	m := make(capSet, len(cs))
	for _, c := range cs {
		m[c] = struct{}{}
	}
	return m
}

func (s capSet) has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// courseGrants is evaluated after global and institution roles
var courseGrants = map[Role]capSet{
	RoleTeacher: caps(CapRead, CapParticipate, CapManage),
	RoleStudent: caps(CapRead, CapParticipate),
	RoleGuest:   caps(CapRead),
}

var institutionGrants = map[Role]capSet{
	RoleInstitutionAdmin: caps(CapRead, CapParticipate, CapManage, CapAdminister),
	RoleTeacher:          caps(CapRead),
	RoleStaff:            caps(CapRead),
}

var denyMessages = map[Capability]string{
	CapRead:        "no tienes permiso para ver este recurso",
	CapParticipate: "no tienes permiso para participar en este curso",
	CapManage:      "no tienes permiso para gestionar este curso",
	CapAdminister:  "no tienes permiso para administrar esta institución",
	CapPlatform:    "no tienes permiso para administrar la plataforma",
}

// Gate implements Authorizer. Roles are looked up on every call and never cached.
type Gate struct {
	lookup   MembershipLookup
	logger   *slog.Logger
	observer DecisionObserver
}

type GateOption func(*Gate)

func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

func WithObserver(observer DecisionObserver) GateOption {
	return func(g *Gate) { g.observer = observer }
}

func NewGate(lookup MembershipLookup, opts ...GateOption) *Gate {
	g := &Gate{lookup: lookup, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize decides in this order: platform admin, supervisor read access,
// institution roles of the owning institution, then course enrollment.
func (g *Gate) Authorize(ctx context.Context, id Identity, resource Resource, capability Capability) (Decision, error) {
	decision, err := g.decide(ctx, id, resource, capability)
	if err != nil {
		return Decision{}, err
	}

	if g.observer != nil {
		g.observer.ObserveDecision(capability, resource.Kind, decision)
	}
	if !decision.Allowed {
		g.logger.DebugContext(ctx, "Authorization denied",
			"email", NormalizeEmail(id.Email),
			"resource", resource.String(),
			"capability", capability,
			"reason", decision.Reason)
	}

	return decision, nil
}

func (g *Gate) decide(ctx context.Context, id Identity, resource Resource, capability Capability) (Decision, error) {
	if !id.Authenticated() {
		return Decision{Reason: ReasonUnauthenticated, Message: ErrUnauthenticated.Error()}, nil
	}
	email := NormalizeEmail(id.Email)

	global, err := g.globalRoles(ctx, email)
	if err != nil {
		return Decision{}, err
	}
	if global.Has(RolePlatformAdmin) {
		return allow(RolePlatformAdmin), nil
	}
	if global.Has(RoleSupervisor) && capability == CapRead && resource.Kind != KindPlatform {
		return allow(RoleSupervisor), nil
	}

	switch resource.Kind {
	case KindInstitution:
		inst, err := g.institutionRoles(ctx, email, resource.ID)
		if err != nil {
			return Decision{}, err
		}
		if d, ok := grant(inst, institutionGrants, capability); ok {
			return d, nil
		}

	case KindCourse:
		institutionID, err := g.lookup.CourseInstitution(ctx, resource.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("course institution lookup failed: %w", err)
		}
		if institutionID != "" {
			inst, err := g.institutionRoles(ctx, email, institutionID)
			if err != nil {
				return Decision{}, err
			}
			// institution teachers are not course members until enrolled
			if inst.Has(RoleInstitutionAdmin) {
				return allow(RoleInstitutionAdmin), nil
			}
			if inst.Has(RoleStaff) && capability == CapRead {
				return allow(RoleStaff), nil
			}
		}

		course, err := g.courseRoles(ctx, email, resource.ID)
		if err != nil {
			return Decision{}, err
		}
		if d, ok := grant(course, courseGrants, capability); ok {
			return d, nil
		}
	}

	return deny(capability), nil
}

// Require is Authorize reduced to an error: ErrUnauthenticated, *Denied or a lookup failure
func (g *Gate) Require(ctx context.Context, id Identity, resource Resource, capability Capability) error {
	decision, err := g.Authorize(ctx, id, resource, capability)
	if err != nil {
		return err
	}
	switch decision.Reason {
	case ReasonNone:
		return nil
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	default:
		return &Denied{Resource: resource, Capability: capability, Message: decision.Message}
	}
}

// EffectiveRoles is the union of global roles, roles in the owning institution
// and course enrollment roles for the resource.
func (g *Gate) EffectiveRoles(ctx context.Context, id Identity, resource Resource) (RoleSet, error) {
	if !id.Authenticated() {
		return NewRoleSet(), ErrUnauthenticated
	}
	email := NormalizeEmail(id.Email)

	roles, err := g.globalRoles(ctx, email)
	if err != nil {
		return RoleSet{}, err
	}

	switch resource.Kind {
	case KindInstitution:
		inst, err := g.institutionRoles(ctx, email, resource.ID)
		if err != nil {
			return RoleSet{}, err
		}
		roles = roles.Union(inst)
	case KindCourse:
		institutionID, err := g.lookup.CourseInstitution(ctx, resource.ID)
		if err != nil {
			return RoleSet{}, fmt.Errorf("course institution lookup failed: %w", err)
		}
		if institutionID != "" {
			inst, err := g.institutionRoles(ctx, email, institutionID)
			if err != nil {
				return RoleSet{}, err
			}
			roles = roles.Union(inst)
		}
		course, err := g.courseRoles(ctx, email, resource.ID)
		if err != nil {
			return RoleSet{}, err
		}
		roles = roles.Union(course)
	}

	return roles, nil
}

func (g *Gate) globalRoles(ctx context.Context, email string) (RoleSet, error) {
	raw, err := g.lookup.GlobalRoles(ctx, email)
	if err != nil {
		return RoleSet{}, fmt.Errorf("global role lookup failed: %w", err)
	}
	return ParseRoleSet(raw), nil
}

func (g *Gate) institutionRoles(ctx context.Context, email, institutionID string) (RoleSet, error) {
	raw, err := g.lookup.InstitutionRoles(ctx, email, institutionID)
	if err != nil {
		return RoleSet{}, fmt.Errorf("institution role lookup failed: %w", err)
	}
	return ParseRoleSet(raw), nil
}

func (g *Gate) courseRoles(ctx context.Context, email, courseID string) (RoleSet, error) {
	raw, err := g.lookup.CourseRoles(ctx, email, courseID)
	if err != nil {
		return RoleSet{}, fmt.Errorf("enrollment lookup failed: %w", err)
	}
	return ParseRoleSet(raw), nil
}

func grant(roles RoleSet, grants map[Role]capSet, capability Capability) (Decision, bool) {
	var matched []Role
	for _, r := range roles.Slice() {
		if grants[r].has(capability) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return Decision{}, false
	}
	return allow(matched...), true
}

func deny(capability Capability) Decision {
	msg, ok := denyMessages[capability]
	if !ok {
		msg = "no tienes permiso para realizar esta acción"
	}
	return Decision{Reason: ReasonNotAuthorized, Message: msg}
}
