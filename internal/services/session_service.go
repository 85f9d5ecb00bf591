package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/classroom-service/internal/auth"
	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// errNotInvited is shown when a valid identity has neither a profile nor a whitelist entry
const errNotInvited = "no tienes permiso para acceder: tu email no está registrado en la plataforma"

type sessionService struct {
	*baseService
	sessions *auth.SessionManager
	verifier auth.IDTokenVerifier
}

func NewSessionService(deps Dependencies) SessionService {
	return &sessionService{
		baseService: newBaseService(deps),
		sessions:    deps.Sessions,
		verifier:    deps.Verifier,
	}
}

// Login exchanges an identity provider token for a session. The email must
// already have a profile or a whitelist entry; the latter creates the profile.
func (s *sessionService) Login(ctx context.Context, req *LoginRequest) (*SessionResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if s.verifier == nil || s.sessions == nil {
		return nil, NewUpstreamError("identity", "el inicio de sesión no está configurado", nil)
	}

	identity, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidIDToken), errors.Is(err, auth.ErrMissingEmail):
			s.logger.Warn("Rejected identity token", "error", err)
			return nil, ErrUnauthenticated
		default:
			return nil, NewUpstreamError("identity", "no se pudo verificar la identidad", err)
		}
	}

	profile, err := s.resolveProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.sessions.Issue(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session created", "email", profile.Email, "session_id", claims.SessionID())
	return &SessionResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   profile,
		Roles:     canonicalRoles(profile.RoleNames()),
	}, nil
}

func (s *sessionService) resolveProfile(ctx context.Context, identity *auth.ExternalIdentity) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByEmail(ctx, nil, identity.Email)
	if err == nil {
		if s.refreshProfile(profile, identity) {
			if err := s.repo.Profile().Update(ctx, nil, profile); err != nil {
				s.logger.Warn("Failed to refresh profile", "email", profile.Email, "error", err)
			}
		}
		return profile, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	entry, err := s.repo.Whitelist().GetByEmail(ctx, nil, identity.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("Sign-in attempt from unknown email", "email", identity.Email)
			return nil, NewPermissionError(identity.Email, "", "session", "login", errNotInvited)
		}
		return nil, fmt.Errorf("failed to check whitelist: %w", err)
	}

	profile = &models.Profile{
		Email:    identity.Email,
		FullName: identity.FullName,
	}
	if identity.AvatarURL != "" {
		profile.AvatarURL = ptrTo(identity.AvatarURL)
	}
	profile.SetRoles(canonicalRoles(entry.RoleNames()))

	if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	s.logger.Info("Profile created from whitelist", "email", profile.Email, "profile_id", profile.ID)
	return profile, nil
}

// refreshProfile fills empty profile fields from the identity provider
func (s *sessionService) refreshProfile(profile *models.Profile, identity *auth.ExternalIdentity) bool {
	changed := false
	if profile.FullName == "" && identity.FullName != "" {
		profile.FullName = identity.FullName
		changed = true
	}
	if profile.AvatarURL == nil && identity.AvatarURL != "" {
		profile.AvatarURL = ptrTo(identity.AvatarURL)
		changed = true
	}
	return changed
}

func (s *sessionService) Logout(ctx context.Context, claims *auth.SessionClaims) error {
	if s.sessions == nil || claims == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		// the cookie is cleared anyway
		s.logger.Warn("Failed to revoke session", "session_id", claims.SessionID(), "error", err)
	}
	return nil
}

// Resolve turns a session token into the caller identity
func (s *sessionService) Resolve(ctx context.Context, token string) (authz.Identity, *auth.SessionClaims, error) {
	if s.sessions == nil || token == "" {
		return authz.Identity{}, nil, ErrUnauthenticated
	}
	claims, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return authz.Identity{}, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return authz.Identity{UserID: claims.UserID, Email: claims.Email}, claims, nil
}

func (s *sessionService) Me(ctx context.Context, caller authz.Identity) (*MeResponse, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	profile, err := s.repo.Profile().GetByEmail(ctx, nil, caller.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	roles, err := s.gate.EffectiveRoles(ctx, caller, authz.Platform())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	return &MeResponse{
		UserID:    profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		Roles:     roles.Strings(),
	}, nil
}
