package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

func TestNewExternalIdentity(t *testing.T) {
	id, err := newExternalIdentity("sub-1", "  Docente@School.EDU ", " Ana Pérez ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Email != "docente@school.edu" {
		t.Errorf("Email = %q", id.Email)
	}
	if id.FullName != "Ana Pérez" {
		t.Errorf("FullName = %q", id.FullName)
	}

	if _, err := newExternalIdentity("sub-1", " ", "x", ""); !errors.Is(err, ErrMissingEmail) {
		t.Errorf("expected ErrMissingEmail, got %v", err)
	}
}

func TestNewIDTokenVerifier(t *testing.T) {
	ctx := context.Background()

	v, err := NewIDTokenVerifier(ctx, &config.Config{Auth: config.AuthConfig{Provider: "oidc"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.Verify(ctx, "token"); !errors.Is(err, ErrVerifierMissing) {
		t.Errorf("expected ErrVerifierMissing, got %v", err)
	}

	v, err = NewIDTokenVerifier(ctx, &config.Config{
		Auth:    config.AuthConfig{Provider: "casdoor"},
		Casdoor: config.CasdoorConfig{Endpoint: "http://casdoor.local", ClientID: "id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(*CasdoorVerifier); !ok {
		t.Errorf("expected *CasdoorVerifier, got %T", v)
	}

	if _, err := NewIDTokenVerifier(ctx, &config.Config{Auth: config.AuthConfig{Provider: "saml"}}); err == nil {
		t.Error("expected error for unsupported provider")
	}
}
