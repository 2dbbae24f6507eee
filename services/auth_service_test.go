package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/repository/repotest"
	"github.com/quickcert/certbackend/utils"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestAuth() *AuthService {
	return NewAuthService(repotest.NewIdentities(), AuthConfig{
		Secret:     testSecret,
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func TestCreateIdentityStoresHash(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	officer, err := s.CreateIdentity(ctx, models.RoleOfficer, "  Ada@Registry.gov ", "pw-123456", "Ada Obi")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if officer.Email != "ada@registry.gov" {
		t.Fatalf("email not normalised: %q", officer.Email)
	}
	if officer.PasswordHash == "" || officer.PasswordHash == "pw-123456" {
		t.Fatalf("password not hashed")
	}
	if officer.ID.IsZero() {
		t.Fatalf("id not assigned")
	}

	found, err := s.FindByEmail(ctx, models.RoleOfficer, "ADA@registry.gov")
	if err != nil || found.ID != officer.ID {
		t.Fatalf("FindByEmail() = %+v, %v", found, err)
	}
	if _, err := s.FindByEmail(ctx, models.RoleAdmin, "ada@registry.gov"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("admin pool: got %v", err)
	}
}

func TestCreateIdentityDuplicateEmail(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	if _, err := s.CreateIdentity(ctx, models.RoleOfficer, "dup@registry.gov", "pw", "First"); err != nil {
		t.Fatalf("create error: %v", err)
	}
	_, err := s.CreateIdentity(ctx, models.RoleOfficer, "DUP@registry.gov", "pw2", "Second")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// pools are independent
	if _, err := s.CreateIdentity(ctx, models.RoleAdmin, "dup@registry.gov", "pw", ""); err != nil {
		t.Fatalf("same email in admin pool should be allowed: %v", err)
	}
}

func TestCreateIdentityValidation(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	tests := []struct {
		name     string
		role     models.Role
		email    string
		password string
		fullName string
	}{
		{"missing email", models.RoleAdmin, "", "pw", ""},
		{"missing password", models.RoleAdmin, "a@b.c", "", ""},
		{"bad email", models.RoleAdmin, "not-an-email", "pw", ""},
		{"officer without name", models.RoleOfficer, "a@b.c", "pw", "  "},
		{"unknown role", models.Role("clerk"), "a@b.c", "pw", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateIdentity(ctx, tt.role, tt.email, tt.password, tt.fullName)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestLoginIssuesRoleToken(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	officer, err := s.CreateIdentity(ctx, models.RoleOfficer, "o@registry.gov", "pw-1", "Officer One")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	token, err := s.Login(ctx, models.RoleOfficer, "O@registry.gov", "pw-1")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}

	p, err := s.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate error: %v", err)
	}
	if p.ID != officer.ID.Hex() || p.Role != models.RoleOfficer {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	if _, err := s.CreateIdentity(ctx, models.RoleAdmin, "root@registry.gov", "pw-1", ""); err != nil {
		t.Fatalf("create error: %v", err)
	}

	if _, err := s.Login(ctx, models.RoleAdmin, "root@registry.gov", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := s.Login(ctx, models.RoleAdmin, "nobody@registry.gov", "pw-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	// an admin is not an officer
	if _, err := s.Login(ctx, models.RoleOfficer, "root@registry.gov", "pw-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong pool: got %v", err)
	}
}

func TestLoginAny(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	if _, err := s.CreateIdentity(ctx, models.RoleAdmin, "root@registry.gov", "admin-pw", ""); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, models.RoleOfficer, "clerk@registry.gov", "officer-pw", "Clerk"); err != nil {
		t.Fatalf("create error: %v", err)
	}

	_, role, err := s.LoginAny(ctx, "root@registry.gov", "admin-pw")
	if err != nil || role != models.RoleAdmin {
		t.Fatalf("admin login: role=%q err=%v", role, err)
	}
	token, role, err := s.LoginAny(ctx, "clerk@registry.gov", "officer-pw")
	if err != nil || role != models.RoleOfficer {
		t.Fatalf("officer login: role=%q err=%v", role, err)
	}
	if p, err := s.Authenticate(token); err != nil || p.Role != models.RoleOfficer {
		t.Fatalf("officer token: %+v %v", p, err)
	}
	if _, _, err := s.LoginAny(ctx, "clerk@registry.gov", "admin-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	s := newTestAuth()
	s.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := s.IssueToken("64b7f0c2a1b2c3d4e5f60718", models.RoleOfficer)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	_, err = s.Authenticate(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected library message, got %q", err.Error())
	}
}

func TestAuthenticateRejectsForeignTokens(t *testing.T) {
	s := newTestAuth()

	forged, err := utils.GenerateAccessToken("other-secret", "64b7f0c2a1b2c3d4e5f60718", "admin", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := s.Authenticate(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged token: got %v", err)
	}

	unknownRole, err := utils.GenerateAccessToken(testSecret, "64b7f0c2a1b2c3d4e5f60718", "superuser", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := s.Authenticate(unknownRole); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown role: got %v", err)
	}

	if _, err := s.Authenticate("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v", err)
	}
}

func TestDeleteAndListIdentities(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	officer, err := s.CreateIdentity(ctx, models.RoleOfficer, "gone@registry.gov", "pw", "Gone Soon")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	items, err := s.ListIdentities(ctx, models.RoleOfficer)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v %v", items, err)
	}
	if items[0].PasswordHash != "" {
		t.Fatalf("list leaked password hash")
	}

	if err := s.DeleteIdentity(ctx, models.RoleOfficer, officer.ID.Hex()); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if err := s.DeleteIdentity(ctx, models.RoleOfficer, officer.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if err := s.DeleteIdentity(ctx, models.RoleOfficer, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bad id: got %v", err)
	}
	if _, err := s.Login(ctx, models.RoleOfficer, "gone@registry.gov", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deleted officer logged in: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestAuth()
	ctx := context.Background()

	officer, err := s.CreateIdentity(ctx, models.RoleOfficer, "o@registry.gov", "old-password", "Officer")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	p := models.Principal{ID: officer.ID.Hex(), Role: models.RoleOfficer}

	if err := s.ChangePassword(ctx, p, "wrong", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v", err)
	}
	if err := s.ChangePassword(ctx, p, "old-password", "new-password"); err != nil {
		t.Fatalf("change error: %v", err)
	}
	if _, err := s.Login(ctx, models.RoleOfficer, "o@registry.gov", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := s.Login(ctx, models.RoleOfficer, "o@registry.gov", "new-password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// the same id is unknown in the admin pool
	if err := s.ChangePassword(ctx, models.Principal{ID: p.ID, Role: models.RoleAdmin}, "new-password", "x-password"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong pool: got %v", err)
	}
}

func TestUnknownEmailUsesConfiguredCost(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret, BcryptCost: bcrypt.MinCost + 1}
	s := NewAuthService(repotest.NewIdentities(), cfg)

	cost, err := bcrypt.Cost([]byte(s.decoy))
	if err != nil {
		t.Fatalf("decoy hash: %v", err)
	}
	if cost != cfg.BcryptCost {
		t.Fatalf("decoy cost = %d, want %d", cost, cfg.BcryptCost)
	}

	identity, err := s.CreateIdentity(context.Background(), models.RoleOfficer, "known@registry.gov", "pw-1", "Known")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if stored, _ := bcrypt.Cost([]byte(identity.PasswordHash)); stored != cost {
		t.Fatalf("stored hash cost = %d, decoy cost = %d", stored, cost)
	}

	if _, err := s.Login(context.Background(), models.RoleOfficer, "unknown@registry.gov", "pw-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
}
