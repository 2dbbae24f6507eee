package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/repository"
	"github.com/quickcert/certbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type IdentityStore interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.Identity, error)
	FindByID(ctx context.Context, role models.Role, id bson.ObjectID) (*models.Identity, error)
	UpdatePassword(ctx context.Context, role models.Role, id bson.ObjectID, hash string, updatedAt time.Time) error
	Delete(ctx context.Context, role models.Role, id bson.ObjectID) error
	List(ctx context.Context, role models.Role) ([]models.Identity, error)
}

type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService owns identities and issues stateless session tokens. Tokens
// are not tracked server-side, so deleting an account does not revoke the
// tokens already handed out for it.
type AuthService struct {
	store  IdentityStore
	secret string
	ttl    time.Duration
	cost   int
	now    func() time.Time

	// decoy is checked against when an email is unknown, so that path costs
	// the same bcrypt work as a real comparison.
	decoy string
}

func NewAuthService(store IdentityStore, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	decoy, _ := utils.HashPassword(uuid.NewString(), cfg.BcryptCost)
	return &AuthService{
		store:  store,
		secret: cfg.Secret,
		ttl:    ttl,
		cost:   cfg.BcryptCost,
		now:    func() time.Time { return time.Now().UTC() },
		decoy:  decoy,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) CreateIdentity(ctx context.Context, role models.Role, email, password, fullName string) (*models.Identity, error) {
	if !role.Valid() {
		return nil, validationErr("unknown role %q", role)
	}
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || password == "" {
		return nil, validationErr("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationErr("invalid email address")
	}
	if role == models.RoleOfficer && fullName == "" {
		return nil, validationErr("fullName is required")
	}

	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	identity := &models.Identity{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     fullName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create %s: %w", role, err)
	}
	return identity, nil
}

func (s *AuthService) FindByEmail(ctx context.Context, role models.Role, email string) (*models.Identity, error) {
	identity, err := s.store.FindByEmail(ctx, role, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return identity, err
}

func (s *AuthService) DeleteIdentity(ctx context.Context, role models.Role, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.store.Delete(ctx, role, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", role, err)
	}
	return nil
}

func (s *AuthService) ListIdentities(ctx context.Context, role models.Role) ([]models.Identity, error) {
	items, err := s.store.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", role, err)
	}
	for i := range items {
		items[i].PasswordHash = ""
	}
	return items, nil
}

// ChangePassword replaces the caller's own password after checking the
// current one. Tokens issued before the change stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, p models.Principal, current, next string) error {
	if next == "" {
		return validationErr("new password is required")
	}
	oid, err := bson.ObjectIDFromHex(p.ID)
	if err != nil {
		return &InvalidTokenError{Cause: errors.New("token subject is not a valid id")}
	}

	identity, err := s.store.FindByID(ctx, p.Role, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find %s: %w", p.Role, err)
	}
	if err := utils.CheckPassword(identity.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(next, s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, p.Role, oid, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update %s password: %w", p.Role, err)
	}
	return nil
}

// Login checks credentials within one role's pool. Unknown email and wrong
// password give the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, role models.Role, email, password string) (string, error) {
	identity, err := s.store.FindByEmail(ctx, role, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = utils.CheckPassword(s.decoy, password)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find %s: %w", role, err)
	}
	if err := utils.CheckPassword(identity.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(identity.ID.Hex(), role)
}

// LoginAny tries the officer pool, then the admin pool, and reports which
// role the credentials belong to.
func (s *AuthService) LoginAny(ctx context.Context, email, password string) (string, models.Role, error) {
	for _, role := range []models.Role{models.RoleOfficer, models.RoleAdmin} {
		token, err := s.Login(ctx, role, email, password)
		if err == nil {
			return token, role, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return "", "", err
		}
	}
	return "", "", ErrInvalidCredentials
}

func (s *AuthService) IssueToken(subjectID string, role models.Role) (string, error) {
	token, err := utils.GenerateAccessToken(s.secret, subjectID, string(role), s.now(), s.ttl)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate verifies a token and returns the principal it names. The
// role claim is trusted as-is until the token expires.
func (s *AuthService) Authenticate(token string) (models.Principal, error) {
	claims, err := utils.ValidateToken(token, s.secret)
	if err != nil {
		return models.Principal{}, &InvalidTokenError{Cause: err}
	}
	role := models.Role(claims.Role)
	if !role.Valid() || claims.ID == "" {
		return models.Principal{}, &InvalidTokenError{Cause: errors.New("token has invalid claims")}
	}
	return models.Principal{ID: claims.ID, Role: role}, nil
}
