package iam

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// Service owns identity lifecycle: registration, password login, console
// sessions, logout blacklisting, and API key management.
type Service struct {
	store       *repository.Store
	signer      *auth.Signer
	revocations cache.RevocationSet
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewService builds the IAM service.
func NewService(store *repository.Store, signer *auth.Signer, revocations cache.RevocationSet, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:       store,
		signer:      signer,
		revocations: revocations,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// RegisterInput carries a self-registration or admin-created user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
}

// Register validates the credential policy and creates the user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := auth.ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:             bunx.NewUUIDv7(),
		Username:       in.Username,
		FullName:       in.FullName,
		Phone:          in.Phone,
		HashedPassword: hashed,
	}
	if in.Email != "" {
		if !strings.Contains(in.Email, "@") {
			return nil, apperr.E(apperr.KindValidation, "invalid email address")
		}
		user.Email = &in.Email
	}

	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("user registered: %s", user.Username)
	return user, nil
}

// LoginResult is the outcome of a successful password login.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Login verifies a password credential and mints a first-party token
// pair. The identifier is treated as an email when it contains '@',
// otherwise as a username. Lookup and verification failures collapse to
// one message so the endpoint cannot be used for account enumeration.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.store.Users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.store.Users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid username/email or password")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid username/email or password")
	}
	if err := auth.VerifyPassword(user.HashedPassword, password); err != nil {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid username/email or password")
	}

	access, err := s.mintToken(user.ID, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.mintToken(user.ID, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) mintToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return s.signer.Sign(auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.signer.Issuer(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        bunx.NewUUIDv7(),
		},
	})
}

// StartSession creates a console session pinned to the login token pair
// and returns the cookie value.
func (s *Service) StartSession(ctx context.Context, login *LoginResult) (*models.Session, string, error) {
	token, tokenHash, err := auth.GenerateBearerToken()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "create session", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:           bunx.NewUUIDv7(),
		UserID:       login.User.ID,
		TokenHash:    tokenHash,
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		UserSnapshot: models.Metadata{
			"username":  login.User.Username,
			"email":     login.User.EmailOrEmpty(),
			"full_name": login.User.FullName,
		},
		ExpiresAt:  now.Add(auth.SessionDuration),
		LastUsedAt: now,
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// Logout blacklists the presenting token's jti until it would expire and
// revokes the backing session when one exists. Idempotent.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p.TokenID != "" {
		entry := &models.RevokedJTI{
			JTI:       p.TokenID,
			Subject:   p.ID,
			Exp:       time.Now().Add(s.accessTTL),
			RevokedAt: time.Now(),
			RevokedBy: &p.ID,
		}
		if err := s.store.RevokedJTIs.Revoke(ctx, entry); err != nil {
			return err
		}
		if err := s.revocations.Revoke(ctx, p.TokenID, s.accessTTL); err != nil {
			log.Printf("revocation cache write failed: %v", err)
		}
	}
	if p.SessionID != "" {
		if err := s.store.Sessions.Revoke(ctx, p.SessionID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return err
		}
	}
	return nil
}

// ChangePassword verifies the current password before applying the new
// one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, updated string) error {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(user.HashedPassword, current); err != nil {
		return err
	}
	if err := auth.ValidatePassword(updated); err != nil {
		return err
	}
	hashed, err := auth.HashPassword(updated)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed
	return s.store.Users.Update(ctx, user)
}

// SetUserDisabled flips the disabled flag. Users are never deleted.
func (s *Service) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Disabled = disabled
	return s.store.Users.Update(ctx, user)
}

// CreateAPIKeyInput carries an API key creation request.
type CreateAPIKeyInput struct {
	CreatorID  string
	ResourceID string
	Name       string
	Decorator  string
	ExpiresAt  *time.Time
}

// CreateAPIKeyResult pairs the stored record with the plaintext shown
// exactly once.
type CreateAPIKeyResult struct {
	Key       *models.APIKey
	Plaintext string
}

// CreateAPIKey mints and stores a new key scoped to one resource.
func (s *Service) CreateAPIKey(ctx context.Context, in CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if in.ResourceID == "" {
		return nil, apperr.E(apperr.KindValidation, "resource_id is required")
	}

	generated, err := auth.GenerateAPIKey(in.Decorator)
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		ID:         bunx.NewUUIDv7(),
		UserID:     in.CreatorID,
		ResourceID: in.ResourceID,
		Name:       in.Name,
		Prefix:     generated.Prefix,
		Salt:       generated.Salt,
		HashedKey:  generated.Hash,
		Decorator:  generated.Decorator,
		ExpiresAt:  in.ExpiresAt,
	}
	if err := s.store.APIKeys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &CreateAPIKeyResult{Key: key, Plaintext: generated.Plaintext}, nil
}

// RotateAPIKey replaces the secret material of an existing key, keeping
// its identity, scope, and assignments.
func (s *Service) RotateAPIKey(ctx context.Context, keyID string) (*CreateAPIKeyResult, error) {
	key, err := s.store.APIKeys.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}

	generated, err := auth.GenerateAPIKey(key.Decorator)
	if err != nil {
		return nil, err
	}
	key.Prefix = generated.Prefix
	key.Salt = generated.Salt
	key.HashedKey = generated.Hash

	if err := s.store.APIKeys.Update(ctx, key); err != nil {
		return nil, err
	}
	return &CreateAPIKeyResult{Key: key, Plaintext: generated.Plaintext}, nil
}

// CleanupExpired deletes expired sessions, codes, invites, and spent
// blacklist entries. Intended for a periodic background run.
func (s *Service) CleanupExpired(ctx context.Context) {
	now := time.Now()
	if n, err := s.store.Sessions.DeleteExpired(ctx, now); err != nil {
		log.Printf("session cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("deleted %d expired sessions", n)
	}
	if n, err := s.store.Codes.DeleteExpired(ctx, now); err != nil {
		log.Printf("authorization code cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("deleted %d expired authorization codes", n)
	}
	if n, err := s.store.Invites.DeleteExpired(ctx, now); err != nil {
		log.Printf("invite cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("deleted %d expired invites", n)
	}
	if n, err := s.store.RevokedJTIs.DeleteExpired(ctx, now); err != nil {
		log.Printf("revoked jti cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("deleted %d spent revocations", n)
	}
}
