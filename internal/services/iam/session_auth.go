package iam

import (
	"context"
	"log"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// SessionAuthenticator validates console session cookies. The session
// pins the access token minted at login; if that token no longer
// verifies or names a different user, the session is treated as
// unauthenticated rather than trusted on its own.
type SessionAuthenticator struct {
	signer *auth.Signer
	store  *repository.Store
}

// NewSessionAuthenticator builds the session authenticator.
func NewSessionAuthenticator(signer *auth.Signer, store *repository.Store) *SessionAuthenticator {
	return &SessionAuthenticator{signer: signer, store: store}
}

// Authenticate resolves a session cookie to a user principal.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token := req.cookie(auth.SessionCookieName)
	if token == "" {
		return nil, nil
	}

	session, err := a.store.Sessions.GetByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid session")
		}
		return nil, err
	}

	now := time.Now()
	if session.Revoked {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid session")
	}
	if session.IsExpired(now) {
		return nil, apperr.E(apperr.KindExpired, "session expired")
	}

	claims, err := a.signer.Verify(session.AccessToken)
	if err != nil || claims.Subject != session.UserID {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid session")
	}

	user, err := a.store.Users.GetByID(ctx, session.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid session")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid session")
	}

	// Best effort; a lost touch only skews idle tracking.
	if err := a.store.Sessions.Touch(ctx, session.ID, now); err != nil {
		log.Printf("session touch failed: %v", err)
	}

	return &Principal{
		ID:        user.ID,
		Type:      PrincipalTypeUser,
		Username:  user.Username,
		Email:     user.EmailOrEmpty(),
		TokenID:   claims.ID,
		SessionID: session.ID,
	}, nil
}
