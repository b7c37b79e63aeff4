package invite

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/mail"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// InviteTTL bounds how long an invite token stays redeemable.
const InviteTTL = 15 * time.Minute

// Service orchestrates scoped membership invites. Acceptance is a
// single transaction over membership, baseline role, and invite removal
// so a failed step leaves the invite redeemable.
type Service struct {
	store     *repository.Store
	mailer    mail.Mailer
	serverURL string
}

// NewService builds the invite orchestrator.
func NewService(store *repository.Store, mailer mail.Mailer, serverURL string) *Service {
	return &Service{store: store, mailer: mailer, serverURL: serverURL}
}

// CreateInput carries an invite request for one resource.
type CreateInput struct {
	ResourceID string
	Email      string
	InvitedBy  string
}

// Create issues an invite for (email, resource). A live invite for the
// same pair is returned as-is; an expired one is replaced. Mail dispatch
// is best effort and never fails the call.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Invite, error) {
	if !strings.Contains(in.Email, "@") {
		return nil, apperr.E(apperr.KindValidation, "invalid email address")
	}
	if _, err := s.resolveResource(ctx, in.ResourceID); err != nil {
		return nil, err
	}

	now := time.Now()
	existing, err := s.store.Invites.GetByEmailAndResource(ctx, in.Email, in.ResourceID)
	switch {
	case err == nil && !existing.IsExpired(now):
		return existing, nil
	case err == nil:
		if err := s.store.Invites.Delete(ctx, existing.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
	case !apperr.IsKind(err, apperr.KindNotFound):
		return nil, err
	}

	token, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create invite", err)
	}
	inv := &models.Invite{
		ID:             bunx.NewUUIDv7(),
		ResourceID:     in.ResourceID,
		Email:          in.Email,
		InvitedBy:      in.InvitedBy,
		TemporaryToken: token,
		ExpiresAt:      now.Add(InviteTTL),
	}
	if err := s.store.Invites.Create(ctx, inv); err != nil {
		return nil, err
	}

	msg := mail.Message{
		To:      inv.Email,
		Subject: "You have been invited",
		Body: fmt.Sprintf("You have been invited to join a resource.\n\nAccept within %d minutes:\n%s/invites/accept?token=%s\n",
			int(InviteTTL.Minutes()), s.serverURL, inv.TemporaryToken),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("invite mail to %s failed: %v", inv.Email, err)
	}
	return inv, nil
}

// AcceptInput identifies the invite being redeemed. Email and ResourceID
// are optional cross-checks against the stored invite.
type AcceptInput struct {
	Token      string
	UserID     string
	Email      string
	ResourceID string
}

// Accept redeems an invite: membership plus the baseline viewer role for
// the resource type, then the invite is deleted. All three writes commit
// or none do.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*models.Member, error) {
	inv, err := s.store.Invites.GetByToken(ctx, in.Token)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindNotFound, "unknown invite token")
		}
		return nil, err
	}
	if in.Email != "" && !strings.EqualFold(in.Email, inv.Email) {
		return nil, apperr.E(apperr.KindForbidden, "invite was issued to a different email")
	}
	if in.ResourceID != "" && in.ResourceID != inv.ResourceID {
		return nil, apperr.E(apperr.KindNotFound, "unknown invite token")
	}
	if inv.IsExpired(time.Now()) {
		return nil, apperr.E(apperr.KindExpired, "invite expired")
	}

	kind, err := s.resolveResource(ctx, inv.ResourceID)
	if err != nil {
		return nil, err
	}
	baselineRole := permissions.RoleOrganizationViewer
	if kind == resourceProject {
		baselineRole = permissions.RoleProjectViewer
	}

	member := &models.Member{
		ID:         bunx.NewUUIDv7(),
		ResourceID: inv.ResourceID,
		UserID:     in.UserID,
		JoinedAt:   time.Now(),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if err := tx.Members.Create(ctx, member); err != nil {
			return err
		}
		role, err := tx.Roles.GetByName(ctx, baselineRole)
		if err != nil {
			return err
		}
		if err := tx.RoleAssignments.Create(ctx, &models.RoleAssignment{
			ID:         bunx.NewUUIDv7(),
			TargetID:   in.UserID,
			RoleID:     role.ID,
			ResourceID: inv.ResourceID,
			AssignedAt: time.Now(),
			AssignedBy: inv.InvitedBy,
		}); err != nil {
			return err
		}
		return tx.Invites.Delete(ctx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Revoke withdraws a pending invite.
func (s *Service) Revoke(ctx context.Context, inviteID string) error {
	return s.store.Invites.Delete(ctx, inviteID)
}

type resourceKind int

const (
	resourceOrganization resourceKind = iota
	resourceProject
)

// resolveResource classifies an invite target. Invites never target the
// platform root.
func (s *Service) resolveResource(ctx context.Context, resourceID string) (resourceKind, error) {
	if _, err := s.store.Projects.GetByID(ctx, resourceID); err == nil {
		return resourceProject, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return 0, err
	}
	if _, err := s.store.Organizations.GetByID(ctx, resourceID); err == nil {
		return resourceOrganization, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return 0, err
	}
	return 0, apperr.E(apperr.KindNotFound, "unknown resource")
}
