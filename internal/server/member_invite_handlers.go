package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/services/invite"
)

// Member and invite handlers are shared by the organization and project
// route groups; the {id} parameter names the tenancy node either way.

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), resourceID, permissions.MemberList); err != nil {
		writeError(w, err)
		return
	}
	members, hasMore, err := s.store.Members.ListByResource(r.Context(), resourceID, pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(members))
	for i := range members {
		ids[i] = members[i].ID
	}
	respondList(w, members, ids, hasMore)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), resourceID, permissions.MemberRemove); err != nil {
		writeError(w, err)
		return
	}
	member, err := s.store.Members.GetByID(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if member.ResourceID != resourceID {
		writeError(w, apperr.E(apperr.KindNotFound, "member not found"))
		return
	}
	if err := s.store.Members.Delete(r.Context(), member.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createInviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	p, err := s.authorize(r.Context(), resourceID, permissions.InviteCreate)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inv, err := s.invites.Create(r.Context(), invite.CreateInput{
		ResourceID: resourceID,
		Email:      req.Email,
		InvitedBy:  p.ID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, newInviteView(inv))
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), resourceID, permissions.InviteList); err != nil {
		writeError(w, err)
		return
	}
	invites, err := s.store.Invites.ListByResource(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]inviteView, len(invites))
	ids := make([]string, len(invites))
	for i := range invites {
		views[i] = *newInviteView(&invites[i])
		ids[i] = invites[i].ID
	}
	respondList(w, views, ids, false)
}

func (s *Server) handleDeleteInvite(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), resourceID, permissions.InviteDelete); err != nil {
		writeError(w, err)
		return
	}
	if err := s.invites.Revoke(r.Context(), chi.URLParam(r, "inviteID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

// handleAcceptInvite redeems an invite for the authenticated caller.
// The caller's email must match the invite when one is on record.
func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p.IsAPIKey() {
		writeError(w, apperr.E(apperr.KindForbidden, "invites can only be accepted by users"))
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Token == "" {
		writeError(w, apperr.E(apperr.KindValidation, "token is required"))
		return
	}
	member, err := s.invites.Accept(r.Context(), invite.AcceptInput{
		Token:  req.Token,
		UserID: p.ID,
		Email:  p.Email,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, member)
}
