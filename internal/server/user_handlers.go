package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/services/iam"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// handleRegister creates a user. Registration is open; admin-only
// deployments front this with their own gate.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.iam.Register(r.Context(), iam.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, newUserView(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.UserList); err != nil {
		writeError(w, err)
		return
	}
	users, hasMore, err := s.store.Users.List(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	views, ids := userViews(users)
	respondList(w, views, ids, hasMore)
}

// handleGetUser returns a user. Callers may always read themselves;
// reading others needs user.get at the platform.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p.ID != id {
		if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.UserGet); err != nil {
			writeError(w, err)
			return
		}
	}
	user, err := s.store.Users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newUserView(user))
}

type updateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p.ID != id {
		if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.UserUpdate); err != nil {
			writeError(w, err)
			return
		}
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.store.Users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Email != nil {
		if *req.Email == "" {
			user.Email = nil
		} else {
			user.Email = req.Email
		}
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if err := s.store.Users.Update(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	s.setUserDisabled(w, r, true)
}

func (s *Server) handleEnableUser(w http.ResponseWriter, r *http.Request) {
	s.setUserDisabled(w, r, false)
}

func (s *Server) setUserDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.UserDisable); err != nil {
		writeError(w, err)
		return
	}
	if err := s.iam.SetUserDisabled(r.Context(), chi.URLParam(r, "id"), disabled); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleChangePassword is self-service only; admins reset by other
// means.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p.ID != id {
		writeError(w, apperr.E(apperr.KindForbidden, "passwords can only be changed by their owner"))
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.iam.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
