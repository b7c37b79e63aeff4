package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

// Role definitions are platform-level objects. Reading them needs
// iam.getPolicy at the platform root, writing needs iam.setPolicy.

type createRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	ParentID    *string  `json:"parent_id,omitempty"`
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.IAMSetPolicy); err != nil {
		writeError(w, err)
		return
	}
	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := s.rbac.CreateRole(r.Context(), rbac.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, role)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.IAMGetPolicy); err != nil {
		writeError(w, err)
		return
	}
	roles, err := s.store.Roles.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
	}
	respondList(w, roles, ids, false)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.IAMGetPolicy); err != nil {
		writeError(w, err)
		return
	}
	role, err := s.store.Roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, role)
}

type updateRoleRequest struct {
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	ParentID    *string  `json:"parent_id,omitempty"`
	ClearParent bool     `json:"clear_parent,omitempty"`
	Disabled    *bool    `json:"disabled,omitempty"`
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.IAMSetPolicy); err != nil {
		writeError(w, err)
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := s.rbac.UpdateRole(r.Context(), chi.URLParam(r, "id"), rbac.UpdateRoleInput{
		Description: req.Description,
		Permissions: req.Permissions,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		Disabled:    req.Disabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.IAMSetPolicy); err != nil {
		writeError(w, err)
		return
	}
	if err := s.rbac.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAssignmentRequest struct {
	TargetID   string `json:"target_id"`
	RoleID     string `json:"role_id"`
	ResourceID string `json:"resource_id"`
}

// handleCreateAssignment grants a role at a resource. The service runs
// the legality check against the caller, so no route-level authorize
// call is needed here.
func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req createAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TargetID == "" || req.RoleID == "" || req.ResourceID == "" {
		writeError(w, apperr.E(apperr.KindValidation, "target_id, role_id and resource_id are required"))
		return
	}
	assignment, err := s.rbac.CreateAssignment(r.Context(), s.subject(p), req.TargetID, req.RoleID, req.ResourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, assignment)
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		writeError(w, apperr.E(apperr.KindValidation, "resource_id is required"))
		return
	}
	if _, err := s.authorize(r.Context(), resourceID, permissions.IAMGetPolicy); err != nil {
		writeError(w, err)
		return
	}
	assignments, err := s.store.RoleAssignments.ListByResource(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(assignments))
	for i := range assignments {
		ids[i] = assignments[i].ID
	}
	respondList(w, assignments, ids, false)
}

func (s *Server) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.rbac.DeleteAssignment(r.Context(), s.subject(p), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
