package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
)

type createOrganizationRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.OrganizationCreate); err != nil {
		writeError(w, err)
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, apperr.E(apperr.KindValidation, "name is required"))
		return
	}
	org := &models.Organization{
		ID:          bunx.NewUUIDv7(),
		Name:        req.Name,
		DisplayName: req.DisplayName,
	}
	if err := s.store.Organizations.Create(r.Context(), org); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, org)
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.OrganizationList); err != nil {
		writeError(w, err)
		return
	}
	orgs, hasMore, err := s.store.Organizations.List(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(orgs))
	for i := range orgs {
		ids[i] = orgs[i].ID
	}
	respondList(w, orgs, ids, hasMore)
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.OrganizationGet); err != nil {
		writeError(w, err)
		return
	}
	org, err := s.store.Organizations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, org)
}

type updateTenancyRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Disabled    *bool   `json:"disabled,omitempty"`
}

func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.OrganizationUpdate); err != nil {
		writeError(w, err)
		return
	}
	var req updateTenancyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	org, err := s.store.Organizations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.DisplayName != nil {
		org.DisplayName = *req.DisplayName
	}
	if req.Disabled != nil {
		org.Disabled = *req.Disabled
	}
	if err := s.store.Organizations.Update(r.Context(), org); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, org)
}

func (s *Server) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.OrganizationDelete); err != nil {
		writeError(w, err)
		return
	}
	// Tenancy nodes are soft disabled, never hard deleted.
	org, err := s.store.Organizations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	org.Disabled = true
	if err := s.store.Organizations.Update(r.Context(), org); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), orgID, permissions.ProjectCreate); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.store.Organizations.GetByID(r.Context(), orgID); err != nil {
		writeError(w, err)
		return
	}
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, apperr.E(apperr.KindValidation, "name is required"))
		return
	}
	project := &models.Project{
		ID:             bunx.NewUUIDv7(),
		OrganizationID: orgID,
		Name:           req.Name,
		DisplayName:    req.DisplayName,
	}
	if err := s.store.Projects.Create(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), orgID, permissions.ProjectList); err != nil {
		writeError(w, err)
		return
	}
	projects, hasMore, err := s.store.Projects.ListByOrganization(r.Context(), orgID, pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	respondList(w, projects, ids, hasMore)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.ProjectGet); err != nil {
		writeError(w, err)
		return
	}
	project, err := s.store.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.ProjectUpdate); err != nil {
		writeError(w, err)
		return
	}
	var req updateTenancyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	project, err := s.store.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.DisplayName != nil {
		project.DisplayName = *req.DisplayName
	}
	if req.Disabled != nil {
		project.Disabled = *req.Disabled
	}
	if err := s.store.Projects.Update(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), id, permissions.ProjectDelete); err != nil {
		writeError(w, err)
		return
	}
	project, err := s.store.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	project.Disabled = true
	if err := s.store.Projects.Update(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
