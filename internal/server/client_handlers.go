package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
)

// Client registration is an administrative action at the platform root,
// not the self-service dynamic registration of RFC 7591. Registered
// clients are immutable except for disabling and secret rotation.

type createClientRequest struct {
	ClientID     string   `json:"client_id"`
	Name         string   `json:"name"`
	ClientType   string   `json:"client_type"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	GrantTypes   []string `json:"grant_types"`
	ProjectID    *string  `json:"project_id,omitempty"`
}

type clientSecretResponse struct {
	*clientView
	// Secret is the plaintext client secret, returned exactly once.
	Secret string `json:"secret,omitempty"`
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.ClientCreate); err != nil {
		writeError(w, err)
		return
	}
	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.oauth.RegisterClient(r.Context(), oauth2svc.RegisterClientInput{
		ClientID:     req.ClientID,
		Name:         req.Name,
		ClientType:   req.ClientType,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		GrantTypes:   req.GrantTypes,
		ProjectID:    req.ProjectID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, clientSecretResponse{
		clientView: newClientView(result.Client),
		Secret:     result.Secret,
	})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.ClientList); err != nil {
		writeError(w, err)
		return
	}
	clients, hasMore, err := s.store.Clients.List(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]clientView, len(clients))
	ids := make([]string, len(clients))
	for i := range clients {
		views[i] = *newClientView(&clients[i])
		ids[i] = clients[i].ID
	}
	respondList(w, views, ids, hasMore)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.ClientGet); err != nil {
		writeError(w, err)
		return
	}
	client, err := s.store.Clients.GetByClientID(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newClientView(client))
}

func (s *Server) handleRotateClientSecret(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.ClientUpdate); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.oauth.RotateClientSecret(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, clientSecretResponse{
		clientView: newClientView(result.Client),
		Secret:     result.Secret,
	})
}

func (s *Server) handleDisableClient(w http.ResponseWriter, r *http.Request) {
	s.setClientDisabled(w, r, true)
}

func (s *Server) handleEnableClient(w http.ResponseWriter, r *http.Request) {
	s.setClientDisabled(w, r, false)
}

func (s *Server) setClientDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	if _, err := s.authorize(r.Context(), models.PlatformResourceID, permissions.ClientDisable); err != nil {
		writeError(w, err)
		return
	}
	client, err := s.oauth.SetClientDisabled(r.Context(), chi.URLParam(r, "clientID"), disabled)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newClientView(client))
}
