package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/services/iam"
)

type createAPIKeyRequest struct {
	Name      string     `json:"name"`
	Decorator string     `json:"decorator,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type apiKeyCreatedResponse struct {
	apiKeyView
	// Key is the plaintext, returned exactly once.
	Key string `json:"key"`
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	p, err := s.authorize(r.Context(), resourceID, permissions.APIKeyCreate)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.store.Projects.GetByID(r.Context(), resourceID); err != nil {
		writeError(w, err)
		return
	}
	var req createAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.iam.CreateAPIKey(r.Context(), iam.CreateAPIKeyInput{
		CreatorID:  p.ID,
		ResourceID: resourceID,
		Name:       req.Name,
		Decorator:  req.Decorator,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, apiKeyCreatedResponse{
		apiKeyView: *newAPIKeyView(result.Key),
		Key:        result.Plaintext,
	})
}

func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	if _, err := s.authorize(r.Context(), resourceID, permissions.APIKeyList); err != nil {
		writeError(w, err)
		return
	}
	keys, hasMore, err := s.store.APIKeys.ListByResource(r.Context(), resourceID, pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]apiKeyView, len(keys))
	ids := make([]string, len(keys))
	for i := range keys {
		views[i] = *newAPIKeyView(&keys[i])
		ids[i] = keys[i].ID
	}
	respondList(w, views, ids, hasMore)
}

func (s *Server) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.store.APIKeys.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.authorize(r.Context(), key.ResourceID, permissions.APIKeyRotate); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.iam.RotateAPIKey(r.Context(), key.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, apiKeyCreatedResponse{
		apiKeyView: *newAPIKeyView(result.Key),
		Key:        result.Plaintext,
	})
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.store.APIKeys.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.authorize(r.Context(), key.ResourceID, permissions.APIKeyDelete); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.APIKeys.Delete(r.Context(), key.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
