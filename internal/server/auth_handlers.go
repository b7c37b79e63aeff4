package server

import (
	"net/http"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	User         *userView `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
}

// handleLogin verifies a password credential, starts a console session,
// and returns the first-party token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, apperr.E(apperr.KindValidation, "identifier and password are required"))
		return
	}

	result, err := s.iam.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	_, cookieToken, err := s.iam.StartSession(r.Context(), result)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    cookieToken,
		Path:     "/",
		Expires:  time.Now().Add(auth.SessionDuration),
		HttpOnly: true,
		Secure:   s.cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})
	respond(w, http.StatusOK, loginResponse{
		User:         newUserView(result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
	})
}

// handleLogout blacklists the presenting token and ends the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.iam.Logout(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller's identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"id":          p.ID,
		"type":        p.Type,
		"username":    p.Username,
		"email":       p.Email,
		"resource_id": p.ResourceID,
		"scope":       p.Scope,
	})
}

// handleVerify reports whether the presented credential is live. The
// authenticator chain already resolved it, so a reachable principal
// means the credential verified; anonymous requests get 401.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"active":       true,
		"principal_id": p.ID,
		"type":         p.Type,
	})
}

// handleMyPermissions lists the caller's effective permissions at a
// resource.
func (s *Server) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		resourceID = models.PlatformResourceID
	}
	perms, err := s.rbac.Evaluator().Permissions(r.Context(), s.subject(p), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"permissions": perms,
	})
}

type evaluateRequest struct {
	ResourceID  string   `json:"resource_id"`
	Permissions []string `json:"permissions"`
}

// handleEvaluate answers an explicit allow/deny question for the caller.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ResourceID == "" || len(req.Permissions) == 0 {
		writeError(w, apperr.E(apperr.KindValidation, "resource_id and permissions are required"))
		return
	}
	decision, err := s.rbac.Evaluator().Evaluate(r.Context(), s.subject(p), req.ResourceID, req.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"allowed": decision.Allowed})
}

// handleHealth reports liveness and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
