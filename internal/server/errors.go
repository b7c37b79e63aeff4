package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

// statusForKind maps error kinds to REST status codes.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidRequest, apperr.KindInvalidScope,
		apperr.KindInvalidGrant, apperr.KindUnsupportedGrantType, apperr.KindUnsupportedResponseType:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated, apperr.KindInvalidClient:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the REST error envelope. Internal detail is logged,
// never returned.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		log.Printf("request failed: %v", err)
	}
	respond(w, statusForKind(kind), map[string]any{
		"error": map[string]string{
			"type":    kind.String(),
			"message": safeMessage(kind, err),
		},
	})
}

func safeMessage(kind apperr.Kind, err error) string {
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		return "internal error"
	}
	return apperr.Message(err)
}

// oauthErrorCode maps error kinds to RFC 6749 error codes for the
// protocol endpoints.
func oauthErrorCode(kind apperr.Kind) string {
	switch kind {
	case apperr.KindInvalidClient:
		return "invalid_client"
	case apperr.KindInvalidGrant:
		return "invalid_grant"
	case apperr.KindInvalidScope:
		return "invalid_scope"
	case apperr.KindUnsupportedGrantType:
		return "unsupported_grant_type"
	case apperr.KindUnsupportedResponseType:
		return "unsupported_response_type"
	case apperr.KindForbidden:
		return "unauthorized_client"
	case apperr.KindUnauthenticated:
		return "invalid_token"
	default:
		return "invalid_request"
	}
}

// writeOAuthError renders the RFC 6749 JSON error envelope.
// invalid_client gets 401 with a challenge per section 5.2; everything
// else is 400.
func writeOAuthError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		log.Printf("oauth request failed: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{
			"error":             "server_error",
			"error_description": "internal error",
		})
		return
	}

	status := http.StatusBadRequest
	if kind == apperr.KindInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
		status = http.StatusUnauthorized
	}
	if kind == apperr.KindUnauthenticated {
		status = http.StatusUnauthorized
	}
	respond(w, status, map[string]string{
		"error":             oauthErrorCode(kind),
		"error_description": apperr.Message(err),
	})
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}
