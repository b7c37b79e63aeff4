package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

// writeUnauthenticated renders an authentication failure. Expired
// sessions get 410 so consoles can distinguish "log in again" from
// "credentials rejected".
func writeUnauthenticated(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if apperr.IsKind(err, apperr.KindExpired) {
		status = http.StatusGone
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"type":    apperr.KindOf(err).String(),
			"message": apperr.Message(err),
		},
	})
}
