package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/opentrusty/opentrusty/internal/repository"
)

// respond writes a JSON body with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// listEnvelope is the pagination envelope shared by every list endpoint.
type listEnvelope struct {
	Object  string `json:"object"`
	Data    any    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// respondList renders items in the list envelope. ids must be the item
// ids in returned order; an empty list carries no cursors.
func respondList(w http.ResponseWriter, data any, ids []string, hasMore bool) {
	env := listEnvelope{Object: "list", Data: data, HasMore: hasMore}
	if len(ids) > 0 {
		env.FirstID = ids[0]
		env.LastID = ids[len(ids)-1]
	}
	respond(w, http.StatusOK, env)
}

// pageFromQuery extracts the cursor pagination parameters.
func pageFromQuery(r *http.Request) repository.Page {
	q := r.URL.Query()
	page := repository.Page{
		Order:         q.Get("order"),
		StartingAfter: q.Get("after"),
		EndingBefore:  q.Get("before"),
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Limit = n
		}
	}
	return page
}
