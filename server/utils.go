package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

// groupList is the envelope shared by every endpoint returning a set of groups.
type groupList struct {
	Groups     any    `json:"groups"`
	Count      int    `json:"count"`
	SearchTerm string `json:"search_term,omitempty"`
}
