package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/telemetry"
)

// HandleGroups serves the cache root: GET lists all cached groups, DELETE
// clears the cache.
func (h *Handlers) HandleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		groups, err := h.groups.All(r.Context())
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Error("group list failed", slog.Any("err", err), slog.String("component", "http"))
			http.Error(w, "failed to list groups", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, groupList{Groups: groups, Count: len(groups)})
	case http.MethodDelete:
		if err := h.groups.Clear(r.Context()); err != nil {
			telemetry.LoggerWithCorr(r.Context()).Error("group clear failed", slog.Any("err", err), slog.String("component", "http"))
			http.Error(w, "failed to clear groups", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGroupsDispatcher routes requests under /groups/* to sub-handlers.
func (h *Handlers) HandleGroupsDispatcher(w http.ResponseWriter, r *http.Request) {
	// crude routing
	tail := strings.TrimPrefix(r.URL.Path, "/groups/")
	switch tail {
	case "", "/":
		h.HandleGroups(w, r)
	case "search":
		h.handleGroupSearch(w, r)
	case "stats":
		h.handleGroupStats(w, r)
	default:
		h.handleGroupByID(w, r, tail)
	}
}

func (h *Handlers) handleGroupSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	term := r.URL.Query().Get("q")
	groups, err := h.groups.Search(r.Context(), term)
	if err != nil {
		if errors.Is(err, group.ErrSearchTermTooShort) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		telemetry.LoggerWithCorr(r.Context()).Error("group search failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to search groups", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groupList{Groups: groups, Count: len(groups), SearchTerm: strings.TrimSpace(term)})
}

func (h *Handlers) handleGroupStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.groups.Stats(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("group stats failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) handleGroupByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, err := h.groups.ByID(r.Context(), id)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("group lookup failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to load group", http.StatusInternalServerError)
		return
	}
	if g == nil {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
