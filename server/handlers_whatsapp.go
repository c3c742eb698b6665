package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/wa-bridge/telemetry"
	"github.com/onnwee/wa-bridge/whatsapp"
)

// HandleConnect starts the WhatsApp connection process. Idempotent: a second
// call while a client exists is a no-op. Progress is observed via /whatsapp/status.
func (h *Handlers) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.session.Connect(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("connect failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to start whatsapp connection", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connecting"})
}

// HandleStatus reports the persisted session state: connection flag, pending
// QR code, and the connected account identity.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status, err := h.session.GetStatus(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("status read failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to read session status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleDisconnect tears the session down. Safe to call repeatedly, including
// when no session was ever created.
func (h *Handlers) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.session.Disconnect(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("disconnect failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to disconnect", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// HandleGroupsFetch synchronizes the group cache from WhatsApp. 400 when the
// session is not ready, so clients can prompt for reconnection instead of
// treating it as a server fault.
func (h *Handlers) HandleGroupsFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	groups, err := h.groups.Fetch(r.Context())
	if err != nil {
		if errors.Is(err, whatsapp.ErrNotConnected) {
			http.Error(w, "whatsapp is not connected", http.StatusBadRequest)
			return
		}
		telemetry.LoggerWithCorr(r.Context()).Error("group fetch failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to fetch groups", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groupList{Groups: groups, Count: len(groups)})
}
