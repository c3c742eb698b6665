package whatsapp

import (
	"context"
	"time"
)

// State is the connection lifecycle state of the single tracked session.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StatePendingAuth   State = "pending_auth"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
)

// ClientInfo identifies the connected WhatsApp account.
type ClientInfo struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Session is the persisted record of the one supported account connection.
// QRCode is set only while the session is pending authentication; Info and
// ConnectedAt are set only once the session is ready.
type Session struct {
	ID          string      `json:"session_id"`
	State       State       `json:"state"`
	QRCode      string      `json:"qr_code,omitempty"`
	Info        *ClientInfo `json:"client_info,omitempty"`
	ConnectedAt *time.Time  `json:"connected_at,omitempty"`
}

// SetPendingAuth records a freshly issued login QR code and clears any
// previous identity.
func (s *Session) SetPendingAuth(qrCode string) {
	s.State = StatePendingAuth
	s.QRCode = qrCode
	s.Info = nil
	s.ConnectedAt = nil
}

// SetReady marks the session connected, drops the QR code, and stamps the
// connection time.
func (s *Session) SetReady(info ClientInfo, at time.Time) {
	s.State = StateReady
	s.QRCode = ""
	s.Info = &info
	s.ConnectedAt = &at
}

// SetDisconnected resets the session to its logical zero state.
func (s *Session) SetDisconnected() {
	s.State = StateDisconnected
	s.QRCode = ""
	s.Info = nil
	s.ConnectedAt = nil
}

// Connected reports whether the session is fully established.
func (s *Session) Connected() bool {
	return s.State == StateReady
}

// SessionStore persists the single session record. Get returns (nil, nil)
// when no record exists; absence is not an error.
type SessionStore interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
