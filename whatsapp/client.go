// Package whatsapp owns the WhatsApp session lifecycle: it supervises the
// platform client, tracks the persisted session record, and fans lifecycle
// events out to registered subscribers.
package whatsapp

import (
	"context"
	"errors"
	"time"
)

// ErrNotConnected is returned for operations that require an established
// session. Callers surface it differently from generic upstream failures.
var ErrNotConnected = errors.New("whatsapp is not connected")

// EventKind names one of the lifecycle notifications a client emits.
type EventKind string

const (
	EventQR            EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventReady         EventKind = "ready"
	EventDisconnected  EventKind = "disconnected"
)

// Event is a single lifecycle notification. QRCode is set for EventQR, Info
// for EventReady, and Reason for EventDisconnected.
type Event struct {
	Kind   EventKind
	QRCode string
	Info   *ClientInfo
	Reason string
}

// Participant is one member of a group chat as reported by the platform.
// Only the identifier and admin flag are ever consumed; the list itself is
// never persisted.
type Participant struct {
	ID      string
	IsAdmin bool
}

// Chat is a raw chat record returned by the platform client.
type Chat struct {
	ID           string
	Name         string
	IsGroup      bool
	Description  string
	Participants []Participant
	CreatedAt    time.Time
}

// Client is the platform automation client the session manager supervises.
// Connection progress is reported through the event handler the client was
// constructed with, not through Connect's return value.
type Client interface {
	// Connect starts the client's own connection process and returns once it
	// is underway.
	Connect(ctx context.Context) error
	// ListChats returns every chat visible to the connected account.
	ListChats(ctx context.Context) ([]Chat, error)
	// SelfID returns the connected account's own identifier once known.
	SelfID() (string, bool)
	// Terminate tears the connection down and emits EventDisconnected.
	Terminate(ctx context.Context) error
}

// ClientFactory builds a fresh client that delivers its lifecycle events to
// handle. The manager calls it on every Connect that follows a termination,
// so each factory invocation must produce an independent instance.
type ClientFactory func(handle func(Event)) (Client, error)
