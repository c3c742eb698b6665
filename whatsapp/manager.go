package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/wa-bridge/telemetry"
)

// DefaultSessionID keys the single session record. The service supports
// exactly one account per running instance.
const DefaultSessionID = "wa-bridge-session"

// Status is the connection read model served by GET /whatsapp/status.
type Status struct {
	Connected bool        `json:"connected"`
	QRCode    string      `json:"qr_code,omitempty"`
	Info      *ClientInfo `json:"client_info,omitempty"`
}

type subscriber struct {
	id int
	fn func(Event)
}

// Manager owns the session state machine. All state transitions, whether
// triggered by HTTP calls or by asynchronous client events, execute under a
// single mutex so a ready event racing a disconnect cannot leave the persisted
// record inconsistent with the live client handle.
type Manager struct {
	store     SessionStore
	newClient ClientFactory
	sessionID string

	mu      sync.Mutex
	client  Client
	state   State
	subs    map[EventKind][]subscriber
	nextSub int
}

// NewManager wires a manager to its session store and client factory. An
// empty sessionID falls back to DefaultSessionID.
func NewManager(store SessionStore, factory ClientFactory, sessionID string) *Manager {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return &Manager{
		store:     store,
		newClient: factory,
		sessionID: sessionID,
		state:     StateDisconnected,
		subs:      make(map[EventKind][]subscriber),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for events of the given kind and returns a token for
// Unsubscribe. Dispatch is synchronous and in registration order.
func (m *Manager) Subscribe(kind EventKind, fn func(Event)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	m.subs[kind] = append(m.subs[kind], subscriber{id: m.nextSub, fn: fn})
	return m.nextSub
}

// Unsubscribe removes a previously registered subscriber. Unknown tokens are
// ignored.
func (m *Manager) Unsubscribe(kind EventKind, token int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[kind]
	for i, s := range subs {
		if s.id == token {
			m.subs[kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Connect instantiates the platform client and starts its connection process.
// It is idempotent: if a client already exists the call is a no-op. Connection
// progress is observed through events and GetStatus, not this return value.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.client != nil {
		m.mu.Unlock()
		return nil
	}
	client, err := m.newClient(m.handleEvent)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("create whatsapp client: %w", err)
	}
	m.client = client
	m.state = StateConnecting
	m.mu.Unlock()

	// The client's own network dial happens outside the critical section.
	if err := client.Connect(ctx); err != nil {
		m.mu.Lock()
		if m.client == client {
			m.client = nil
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		return fmt.Errorf("start whatsapp connection: %w", err)
	}
	return nil
}

// GetStatus reads the persisted session. It never triggers a connection.
func (m *Manager) GetStatus(ctx context.Context) (Status, error) {
	s, err := m.store.Get(ctx, m.sessionID)
	if err != nil {
		return Status{}, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return Status{}, nil
	}
	return Status{Connected: s.Connected(), QRCode: s.QRCode, Info: s.Info}, nil
}

// Disconnect terminates the client if one exists and always removes the
// persisted session record as a final step, so repeated calls are safe.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	var termErr error
	if client != nil {
		if err := client.Terminate(ctx); err != nil {
			termErr = fmt.Errorf("terminate whatsapp client: %w", err)
		}
	}

	m.mu.Lock()
	m.client = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if err := m.store.Delete(ctx, m.sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return termErr
}

// ListChats queries the platform client for the full chat list. It fails with
// ErrNotConnected unless the session is ready.
func (m *Manager) ListChats(ctx context.Context) ([]Chat, error) {
	m.mu.Lock()
	client := m.client
	ready := m.state == StateReady
	m.mu.Unlock()
	if !ready || client == nil {
		return nil, ErrNotConnected
	}
	chats, err := client.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// SelfID returns the connected account's own identifier, or false before the
// session is ready.
func (m *Manager) SelfID() (string, bool) {
	m.mu.Lock()
	client := m.client
	ready := m.state == StateReady
	m.mu.Unlock()
	if !ready || client == nil {
		return "", false
	}
	return client.SelfID()
}

// handleEvent applies one lifecycle event to the persisted session and the
// in-memory state, then notifies subscribers. Store failures abort the event
// and leave the previous state intact; subscriber failures never do.
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := context.Background()
	switch ev.Kind {
	case EventQR:
		s := &Session{ID: m.sessionID}
		s.SetPendingAuth(ev.QRCode)
		if err := m.store.Put(ctx, s); err != nil {
			slog.Error("failed to persist pending session", slog.Any("err", err), slog.String("component", "whatsapp"))
			return
		}
		m.state = StatePendingAuth
	case EventAuthenticated:
		// Informational marker only: the QR code stays until ready.
		m.state = StateAuthenticated
	case EventReady:
		if ev.Info == nil {
			slog.Error("ready event without client info", slog.String("component", "whatsapp"))
			return
		}
		s := &Session{ID: m.sessionID}
		s.SetReady(*ev.Info, time.Now().UTC())
		if err := m.store.Put(ctx, s); err != nil {
			slog.Error("failed to persist ready session", slog.Any("err", err), slog.String("component", "whatsapp"))
			return
		}
		m.state = StateReady
		slog.Info("whatsapp connected", slog.String("name", ev.Info.Name), slog.String("component", "whatsapp"))
	case EventDisconnected:
		s, err := m.store.Get(ctx, m.sessionID)
		if err != nil {
			slog.Error("failed to load session on disconnect", slog.Any("err", err), slog.String("component", "whatsapp"))
			return
		}
		if s != nil {
			s.SetDisconnected()
			if err := m.store.Put(ctx, s); err != nil {
				slog.Error("failed to persist disconnected session", slog.Any("err", err), slog.String("component", "whatsapp"))
				return
			}
		}
		// Release the client so a later Connect builds a fresh one.
		m.client = nil
		m.state = StateDisconnected
		slog.Info("whatsapp disconnected", slog.String("reason", ev.Reason), slog.String("component", "whatsapp"))
	default:
		slog.Warn("unknown whatsapp event", slog.String("kind", string(ev.Kind)))
		return
	}

	telemetry.CountSessionEvent(string(ev.Kind))
	m.notifyLocked(ev)
}

// notifyLocked dispatches ev to subscribers in registration order. A panic in
// one subscriber is logged and does not abort the remaining subscribers or
// the transition that triggered them.
func (m *Manager) notifyLocked(ev Event) {
	for _, sub := range m.subs[ev.Kind] {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("whatsapp event subscriber failed",
						slog.String("event", string(ev.Kind)),
						slog.Int("subscriber", sub.id),
						slog.Any("panic", r))
				}
			}()
			sub.fn(ev)
		}()
	}
}
