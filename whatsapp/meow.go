package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver for the device store

	"go.mau.fi/whatsmeow"
	wstore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// MeowConfig configures the whatsmeow-backed client.
type MeowConfig struct {
	// DSN is the Postgres DSN backing whatsmeow's device/credential store.
	DSN string
	// DeviceName is shown in the phone's linked-devices list.
	DeviceName string
}

// NewMeowFactory returns a ClientFactory producing whatsmeow-backed clients.
// Each invocation opens a fresh device store container so a client released
// after termination leaves no shared state behind.
func NewMeowFactory(cfg MeowConfig) ClientFactory {
	return func(handle func(Event)) (Client, error) {
		ctx := context.Background()
		container, err := sqlstore.New(ctx, "pgx", cfg.DSN, waLog.Noop)
		if err != nil {
			return nil, fmt.Errorf("open device store: %w", err)
		}
		device, err := container.GetFirstDevice(ctx)
		if err != nil {
			return nil, fmt.Errorf("load device: %w", err)
		}
		if cfg.DeviceName != "" {
			wstore.SetOSInfo(cfg.DeviceName, [3]uint32{1, 0, 0})
		}
		cli := whatsmeow.NewClient(device, waLog.Noop)
		mc := &meowClient{client: cli, handle: handle}
		cli.AddEventHandler(mc.onEvent)
		return mc, nil
	}
}

// meowClient adapts *whatsmeow.Client to the Client contract, translating
// whatsmeow's event types into the manager's four lifecycle events.
type meowClient struct {
	client *whatsmeow.Client
	handle func(Event)
}

func (c *meowClient) Connect(ctx context.Context) error {
	if c.client.Store.ID == nil {
		// No stored credentials: pairing is required, so watch the QR channel.
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("open qr channel: %w", err)
		}
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go c.watchQR(qrChan)
		return nil
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (c *meowClient) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		if item.Event != whatsmeow.QRChannelEventCode {
			continue
		}
		dataURL, err := QRDataURL(item.Code)
		if err != nil {
			slog.Error("failed to render qr code", slog.Any("err", err), slog.String("component", "whatsapp"))
			continue
		}
		c.handle(Event{Kind: EventQR, QRCode: dataURL})
	}
}

func (c *meowClient) onEvent(raw interface{}) {
	switch ev := raw.(type) {
	case *events.PairSuccess:
		c.handle(Event{Kind: EventAuthenticated})
	case *events.Connected:
		info := ClientInfo{Name: c.client.Store.PushName}
		if id := c.client.Store.ID; id != nil {
			info.Number = id.User
		}
		if info.Name == "" {
			info.Name = "WhatsApp User"
		}
		c.handle(Event{Kind: EventReady, Info: &info})
	case *events.LoggedOut:
		c.handle(Event{Kind: EventDisconnected, Reason: fmt.Sprintf("logged out: %v", ev.Reason)})
	case *events.StreamReplaced:
		c.handle(Event{Kind: EventDisconnected, Reason: "stream replaced by another session"})
	}
}

func (c *meowClient) ListChats(ctx context.Context) ([]Chat, error) {
	groups, err := c.client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("get joined groups: %w", err)
	}
	chats := make([]Chat, 0, len(groups))
	for _, g := range groups {
		chat := Chat{
			ID:          g.JID.String(),
			Name:        g.Name,
			IsGroup:     true,
			Description: g.Topic,
			CreatedAt:   g.GroupCreated,
		}
		for _, p := range g.Participants {
			chat.Participants = append(chat.Participants, Participant{
				ID:      p.JID.ToNonAD().String(),
				IsAdmin: p.IsAdmin || p.IsSuperAdmin,
			})
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (c *meowClient) SelfID() (string, bool) {
	id := c.client.Store.ID
	if id == nil {
		return "", false
	}
	return id.ToNonAD().String(), true
}

func (c *meowClient) Terminate(ctx context.Context) error {
	if c.client.Store.ID != nil && c.client.IsLoggedIn() {
		if err := c.client.Logout(ctx); err != nil {
			c.client.Disconnect()
			c.handle(Event{Kind: EventDisconnected, Reason: "terminated by request"})
			return fmt.Errorf("logout: %w", err)
		}
	} else {
		c.client.Disconnect()
	}
	c.handle(Event{Kind: EventDisconnected, Reason: "terminated by request"})
	return nil
}
