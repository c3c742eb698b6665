// Command wa-bridge exposes a WhatsApp account as an HTTP service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Composes the session manager, group synchronizer, and their stores
//     (in-memory by default, Postgres when STORE_BACKEND=postgres).
//   - Supervises a single WhatsApp session through the whatsmeow client and
//     serves the pairing QR code while unauthenticated.
//   - Exposes the HTTP API with /healthz, /readyz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/wa-bridge/config"
	"github.com/onnwee/wa-bridge/db"
	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/server"
	"github.com/onnwee/wa-bridge/store"
	"github.com/onnwee/wa-bridge/telemetry"
	"github.com/onnwee/wa-bridge/whatsapp"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("wa-bridge", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Stores: in-memory by default, Postgres as the durable drop-in.
	var (
		sessionStore whatsapp.SessionStore
		groupStore   group.Store
		database     *sql.DB
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		database, err = db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		sessionStore = store.NewPostgresSessionStore(database)
		groupStore = store.NewPostgresGroupStore(database)
		slog.Info("stores initialized", slog.String("backend", "postgres"))
	default:
		sessionStore = store.NewMemorySessionStore()
		groupStore = store.NewMemoryGroupStore()
		slog.Info("stores initialized", slog.String("backend", "memory"))
	}

	// Session manager over the whatsmeow-backed client.
	factory := whatsapp.NewMeowFactory(whatsapp.MeowConfig{
		DSN:        cfg.DBDsn,
		DeviceName: cfg.DeviceName,
	})
	manager := whatsapp.NewManager(sessionStore, factory, cfg.SessionID)

	// Operational visibility: log pairing and teardown as they happen.
	manager.Subscribe(whatsapp.EventQR, func(whatsapp.Event) {
		slog.Info("login qr code issued; scan it from the phone")
	})
	manager.Subscribe(whatsapp.EventReady, func(ev whatsapp.Event) {
		if ev.Info != nil {
			slog.Info("session ready", slog.String("account", ev.Info.Name))
		}
	})
	manager.Subscribe(whatsapp.EventDisconnected, func(ev whatsapp.Event) {
		slog.Info("session terminated", slog.String("reason", ev.Reason))
	})

	groups := group.NewService(manager, groupStore)

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handlers := server.NewHandlers(manager, groups, database)
	slog.Info("starting http server", slog.String("addr", cfg.HTTPAddr))
	if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
		os.Exit(1)
	}

	// Best-effort teardown so the phone shows the device as offline.
	if err := manager.Disconnect(context.Background()); err != nil {
		slog.Warn("disconnect on shutdown failed", slog.Any("err", err))
	}
}
