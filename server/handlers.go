// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/whatsapp"
)

// SessionAPI is the slice of the session manager the HTTP layer consumes.
type SessionAPI interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	GetStatus(ctx context.Context) (whatsapp.Status, error)
}

// GroupAPI is the slice of the group service the HTTP layer consumes.
type GroupAPI interface {
	Fetch(ctx context.Context) ([]group.Group, error)
	All(ctx context.Context) ([]group.Group, error)
	ByID(ctx context.Context, id string) (*group.Group, error)
	Search(ctx context.Context, term string) ([]group.Group, error)
	Stats(ctx context.Context) (group.Stats, error)
	Clear(ctx context.Context) error
}

// Handlers holds dependencies for all HTTP handlers. db is nil when the
// memory store backend is active; readiness skips the database check then.
type Handlers struct {
	session SessionAPI
	groups  GroupAPI
	db      *sql.DB
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(session SessionAPI, groups GroupAPI, db *sql.DB) *Handlers {
	return &Handlers{session: session, groups: groups, db: db}
}
