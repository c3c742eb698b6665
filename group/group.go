// Package group maintains the cached snapshot of the connected account's
// group chats and the read model served over HTTP.
package group

import (
	"context"
	"time"

	"github.com/onnwee/wa-bridge/whatsapp"
)

// Group is one cached group chat snapshot. The raw participant list is never
// retained; only its length and the derived admin flag survive mapping.
type Group struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ParticipantCount int       `json:"participantCount"`
	IsAdmin          bool      `json:"isGroupAdmin"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FromChat maps a raw chat record into a candidate Group. selfID decides the
// admin flag: the connected account must itself appear among the chat's
// administrators.
func FromChat(c whatsapp.Chat, selfID string) Group {
	g := Group{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		ParticipantCount: len(c.Participants),
		CreatedAt:        c.CreatedAt,
	}
	for _, p := range c.Participants {
		if p.IsAdmin && selfID != "" && p.ID == selfID {
			g.IsAdmin = true
			break
		}
	}
	return g
}

// Valid reports whether the candidate satisfies the persistence invariant:
// non-empty identifier, non-empty name, at least one participant.
func (g Group) Valid() bool {
	return g.ID != "" && g.Name != "" && g.ParticipantCount > 0
}

// Store is the narrow persistence contract for the group cache. The cache is
// a full-replace set: ReplaceAll drops everything previously stored. ByID
// returns (nil, nil) when the group is absent.
type Store interface {
	ReplaceAll(ctx context.Context, groups []Group) error
	All(ctx context.Context) ([]Group, error)
	ByID(ctx context.Context, id string) (*Group, error)
	Clear(ctx context.Context) error
}
