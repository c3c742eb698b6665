package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/wa-bridge/telemetry"
	"github.com/onnwee/wa-bridge/whatsapp"
)

// ErrSearchTermTooShort rejects search terms shorter than two characters
// after trimming; trivial terms would scan nearly the whole cache.
var ErrSearchTermTooShort = errors.New("search term must be at least 2 characters")

const minSearchTermLen = 2

// Connection is the slice of the session manager the synchronizer needs.
// ListChats fails with whatsapp.ErrNotConnected unless the session is ready.
type Connection interface {
	ListChats(ctx context.Context) ([]whatsapp.Chat, error)
	SelfID() (string, bool)
}

// Service synchronizes the group cache from the platform and serves the read
// queries over it.
type Service struct {
	conn  Connection
	store Store
}

// NewService wires the synchronizer to its connection and cache store.
func NewService(conn Connection, store Store) *Service {
	return &Service{conn: conn, store: store}
}

// Fetch pulls the full chat list from the platform, keeps the valid group
// candidates, and replaces the entire cache with them. It returns
// whatsapp.ErrNotConnected unaltered when the session is not ready; the cache
// is never touched in that case.
func (s *Service) Fetch(ctx context.Context) ([]Group, error) {
	chats, err := s.conn.ListChats(ctx)
	if err != nil {
		telemetry.CountGroupFetch(false)
		if errors.Is(err, whatsapp.ErrNotConnected) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch chats: %w", err)
	}
	selfID, _ := s.conn.SelfID()

	groups := make([]Group, 0, len(chats))
	for _, c := range chats {
		if !c.IsGroup {
			continue
		}
		g := FromChat(c, selfID)
		if !g.Valid() {
			slog.Debug("dropping invalid group candidate", slog.String("id", c.ID), slog.String("name", c.Name))
			continue
		}
		groups = append(groups, g)
	}

	if err := s.store.ReplaceAll(ctx, groups); err != nil {
		telemetry.CountGroupFetch(false)
		return nil, fmt.Errorf("replace group cache: %w", err)
	}
	telemetry.CountGroupFetch(true)
	telemetry.SetGroupsCached(len(groups))
	slog.Info("group cache replaced", slog.Int("groups", len(groups)), slog.Int("chats", len(chats)), slog.String("component", "group"))
	return groups, nil
}

// All returns every cached group in stable insertion order.
func (s *Service) All(ctx context.Context) ([]Group, error) {
	groups, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	return groups, nil
}

// ByID returns the cached group or (nil, nil) when it does not exist.
func (s *Service) ByID(ctx context.Context, id string) (*Group, error) {
	g, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load group %q: %w", id, err)
	}
	return g, nil
}

// Search returns cached groups whose name contains term, case-insensitively.
func (s *Service) Search(ctx context.Context, term string) ([]Group, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < minSearchTermLen {
		return nil, ErrSearchTermTooShort
	}
	groups, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	needle := strings.ToLower(term)
	matches := make([]Group, 0)
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Name), needle) {
			matches = append(matches, g)
		}
	}
	return matches, nil
}

// GroupSize names a group together with its participant count for the
// largest/smallest stats fields.
type GroupSize struct {
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// Stats summarizes the current cache. Largest and smallest are nil when the
// cache is empty; ties go to the first-encountered group.
type Stats struct {
	TotalGroups         int        `json:"totalGroups"`
	AdminGroups         int        `json:"adminGroups"`
	TotalParticipants   int        `json:"totalParticipants"`
	AverageParticipants int        `json:"averageParticipants"`
	LargestGroup        *GroupSize `json:"largestGroup"`
	SmallestGroup       *GroupSize `json:"smallestGroup"`
}

// Stats computes aggregate numbers over the current cache.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	groups, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load groups: %w", err)
	}

	st := Stats{TotalGroups: len(groups)}
	if len(groups) == 0 {
		return st, nil
	}

	largest, smallest := groups[0], groups[0]
	for _, g := range groups {
		if g.IsAdmin {
			st.AdminGroups++
		}
		st.TotalParticipants += g.ParticipantCount
		if g.ParticipantCount > largest.ParticipantCount {
			largest = g
		}
		if g.ParticipantCount < smallest.ParticipantCount {
			smallest = g
		}
	}
	st.AverageParticipants = int(math.Round(float64(st.TotalParticipants) / float64(len(groups))))
	st.LargestGroup = &GroupSize{Name: largest.Name, Participants: largest.ParticipantCount}
	st.SmallestGroup = &GroupSize{Name: smallest.Name, Participants: smallest.ParticipantCount}
	return st, nil
}

// Clear empties the cache unconditionally.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	telemetry.SetGroupsCached(0)
	return nil
}
