// Package store provides the in-memory and Postgres implementations of the
// session and group persistence contracts. The in-memory variants are the
// default; the Postgres variants are drop-in replacements behind the same
// interfaces.
package store

import (
	"context"
	"sync"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/whatsapp"
)

// MemorySessionStore keeps session records in process memory. Values are
// copied on both Put and Get so callers never share mutable state with the
// store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]whatsapp.Session
}

// NewMemorySessionStore returns an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]whatsapp.Session)}
}

func cloneSession(s whatsapp.Session) whatsapp.Session {
	if s.Info != nil {
		info := *s.Info
		s.Info = &info
	}
	if s.ConnectedAt != nil {
		at := *s.ConnectedAt
		s.ConnectedAt = &at
	}
	return s
}

func (m *MemorySessionStore) Put(_ context.Context, s *whatsapp.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*whatsapp.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	out := cloneSession(s)
	return &out, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryGroupStore keeps the group cache in insertion order, with a secondary
// index for lookups by identifier.
type MemoryGroupStore struct {
	mu     sync.RWMutex
	groups []group.Group
	byID   map[string]int
}

// NewMemoryGroupStore returns an empty in-memory group store.
func NewMemoryGroupStore() *MemoryGroupStore {
	return &MemoryGroupStore{byID: make(map[string]int)}
}

func (m *MemoryGroupStore) ReplaceAll(_ context.Context, groups []group.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = make([]group.Group, len(groups))
	copy(m.groups, groups)
	m.byID = make(map[string]int, len(groups))
	for i, g := range m.groups {
		m.byID[g.ID] = i
	}
	return nil
}

func (m *MemoryGroupStore) All(_ context.Context) ([]group.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]group.Group, len(m.groups))
	copy(out, m.groups)
	return out, nil
}

func (m *MemoryGroupStore) ByID(_ context.Context, id string) (*group.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	g := m.groups[i]
	return &g, nil
}

func (m *MemoryGroupStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = nil
	m.byID = make(map[string]int)
	return nil
}
