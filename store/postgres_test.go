package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/store"
	"github.com/onnwee/wa-bridge/testutil"
	"github.com/onnwee/wa-bridge/whatsapp"
)

func TestPostgresSessionStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	s := store.NewPostgresSessionStore(database)
	ctx := context.Background()
	t.Cleanup(func() {
		_ = s.Delete(ctx, "pg-test-session")
	})

	if got, err := s.Get(ctx, "pg-test-session"); err != nil || got != nil {
		t.Fatalf("Get(absent) = %+v, %v, want nil, nil", got, err)
	}

	pending := &whatsapp.Session{ID: "pg-test-session"}
	pending.SetPendingAuth("data:image/png;base64,qr")
	if err := s.Put(ctx, pending); err != nil {
		t.Fatalf("Put(pending) error: %v", err)
	}
	got, err := s.Get(ctx, "pg-test-session")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.State != whatsapp.StatePendingAuth || got.QRCode == "" || got.Info != nil {
		t.Errorf("pending round trip = %+v", got)
	}

	// Upsert: the same ID transitions in place.
	ready := &whatsapp.Session{ID: "pg-test-session"}
	ready.SetReady(whatsapp.ClientInfo{Name: "Alice", Number: "15550001111"}, time.Now().UTC())
	if err := s.Put(ctx, ready); err != nil {
		t.Fatalf("Put(ready) error: %v", err)
	}
	got, _ = s.Get(ctx, "pg-test-session")
	if got.State != whatsapp.StateReady || got.QRCode != "" || got.Info == nil || got.ConnectedAt == nil {
		t.Errorf("ready round trip = %+v", got)
	}
	if got.Info.Name != "Alice" || got.Info.Number != "15550001111" {
		t.Errorf("identity round trip = %+v", got.Info)
	}

	if err := s.Delete(ctx, "pg-test-session"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got, _ := s.Get(ctx, "pg-test-session"); got != nil {
		t.Errorf("Get after delete = %+v, want nil", got)
	}
}

func TestPostgresGroupStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	s := store.NewPostgresGroupStore(database)
	ctx := context.Background()
	t.Cleanup(func() {
		_ = s.Clear(ctx)
	})

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := []group.Group{
		{ID: "g1@g.us", Name: "Family", Description: "kin", ParticipantCount: 4, IsAdmin: true, CreatedAt: created},
		{ID: "g2@g.us", Name: "Work", ParticipantCount: 7, CreatedAt: created},
	}
	if err := s.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll() error: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "g1@g.us" || all[1].ID != "g2@g.us" {
		t.Errorf("All() = %+v, want stable insertion order", all)
	}
	if !all[0].IsAdmin || all[0].Description != "kin" {
		t.Errorf("field round trip = %+v", all[0])
	}

	g, err := s.ByID(ctx, "g2@g.us")
	if err != nil {
		t.Fatalf("ByID() error: %v", err)
	}
	if g == nil || g.ParticipantCount != 7 {
		t.Errorf("ByID(g2) = %+v", g)
	}
	if g, _ := s.ByID(ctx, "absent"); g != nil {
		t.Errorf("ByID(absent) = %+v, want nil", g)
	}

	second := []group.Group{{ID: "g3@g.us", Name: "Chess", ParticipantCount: 2, CreatedAt: created}}
	if err := s.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("second ReplaceAll() error: %v", err)
	}
	all, _ = s.All(ctx)
	if len(all) != 1 || all[0].ID != "g3@g.us" {
		t.Errorf("All() after replace = %+v, want only g3", all)
	}
}
