package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/server"
	"github.com/onnwee/wa-bridge/store"
	"github.com/onnwee/wa-bridge/testutil"
	"github.com/onnwee/wa-bridge/whatsapp"
)

type apiFixture struct {
	mux    http.Handler
	client *testutil.FakeClient
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	t.Setenv("ENV", "dev")

	client := &testutil.FakeClient{
		Self: "self@wa",
		Chats: []whatsapp.Chat{
			{
				ID:      "g1@g.us",
				Name:    "Family",
				IsGroup: true,
				Participants: []whatsapp.Participant{
					{ID: "self@wa", IsAdmin: true},
					{ID: "a@wa"},
					{ID: "b@wa"},
				},
				CreatedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:      "g2@g.us",
				Name:    "Work",
				IsGroup: true,
				Participants: []whatsapp.Participant{
					{ID: "self@wa"},
					{ID: "c@wa"},
				},
			},
			{ID: "dm@wa", Name: "Direct", IsGroup: false},
		},
	}

	manager := whatsapp.NewManager(store.NewMemorySessionStore(), testutil.NewFakeFactory(client), "")
	groups := group.NewService(manager, store.NewMemoryGroupStore())
	h := server.NewHandlers(manager, groups, nil)
	return &apiFixture{mux: server.NewMux(h), client: client}
}

func (f *apiFixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	// Fetch before any connection is a client error, not a server fault.
	if rec := f.do(t, http.MethodPost, "/whatsapp/groups/fetch"); rec.Code != http.StatusBadRequest {
		t.Fatalf("fetch before connect status = %d, want 400", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/whatsapp/connect")
	if rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d, want 200", rec.Code)
	}
	var connectBody map[string]string
	decodeJSON(t, rec, &connectBody)
	if connectBody["status"] != "connecting" {
		t.Errorf("connect body status = %q, want \"connecting\"", connectBody["status"])
	}

	// Status shows the pending QR code while authentication is in flight.
	f.client.EmitQR("data:image/png;base64,qr")
	var status whatsapp.Status
	decodeJSON(t, f.do(t, http.MethodGet, "/whatsapp/status"), &status)
	if status.Connected {
		t.Error("status reports connected while pairing is pending")
	}
	if status.QRCode == "" {
		t.Error("status is missing the pending QR code")
	}

	// Once ready, the QR code is gone and the identity is exposed.
	f.client.Emit(whatsapp.Event{Kind: whatsapp.EventAuthenticated})
	f.client.EmitReady("Tester", "15550001111")
	status = whatsapp.Status{}
	decodeJSON(t, f.do(t, http.MethodGet, "/whatsapp/status"), &status)
	if !status.Connected {
		t.Fatal("status not connected after ready event")
	}
	if status.QRCode != "" {
		t.Error("QR code still present after ready")
	}
	if status.Info == nil || status.Info.Name != "Tester" || status.Info.Number != "15550001111" {
		t.Errorf("client info = %+v, want Tester/15550001111", status.Info)
	}

	// A second connect while a client exists is a no-op.
	if rec := f.do(t, http.MethodPost, "/whatsapp/connect"); rec.Code != http.StatusOK {
		t.Fatalf("repeat connect status = %d, want 200", rec.Code)
	}
	if f.client.ConnectCalls != 1 {
		t.Errorf("client Connect called %d times, want 1", f.client.ConnectCalls)
	}

	rec = f.do(t, http.MethodDelete, "/whatsapp/disconnect")
	if rec.Code != http.StatusOK {
		t.Fatalf("disconnect status = %d, want 200", rec.Code)
	}
	status = whatsapp.Status{}
	decodeJSON(t, f.do(t, http.MethodGet, "/whatsapp/status"), &status)
	if status.Connected || status.Info != nil {
		t.Errorf("status after disconnect = %+v, want a cleared session", status)
	}
}

func TestGroupEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/whatsapp/connect")
	f.client.EmitReady("Tester", "15550001111")

	rec := f.do(t, http.MethodPost, "/whatsapp/groups/fetch")
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want 200", rec.Code)
	}
	var fetched struct {
		Groups []group.Group `json:"groups"`
		Count  int           `json:"count"`
	}
	decodeJSON(t, rec, &fetched)
	if fetched.Count != 2 || len(fetched.Groups) != 2 {
		t.Fatalf("fetch returned %d groups, want 2 (direct chats excluded)", fetched.Count)
	}

	// List serves the cached snapshot.
	decodeJSON(t, f.do(t, http.MethodGet, "/groups"), &fetched)
	if fetched.Count != 2 {
		t.Errorf("list count = %d, want 2", fetched.Count)
	}

	// Search: validation failure vs. a match.
	if rec := f.do(t, http.MethodGet, "/groups/search?q=a"); rec.Code != http.StatusBadRequest {
		t.Errorf("one-character search status = %d, want 400", rec.Code)
	}
	var searched struct {
		Groups     []group.Group `json:"groups"`
		Count      int           `json:"count"`
		SearchTerm string        `json:"search_term"`
	}
	rec = f.do(t, http.MethodGet, "/groups/search?q=fam")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, want 200", rec.Code)
	}
	decodeJSON(t, rec, &searched)
	if searched.Count != 1 || searched.Groups[0].Name != "Family" {
		t.Errorf("search result = %+v, want the Family group", searched.Groups)
	}
	if searched.SearchTerm != "fam" {
		t.Errorf("search_term = %q, want \"fam\"", searched.SearchTerm)
	}

	// Stats over the two cached groups.
	var stats group.Stats
	decodeJSON(t, f.do(t, http.MethodGet, "/groups/stats"), &stats)
	if stats.TotalGroups != 2 || stats.AdminGroups != 1 || stats.TotalParticipants != 5 {
		t.Errorf("stats = %+v, want totals 2/1/5", stats)
	}
	if stats.LargestGroup == nil || stats.LargestGroup.Name != "Family" {
		t.Errorf("largest group = %+v, want Family", stats.LargestGroup)
	}

	// Lookup by id, hit and miss.
	rec = f.do(t, http.MethodGet, "/groups/g2@g.us")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d, want 200", rec.Code)
	}
	var g group.Group
	decodeJSON(t, rec, &g)
	if g.Name != "Work" || g.ParticipantCount != 2 {
		t.Errorf("lookup result = %+v, want Work with 2 participants", g)
	}
	if rec := f.do(t, http.MethodGet, "/groups/missing@g.us"); rec.Code != http.StatusNotFound {
		t.Errorf("lookup of unknown group status = %d, want 404", rec.Code)
	}

	// Clear empties the cache.
	rec = f.do(t, http.MethodDelete, "/groups")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", rec.Code)
	}
	decodeJSON(t, f.do(t, http.MethodGet, "/groups"), &fetched)
	if fetched.Count != 0 {
		t.Errorf("count after clear = %d, want 0", fetched.Count)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/whatsapp/connect"},
		{http.MethodPost, "/whatsapp/status"},
		{http.MethodGet, "/whatsapp/disconnect"},
		{http.MethodGet, "/whatsapp/groups/fetch"},
		{http.MethodPost, "/groups"},
		{http.MethodDelete, "/groups/stats"},
		{http.MethodPost, "/groups/search?q=fam"},
	}
	for _, tt := range tests {
		if rec := f.do(t, tt.method, tt.target); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.target, rec.Code)
		}
	}
}

func TestProbesAndCorrelation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q, want 200 \"ok\"", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("response is missing a correlation ID")
	}

	rec = f.do(t, http.MethodGet, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", rec.Code)
	}
	var ready map[string]string
	decodeJSON(t, rec, &ready)
	if ready["status"] != "ready" {
		t.Errorf("readyz body = %v, want status ready", ready)
	}

	// A supplied correlation ID is echoed back instead of replaced.
	r := httptest.NewRequest(http.MethodGet, "/groups", nil)
	r.Header.Set("X-Correlation-ID", "corr-123")
	rec2 := httptest.NewRecorder()
	f.mux.ServeHTTP(rec2, r)
	if got := rec2.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("X-Correlation-ID = %q, want the supplied value", got)
	}
}
