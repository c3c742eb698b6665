package group

import (
	"testing"
	"time"

	"github.com/onnwee/wa-bridge/whatsapp"
)

const self = "15550001111@s.whatsapp.net"

func TestFromChatDerivesCountAndAdminFlag(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	chat := whatsapp.Chat{
		ID:          "g1@g.us",
		Name:        "Family",
		IsGroup:     true,
		Description: "the family group",
		Participants: []whatsapp.Participant{
			{ID: self, IsAdmin: true},
			{ID: "15550002222@s.whatsapp.net"},
			{ID: "15550003333@s.whatsapp.net", IsAdmin: true},
		},
		CreatedAt: created,
	}

	g := FromChat(chat, self)
	if g.ParticipantCount != 3 {
		t.Errorf("ParticipantCount = %d, want 3", g.ParticipantCount)
	}
	if !g.IsAdmin {
		t.Error("IsAdmin = false, want true: self is among the admins")
	}
	if g.CreatedAt != created {
		t.Errorf("CreatedAt = %v, want %v", g.CreatedAt, created)
	}
}

func TestFromChatAdminFlagRequiresSelf(t *testing.T) {
	chat := whatsapp.Chat{
		ID:   "g1@g.us",
		Name: "Family",
		Participants: []whatsapp.Participant{
			{ID: self}, // member, not admin
			{ID: "15550003333@s.whatsapp.net", IsAdmin: true},
		},
	}
	if g := FromChat(chat, self); g.IsAdmin {
		t.Error("IsAdmin = true for a chat where self is a plain member")
	}
	if g := FromChat(chat, ""); g.IsAdmin {
		t.Error("IsAdmin = true with no self identifier")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		g    Group
		want bool
	}{
		{"complete", Group{ID: "g1", Name: "Family", ParticipantCount: 2}, true},
		{"missing id", Group{Name: "Family", ParticipantCount: 2}, false},
		{"missing name", Group{ID: "g1", ParticipantCount: 2}, false},
		{"no participants", Group{ID: "g1", Name: "Family"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
