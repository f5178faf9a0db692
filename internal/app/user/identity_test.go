package user

import "testing"

func TestParseTier(t *testing.T) {
	cases := []struct {
		in   string
		want Tier
	}{
		{"guest", TierGuest},
		{"free", TierFree},
		{"basic", TierBasic},
		{"premium", TierPremium},
		{"annual", TierAnnual},
		{"platinum", TierFree},
		{"", TierFree},
	}
	for _, tc := range cases {
		if got := ParseTier(tc.in); got != tc.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTierCapabilities(t *testing.T) {
	if TierFree.IsSubscriber() || TierGuest.IsSubscriber() {
		t.Error("free and guest tiers must not count as subscribers")
	}
	for _, tier := range []Tier{TierBasic, TierPremium, TierAnnual} {
		if !tier.IsSubscriber() {
			t.Errorf("tier %s should be a subscriber", tier)
		}
	}

	if TierGuest.MaxMessageLength() != 200 || TierFree.MaxMessageLength() != 200 {
		t.Error("guest and free tiers cap at 200 characters")
	}
	if TierBasic.MaxMessageLength() != 300 {
		t.Error("basic tier caps at 300 characters")
	}
	if TierPremium.MaxMessageLength() != 500 || TierAnnual.MaxMessageLength() != 500 {
		t.Error("premium and annual tiers cap at 500 characters")
	}
}

func TestNewGuest(t *testing.T) {
	g1, err := NewGuest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !g1.Guest || g1.Tier != TierGuest {
		t.Fatalf("unexpected guest identity: %+v", g1)
	}
	if g1.ID != "" {
		t.Fatalf("guests must not carry a persistent id, got %q", g1.ID)
	}
	if g1.Username == "" || g1.DisplayName == "" {
		t.Fatalf("expected generated names, got %+v", g1)
	}

	g2, err := NewGuest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g1.Username == g2.Username {
		t.Fatal("two guests should not share a session username")
	}
}

func TestIdentityKey(t *testing.T) {
	member := Identity{ID: "u1", Username: "alice"}
	if member.Key() != "u1" {
		t.Errorf("member key = %q, want persistent id", member.Key())
	}

	guest := Identity{Username: "guest_abc", Guest: true}
	if guest.Key() != "guest_abc" {
		t.Errorf("guest key = %q, want session username", guest.Key())
	}
}

func TestPrivileged(t *testing.T) {
	if (Identity{}).Privileged() {
		t.Error("plain identity must not be privileged")
	}
	if !(Identity{IsModerator: true}).Privileged() {
		t.Error("platform moderator is privileged")
	}
	if !(Identity{IsAdmin: true}).Privileged() {
		t.Error("admin is privileged")
	}
}
