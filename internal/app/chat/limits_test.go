package chat

import (
	"testing"
	"time"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
)

func TestSendLimiterBurstThenReject(t *testing.T) {
	l := NewSendLimiter(DefaultTierLimits)
	identity := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierFree}
	base := time.Now()

	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i < burst; i++ {
		if !l.AllowAt(identity, base) {
			t.Fatalf("send %d inside burst should pass", i+1)
		}
	}

	if l.AllowAt(identity, base) {
		t.Fatal("send past the burst should be rejected")
	}
}

func TestSendLimiterRefills(t *testing.T) {
	l := NewSendLimiter(DefaultTierLimits)
	identity := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierFree}
	base := time.Now()

	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i < burst; i++ {
		l.AllowAt(identity, base)
	}

	// Free tier refills at 0.5 tokens/s; two seconds buys one send.
	if !l.AllowAt(identity, base.Add(2*time.Second)) {
		t.Fatal("expected one token after refill interval")
	}
	if l.AllowAt(identity, base.Add(2*time.Second)) {
		t.Fatal("expected only one token after refill interval")
	}
}

func TestSendLimiterIsPerUser(t *testing.T) {
	l := NewSendLimiter(DefaultTierLimits)
	base := time.Now()

	a := user.Identity{ID: "u1", Username: "a", Tier: user.TierFree}
	b := user.Identity{ID: "u2", Username: "b", Tier: user.TierFree}

	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i < burst; i++ {
		l.AllowAt(a, base)
	}

	if l.AllowAt(a, base) {
		t.Fatal("first user should be exhausted")
	}
	if !l.AllowAt(b, base) {
		t.Fatal("second user has an independent bucket")
	}
}

func TestSendLimiterUnknownTierFallsBack(t *testing.T) {
	l := NewSendLimiter(DefaultTierLimits)
	identity := user.Identity{ID: "u1", Username: "viewer", Tier: user.Tier("mystery")}
	base := time.Now()

	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i < burst; i++ {
		if !l.AllowAt(identity, base) {
			t.Fatalf("send %d inside fallback burst should pass", i+1)
		}
	}
	if l.AllowAt(identity, base) {
		t.Fatal("fallback bucket should be exhausted at the free-tier burst")
	}
}

func TestSendLimiterGuestKeyedBySessionUsername(t *testing.T) {
	l := NewSendLimiter(DefaultTierLimits)
	base := time.Now()

	guest1 := user.Identity{Username: "guest_aaa", Tier: user.TierGuest, Guest: true}
	guest2 := user.Identity{Username: "guest_bbb", Tier: user.TierGuest, Guest: true}

	burst := DefaultTierLimits[user.TierGuest].Burst
	for i := 0; i < burst; i++ {
		l.AllowAt(guest1, base)
	}

	if l.AllowAt(guest1, base) {
		t.Fatal("first guest should be exhausted")
	}
	if !l.AllowAt(guest2, base) {
		t.Fatal("guests with different session names must not share a bucket")
	}
}
