package chat

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/limiter"
)

// TierLimit is the token-bucket shape for one subscription tier.
type TierLimit struct {
	Rate  rate.Limit
	Burst int
}

// DefaultTierLimits is the per-tier message pacing table. Higher tiers
// refill faster and tolerate bigger bursts.
var DefaultTierLimits = map[user.Tier]TierLimit{
	user.TierGuest:   {Rate: 0.5, Burst: 3},
	user.TierFree:    {Rate: 0.5, Burst: 5},
	user.TierBasic:   {Rate: 1, Burst: 8},
	user.TierPremium: {Rate: 1.5, Burst: 10},
	user.TierAnnual:  {Rate: 1.5, Burst: 10},
}

// SendLimiter paces chat sends per user, with bucket shapes chosen by
// subscription tier. One keyed limiter per tier; buckets are keyed by the
// sender's stable key so reconnecting does not reset pacing.
type SendLimiter struct {
	tiers map[user.Tier]*limiter.KeyedLimiter
}

// NewSendLimiter builds a limiter from the given table. Tiers missing from
// the table fall back to the free-tier shape.
func NewSendLimiter(limits map[user.Tier]TierLimit) *SendLimiter {
	if limits == nil {
		limits = DefaultTierLimits
	}

	tiers := make(map[user.Tier]*limiter.KeyedLimiter, len(limits))
	for tier, l := range limits {
		tiers[tier] = limiter.NewKeyedLimiter(l.Rate, l.Burst)
	}

	return &SendLimiter{tiers: tiers}
}

// Allow reports whether the identity may send now, consuming a token when it may.
func (s *SendLimiter) Allow(identity user.Identity) bool {
	return s.AllowAt(identity, time.Now())
}

// AllowAt is Allow at an explicit instant, for deterministic tests.
func (s *SendLimiter) AllowAt(identity user.Identity, t time.Time) bool {
	kl, ok := s.tiers[identity.Tier]
	if !ok {
		kl = s.tiers[user.TierFree]
	}
	if kl == nil {
		return true
	}

	return kl.AllowAt(identity.Key(), t)
}
