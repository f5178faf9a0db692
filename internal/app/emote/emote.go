/*
Package emote resolves the emote set visible to a chat participant.

Visibility is the union of three scopes: global emotes, tier-unlocked emotes,
and channel-specific emotes. The set is snapshotted at send time; the message
processor substitutes matched codes and the resulting render tokens are never
recomputed.
*/
package emote

import (
	"github.com/beech80/clipt-final--sub000/internal/app/user"
)

// Scope classifies where an emote comes from.
type Scope string

const (
	// ScopeGlobal emotes are visible to everyone.
	ScopeGlobal Scope = "global"

	// ScopeTier emotes unlock with a subscription tier (that tier and above).
	ScopeTier Scope = "tier"

	// ScopeChannel emotes belong to one channel and are visible in its room only.
	ScopeChannel Scope = "channel"
)

// Emote is one resolvable emote code.
type Emote struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	// URL is the render URL. Empty when the image lives in private asset
	// storage, in which case AssetKey is presigned on resolution.
	URL string `json:"url"`

	// AssetKey is the storage object key for channel-uploaded emote images.
	AssetKey string `json:"-"`

	Scope     Scope     `json:"scope"`
	Tier      user.Tier `json:"tier,omitempty"`
	ChannelID string    `json:"channelId,omitempty"`
}

// tierRank orders tiers for emote unlock comparisons.
func tierRank(t user.Tier) int {
	switch t {
	case user.TierBasic:
		return 1
	case user.TierPremium:
		return 2
	case user.TierAnnual:
		return 3
	default:
		return 0
	}
}

// visibleTo reports whether the identity can use the emote in the given room.
func (e Emote) visibleTo(identity user.Identity, roomID string) bool {
	switch e.Scope {
	case ScopeGlobal:
		return true
	case ScopeTier:
		return tierRank(identity.Tier) >= tierRank(e.Tier)
	case ScopeChannel:
		return e.ChannelID == roomID
	}
	return false
}
