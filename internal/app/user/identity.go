/*
Package user contains core data structures related to viewer identity.

The chat engine does not own accounts; an Identity is the snapshot handed to a
connection by the external identity verifier (or generated locally for guests)
and stays immutable for the lifetime of that connection.
*/
package user

import "github.com/beech80/clipt-final--sub000/internal/pkg/randx"

// Tier is the subscription tier attached to an identity.
type Tier string

const (
	TierGuest   Tier = "guest"
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierAnnual  Tier = "annual"
)

// ParseTier maps a tier string from an external credential to a known Tier.
// Unknown values degrade to the free tier rather than failing verification.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierGuest, TierFree, TierBasic, TierPremium, TierAnnual:
		return Tier(s)
	default:
		return TierFree
	}
}

// IsSubscriber reports whether the tier grants access to subscriber-only rooms
// and subscriber-only chat mode.
func (t Tier) IsSubscriber() bool {
	switch t {
	case TierBasic, TierPremium, TierAnnual:
		return true
	default:
		return false
	}
}

// MaxMessageLength returns the per-message character cap for the tier.
// Enforced before any filter work to avoid processing oversized input.
func (t Tier) MaxMessageLength() int {
	switch t {
	case TierPremium, TierAnnual:
		return 500
	case TierBasic:
		return 300
	default:
		return 200
	}
}

// Identity represents one chat participant as seen by a single connection.
type Identity struct {
	// ID is the persistent user id; empty only for guests.
	ID string `json:"id,omitempty"`

	// Username is the unique login name used as a moderation target handle.
	Username string `json:"username"`

	// DisplayName is the name rendered in chat.
	DisplayName string `json:"displayName"`

	// Tier is the subscription tier at connection time.
	Tier Tier `json:"tier"`

	// IsModerator marks a platform-level moderator flag from the credential.
	// Room-level moderator status lives in the room state store.
	IsModerator bool `json:"isModerator"`

	// IsAdmin marks a platform administrator.
	IsAdmin bool `json:"isAdmin"`

	// Color is the display color for the participant's name.
	Color string `json:"color,omitempty"`

	// Guest is true for anonymous sessions admitted without a credential.
	Guest bool `json:"guest"`
}

// NewGuest builds an anonymous identity with a generated id and display name.
// Guests can watch and chat with reduced capabilities; they are never hard-rejected.
func NewGuest() (Identity, error) {
	id, err := randx.GuestID()
	if err != nil {
		return Identity{}, err
	}

	nick, err := randx.GuestNickname()
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		ID:          "",
		Username:    id,
		DisplayName: nick,
		Tier:        TierGuest,
		Guest:       true,
	}, nil
}

// Privileged reports whether the identity carries a platform moderator or admin flag.
func (i Identity) Privileged() bool {
	return i.IsModerator || i.IsAdmin
}

// Key returns the identifier used for rate limiting and room state keyed by user.
// Guests have no persistent id, so their session-scoped username is used instead.
func (i Identity) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Username
}
