/*
Package chat contains the core logic of the real-time chat engine.

This file defines per-room configuration, chat modes, word filters, and the
collaborator interfaces the engine consumes (persistence, analytics).
*/
package chat

import (
	"context"
	"regexp"
	"time"
)

// ChatMode restricts who may send in a room.
type ChatMode string

const (
	ModeNormal          ChatMode = "normal"
	ModeSubscribersOnly ChatMode = "subscribers-only"
	ModeFollowersOnly   ChatMode = "followers-only"
	ModeEmoteOnly       ChatMode = "emote-only"
	ModeSlow            ChatMode = "slow"
)

// DefaultSlowDelay applies when slow mode is enabled without an explicit delay.
const DefaultSlowDelay = 3 * time.Second

// ValidMode reports whether m is a known chat mode.
func ValidMode(m ChatMode) bool {
	switch m {
	case ModeNormal, ModeSubscribersOnly, ModeFollowersOnly, ModeEmoteOnly, ModeSlow:
		return true
	}
	return false
}

// FilterAction is what a matching word filter does to a message.
type FilterAction string

const (
	// FilterBlock rejects the whole message.
	FilterBlock FilterAction = "block"

	// FilterReplace substitutes the matched text and lets processing continue.
	FilterReplace FilterAction = "replace"
)

// WordFilter is one channel-configured content rule. Filters apply in order;
// the first matching block filter rejects the message.
type WordFilter struct {
	Pattern     string       `json:"pattern"`
	Action      FilterAction `json:"action"`
	Replacement string       `json:"replacement,omitempty"`

	re *regexp.Regexp
}

// Compile builds the case-insensitive matcher for the filter's pattern.
// The pattern is treated as a literal phrase, not a regular expression.
func (f *WordFilter) Compile() error {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(f.Pattern))
	if err != nil {
		return err
	}
	f.re = re
	return nil
}

// matches reports whether the filter matches the content. Uncompiled filters never match.
func (f *WordFilter) matches(content string) bool {
	return f.re != nil && f.re.MatchString(content)
}

// apply substitutes every match with the filter's replacement.
func (f *WordFilter) apply(content string) string {
	if f.re == nil {
		return content
	}
	return f.re.ReplaceAllString(content, f.Replacement)
}

// RoomConfig is the durable, slow-changing configuration of one chat room.
// The fast-changing transient state (mode, bans, timeouts) lives in the
// StateStore; the persisted Mode/SlowDelay here only seed that state when a
// room is loaded into memory.
type RoomConfig struct {
	// ID is the room id, 1:1 with a stream channel.
	ID string `json:"id"`

	// OwnerID is the channel owner's user id. Owners moderate their own room
	// with full permissions.
	OwnerID string `json:"ownerId"`

	// RequiresAuth rejects anonymous guests at join time.
	RequiresAuth bool `json:"requiresAuth"`

	// SubscriberOnly rejects free and guest tiers at join time.
	SubscriberOnly bool `json:"subscriberOnly"`

	// EnableProfanityFilter extends profanity censoring to all tiers.
	// Free and guest senders are always profanity-checked.
	EnableProfanityFilter bool `json:"enableProfanityFilter"`

	// Mode and SlowDelaySeconds seed the in-memory room state on load.
	Mode             ChatMode `json:"mode"`
	SlowDelaySeconds int      `json:"slowDelaySeconds"`

	// Filters are the channel's ordered word filters.
	Filters []WordFilter `json:"filters,omitempty"`
}

// CompileFilters prepares all word filters for matching. Called once when the
// room is loaded; a broken pattern disables that filter only.
func (c *RoomConfig) CompileFilters() {
	for i := range c.Filters {
		if err := c.Filters[i].Compile(); err != nil {
			c.Filters[i].re = nil
		}
	}
}

// Ban is one room ban. A zero ExpiresAt means permanent.
type Ban struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	ByAdmin   bool      `json:"byAdmin"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the ban is in force at the given time.
// Expiry is evaluated lazily at access time; nothing sweeps expired bans.
func (b Ban) Active(now time.Time) bool {
	return b.ExpiresAt.IsZero() || b.ExpiresAt.After(now)
}

// Permissions are the per-moderator capability bits.
type Permissions struct {
	CanBan            bool `json:"canBan"`
	CanTimeout        bool `json:"canTimeout"`
	CanDeleteMessages bool `json:"canDeleteMessages"`
	CanManageMods     bool `json:"canManageMods"`
	CanChangeChatMode bool `json:"canChangeChatMode"`
}

// FullPermissions is the grant given to owners and admin-appointed moderators.
func FullPermissions() Permissions {
	return Permissions{
		CanBan:            true,
		CanTimeout:        true,
		CanDeleteMessages: true,
		CanManageMods:     true,
		CanChangeChatMode: true,
	}
}

// Moderator is one entry in a room's moderator roster.
type Moderator struct {
	RoomID      string      `json:"roomId"`
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	Permissions Permissions `json:"permissions"`
	AddedBy     string      `json:"addedBy"`
}

// Store is the persistence collaborator. The engine treats durability as
// best-effort: message saves are fire-and-forget and a storage failure never
// unsends an already-broadcast message.
type Store interface {
	SaveMessage(ctx context.Context, msg Message) error
	FindRecentMessages(ctx context.Context, roomID string, limit int, before time.Time) ([]Message, error)
	MarkMessageDeleted(ctx context.Context, messageID string) error

	FindRoomConfig(ctx context.Context, roomID string) (*RoomConfig, error)
	SaveRoomConfig(ctx context.Context, cfg RoomConfig) error

	SaveBan(ctx context.Context, ban Ban) error
	DeleteBan(ctx context.Context, roomID, userID string) error
	FindBans(ctx context.Context, roomID string) ([]Ban, error)

	SaveModerator(ctx context.Context, mod Moderator) error
	DeleteModerator(ctx context.Context, roomID, userID string) error
	FindModerators(ctx context.Context, roomID string) ([]Moderator, error)
}

// MessageSaver is the async write path for the hot send loop. The postgres
// batcher implements it; tests substitute an in-memory recorder.
type MessageSaver interface {
	// Enqueue queues the message for durable storage, returning false when the
	// queue is full and the message was dropped.
	Enqueue(msg Message) bool
}

// MaxHistoryLimit caps the backlog size a join may request.
const MaxHistoryLimit = 100

// DefaultHistoryLimit is the backlog size returned on join when unspecified.
const DefaultHistoryLimit = 50

// clampHistoryLimit bounds a requested backlog size to (0, MaxHistoryLimit].
func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
