/*
Package analytics emits engagement events from the chat engine.

The engine calls the Recorder on its hot paths, so implementations must be
non-blocking; the default implementation writes structured log events that the
downstream pipeline tails.
*/
package analytics

import (
	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// Recorder receives engagement signals. All methods must return quickly and
// never fail the caller.
type Recorder interface {
	MessageSent(roomID, userKey, tier string)
	DonationReceived(roomID, userKey string, amount int64)
	UserJoined(roomID string, memberCount int)
	UserLeft(roomID string, memberCount int)
	ModerationApplied(roomID, action string)
}

// LogRecorder emits each signal as a structured log event.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder builds the default log-backed recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{
		logger: logx.Logger().With().Str("component", "Analytics").Logger(),
	}
}

func (r *LogRecorder) MessageSent(roomID, userKey, tier string) {
	r.logger.Info().
		Str("event", "message_sent").
		Str("room_id", roomID).
		Str("user_key", userKey).
		Str("tier", tier).
		Send()
}

func (r *LogRecorder) DonationReceived(roomID, userKey string, amount int64) {
	r.logger.Info().
		Str("event", "donation_received").
		Str("room_id", roomID).
		Str("user_key", userKey).
		Int64("amount", amount).
		Send()
}

func (r *LogRecorder) UserJoined(roomID string, memberCount int) {
	r.logger.Info().
		Str("event", "user_joined").
		Str("room_id", roomID).
		Int("member_count", memberCount).
		Send()
}

func (r *LogRecorder) UserLeft(roomID string, memberCount int) {
	r.logger.Info().
		Str("event", "user_left").
		Str("room_id", roomID).
		Int("member_count", memberCount).
		Send()
}

func (r *LogRecorder) ModerationApplied(roomID, action string) {
	r.logger.Info().
		Str("event", "moderation_applied").
		Str("room_id", roomID).
		Str("action", action).
		Send()
}

// Nop discards every signal. Used in tests.
type Nop struct{}

func (Nop) MessageSent(string, string, string)     {}
func (Nop) DonationReceived(string, string, int64) {}
func (Nop) UserJoined(string, int)                 {}
func (Nop) UserLeft(string, int)                   {}
func (Nop) ModerationApplied(string, string)       {}
