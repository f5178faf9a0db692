/*
Package chat contains the core logic of the real-time chat engine: connection
sessions, room fan-out, content processing, transient room state, and
moderation actions.

This file defines the Message struct (the broadcast unit), the websocket event
envelope, and their payload types.
*/
package chat

import (
	"time"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/randx"
)

// MessageType classifies a chat message.
type MessageType string

const (
	TypeText       MessageType = "text"
	TypeAction     MessageType = "action"
	TypeDonation   MessageType = "donation"
	TypeSystem     MessageType = "system"
	TypeModeration MessageType = "moderation"
)

// EventType names an outbound (or fanned-out) websocket event.
type EventType string

const (
	EventJoinRoom      EventType = "joinRoom"
	EventLeaveRoom     EventType = "leaveRoom"
	EventChatMessage   EventType = "chatMessage"
	EventChatHistory   EventType = "chatHistory"
	EventDonation      EventType = "donation"
	EventUserJoined    EventType = "userJoined"
	EventUserLeft      EventType = "userLeft"
	EventModeration    EventType = "moderation"
	EventSystemMessage EventType = "systemMessage"
	EventClearChat     EventType = "clearChat"
	EventTyping        EventType = "typing"
	EventStoppedTyping EventType = "stoppedTyping"
	EventTimeout       EventType = "timeout"
	EventBanned        EventType = "banned"
	EventWhisper       EventType = "whisper"
	EventPoll          EventType = "poll"
	EventColorChanged  EventType = "colorChanged"
	EventError         EventType = "error"
)

// Event is the envelope for everything the server emits to clients and fans
// out across processes.
type Event struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"roomId,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// AuthorSnapshot freezes the sender's identity at send time. Later profile
// edits never retroactively alter history.
type AuthorSnapshot struct {
	ID          string    `json:"id,omitempty"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Tier        user.Tier `json:"tier"`
	IsModerator bool      `json:"isModerator"`
	IsAdmin     bool      `json:"isAdmin"`
	Color       string    `json:"color,omitempty"`
}

// EmoteSpan records one emote occurrence inside a message's content.
// Start and End are byte offsets into Content (End exclusive).
type EmoteSpan struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	URL   string `json:"url"`
}

// Message is the emitted and persisted unit of chat.
//
// RenderedContent is derived deterministically from Content plus the emote set
// visible to the author at send time and is never recomputed later. Messages
// are immutable after creation except for the Deleted flag, which moderation
// may set.
type Message struct {
	ID              string         `json:"id"`
	RoomID          string         `json:"roomId"`
	Author          AuthorSnapshot `json:"author"`
	Type            MessageType    `json:"type"`
	Content         string         `json:"content"`
	RenderedContent string         `json:"renderedContent"`
	Emotes          []EmoteSpan    `json:"emotes,omitempty"`
	Timestamp       int64          `json:"timestamp"`
	Deleted         bool           `json:"deleted,omitempty"`
}

// NewMessage constructs a broadcastable message with a fresh id and timestamp.
func NewMessage(roomID string, author user.Identity, msgType MessageType, content, rendered string, emotes []EmoteSpan) Message {
	return Message{
		ID:     randx.MessageID(),
		RoomID: roomID,
		Author: AuthorSnapshot{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			Tier:        author.Tier,
			IsModerator: author.IsModerator,
			IsAdmin:     author.IsAdmin,
			Color:       author.Color,
		},
		Type:            msgType,
		Content:         content,
		RenderedContent: rendered,
		Emotes:          emotes,
		Timestamp:       time.Now().UnixMilli(),
	}
}

// ModerationAction names a moderation event subtype.
type ModerationAction string

const (
	ActionTimeout     ModerationAction = "timeout"
	ActionBan         ModerationAction = "ban"
	ActionUnban       ModerationAction = "unban"
	ActionClearChat   ModerationAction = "clear"
	ActionDeleteMsg   ModerationAction = "deleteMessage"
	ActionModeChange  ModerationAction = "modeChange"
	ActionAddMod      ModerationAction = "addModerator"
	ActionRemoveMod   ModerationAction = "removeModerator"
	ActionUpdatePerms ModerationAction = "updatePermissions"
)

// ModerationPayload is the room-wide payload of a moderation event.
type ModerationPayload struct {
	Action          ModerationAction `json:"action"`
	TargetID        string           `json:"targetId,omitempty"`
	TargetName      string           `json:"targetName,omitempty"`
	ActorName       string           `json:"actorName"`
	DurationSeconds int              `json:"durationSeconds,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	MessageID       string           `json:"messageId,omitempty"`
	Mode            ChatMode         `json:"mode,omitempty"`
	SlowDelay       int              `json:"slowDelaySeconds,omitempty"`
}

// DonationPayload is the payload of a donation event.
type DonationPayload struct {
	Message Message `json:"message"`
	Amount  int64   `json:"amount"`
}

// UserEventPayload carries the identity behind userJoined/userLeft events.
type UserEventPayload struct {
	User AuthorSnapshot `json:"user"`
}

// HistoryPayload carries the backlog and current room mode returned on join.
type HistoryPayload struct {
	Messages  []Message `json:"messages"`
	Mode      ChatMode  `json:"mode"`
	SlowDelay int       `json:"slowDelaySeconds,omitempty"`
}

// ErrorPayload is the structured rejection surfaced to the originating client.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ColorPayload announces a participant's new display color.
type ColorPayload struct {
	User  AuthorSnapshot `json:"user"`
	Color string         `json:"color"`
}

// WhisperPayload is the payload of a private /whisper delivery.
type WhisperPayload struct {
	From AuthorSnapshot `json:"from"`
	To   string         `json:"to"`
	Text string         `json:"text"`
}

// PollPayload is the payload of a moderator-started poll.
type PollPayload struct {
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	StartedBy AuthorSnapshot `json:"startedBy"`
}
