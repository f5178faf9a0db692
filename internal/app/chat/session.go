/*
Package chat contains the core logic of the real-time chat engine.

This file defines the Session struct, one authenticated (or guest) WebSocket
connection. It owns the connection's read and write loops, the per-connection
state machine, and the full send pipeline from inbound frame to broadcast.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/app/analytics"
	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendQueueSize is the per-session outbound event buffer.
	sendQueueSize = 64
)

// SessionState is the connection's lifecycle phase.
type SessionState string

const (
	StateConnecting     SessionState = "connecting"
	StateAuthenticating SessionState = "authenticating"
	StateIdle           SessionState = "idle"
	StateJoined         SessionState = "joined"
)

// SessionDeps bundles the collaborators every session needs.
type SessionDeps struct {
	Manager    *Manager
	State      StateStore
	Store      Store
	Saver      MessageSaver
	Processor  *Processor
	Limiter    *SendLimiter
	Moderation *Moderation
	Emotes     emote.Resolver
	Analytics  analytics.Recorder
}

// Session represents one active WebSocket connection and its participant.
type Session struct {
	ID string

	conn *websocket.Conn
	deps *SessionDeps

	mu       sync.Mutex
	state    SessionState
	identity user.Identity
	room     *Room

	// send queues outbound events for the write pump. Fan-out never blocks on
	// a slow client; a full queue drops the event.
	send chan *Event

	closeOnce sync.Once
	logger    zerolog.Logger
}

// NewSession wraps an upgraded connection. The session starts in the
// connecting state; the handler attaches the verified identity.
func NewSession(conn *websocket.Conn, deps *SessionDeps) *Session {
	id := uuid.NewString()

	return &Session{
		ID:     id,
		conn:   conn,
		deps:   deps,
		state:  StateConnecting,
		send:   make(chan *Event, sendQueueSize),
		logger: logx.Logger().With().Str("session_id", id).Logger(),
	}
}

// Authenticate attaches the verified identity and moves the session to idle.
func (s *Session) Authenticate(identity user.Identity) {
	s.mu.Lock()
	s.identity = identity
	s.state = StateIdle
	s.mu.Unlock()

	s.logger = s.logger.With().Str("username", identity.Username).Bool("guest", identity.Guest).Logger()
	s.logger.Info().Msg("Session authenticated.")
}

// Identity returns the participant's identity snapshot.
func (s *Session) Identity() user.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// State returns the session's lifecycle phase.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enqueue queues an event for delivery, returning false when the queue is full.
func (s *Session) Enqueue(event *Event) bool {
	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}

// snapshot freezes the identity for event payloads.
func (s *Session) snapshot() AuthorSnapshot {
	id := s.Identity()
	return AuthorSnapshot{
		ID:          id.ID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Tier:        id.Tier,
		IsModerator: id.IsModerator,
		IsAdmin:     id.IsAdmin,
		Color:       id.Color,
	}
}

// inboundFrame is the envelope clients send.
type inboundFrame struct {
	Type    EventType       `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ModerationRequest is the inbound payload of a moderation frame.
type ModerationRequest struct {
	Action           ModerationAction `json:"action"`
	TargetID         string           `json:"targetId,omitempty"`
	TargetName       string           `json:"targetName,omitempty"`
	DurationSeconds  int              `json:"durationSeconds,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Mode             ChatMode         `json:"mode,omitempty"`
	SlowDelaySeconds int              `json:"slowDelaySeconds,omitempty"`
	MessageID        string           `json:"messageId,omitempty"`
	Permissions      *Permissions     `json:"permissions,omitempty"`
}

// ReadPump reads frames from the WebSocket connection until it closes.
// It handles heartbeats (Pong) and performs cleanup on exit.
func (s *Session) ReadPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.handleFrame(frameBytes)
	}
}

// cleanupOnDisconnect leaves the current room and closes the connection.
func (s *Session) cleanupOnDisconnect() {
	s.logger.Info().Msg("Session cleanup starting.")

	s.handleLeave(context.Background())

	s.closeOnce.Do(func() { close(s.send) })

	if err := s.conn.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Session connection close error")
	}
}

// handleFrame dispatches one raw inbound frame.
func (s *Session) handleFrame(frameBytes []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case EventJoinRoom:
		var payload struct {
			HistoryLimit int `json:"historyLimit,omitempty"`
		}
		if len(frame.Payload) > 0 {
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
				return
			}
		}
		s.handleJoin(ctx, frame.RoomID, payload.HistoryLimit)

	case EventLeaveRoom:
		s.handleLeave(ctx)

	case EventChatMessage:
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}
		s.handleChat(ctx, payload.Content)

	case EventDonation:
		var payload struct {
			Content string `json:"content"`
			Amount  int64  `json:"amount"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}
		s.handleDonation(ctx, payload.Content, payload.Amount)

	case EventTyping:
		s.handleTyping(ctx, true)

	case EventStoppedTyping:
		s.handleTyping(ctx, false)

	case EventModeration:
		var req ModerationRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			s.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}
		s.handleModeration(ctx, req)

	default:
		s.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type")
		s.sendError(errs.NewError(errs.ErrInvalidParams))
	}
}

// joinedRoom returns the current room when the session is in the joined state.
func (s *Session) joinedRoom() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return nil
	}
	return s.room
}

// handleJoin admits the session into a room. Joining while already joined
// switches rooms: the old room is left first. Admission gates run before any
// membership change, so a rejected switch leaves the old membership intact.
func (s *Session) handleJoin(ctx context.Context, roomID string, historyLimit int) {
	if st := s.State(); st != StateIdle && st != StateJoined {
		s.sendError(errs.NewError(errs.ErrInvalidSessionState))
		return
	}
	if roomID == "" {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	room, cerr := s.deps.Manager.GetOrCreate(ctx, roomID)
	if cerr != nil {
		s.sendError(cerr)
		return
	}

	identity := s.Identity()
	config := room.Config()

	if config.RequiresAuth && identity.Guest {
		s.sendError(errs.NewError(errs.ErrAuthRequired))
		return
	}
	if config.SubscriberOnly && !identity.Tier.IsSubscriber() &&
		!identity.Privileged() && identity.ID != config.OwnerID {
		s.sendError(errs.NewError(errs.ErrSubscriptionRequired))
		return
	}
	if s.deps.State.IsBanned(roomID, identity.Key(), time.Now()) {
		s.sendError(errs.NewError(errs.ErrBannedFromRoom))
		return
	}

	s.handleLeave(ctx)

	// The join notice goes out before membership is added, so it reaches the
	// existing members only, never the joiner itself.
	room.Broadcast(ctx, &Event{Type: EventUserJoined, RoomID: roomID, Payload: UserEventPayload{User: s.snapshot()}})

	room.Join(s)
	s.mu.Lock()
	s.room = room
	s.state = StateJoined
	s.mu.Unlock()

	s.sendHistory(ctx, room, historyLimit)
	s.deps.Analytics.UserJoined(roomID, room.MemberCount())
}

// sendHistory delivers the backlog and current room mode to this session only.
func (s *Session) sendHistory(ctx context.Context, room *Room, limit int) {
	messages, err := s.deps.Store.FindRecentMessages(ctx, room.ID, clampHistoryLimit(limit), time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("History load failed, joining with empty backlog.")
		messages = nil
	}

	mode, delay := s.deps.State.Mode(room.ID)

	s.Enqueue(&Event{Type: EventChatHistory, RoomID: room.ID, Payload: HistoryPayload{
		Messages:  messages,
		Mode:      mode,
		SlowDelay: int(delay / time.Second),
	}})
}

// handleLeave removes the session from its room; idempotent.
func (s *Session) handleLeave(ctx context.Context) {
	s.mu.Lock()
	room := s.room
	s.room = nil
	if s.state == StateJoined {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if room == nil {
		return
	}

	if room.Leave(s.ID) {
		room.Broadcast(ctx, &Event{Type: EventUserLeft, RoomID: room.ID, Payload: UserEventPayload{User: s.snapshot()}})
		s.deps.Analytics.UserLeft(room.ID, room.MemberCount())
	}
}

// evictedFrom resets the session to idle after the room removed it. The room
// already dropped the membership; only the session's own view needs clearing.
func (s *Session) evictedFrom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room != nil && s.room.ID == roomID {
		s.room = nil
		if s.state == StateJoined {
			s.state = StateIdle
		}
	}
}

// canBypassModes reports whether the identity skips the restrictive chat mode
// gates: platform staff, the room owner, and roster moderators.
func (s *Session) canBypassModes(room *Room, identity user.Identity) bool {
	return identity.Privileged() ||
		identity.ID == room.Config().OwnerID ||
		s.deps.State.IsModerator(room.ID, identity.Key())
}

// handleChat runs the full send pipeline for one chat message.
func (s *Session) handleChat(ctx context.Context, content string) {
	room := s.joinedRoom()
	if room == nil {
		s.sendError(errs.NewError(errs.ErrInvalidSessionState))
		return
	}

	identity := s.Identity()
	now := time.Now()

	if !s.deps.Limiter.Allow(identity) {
		s.sendError(errs.NewError(errs.ErrRateLimited))
		return
	}

	maxLen := identity.Tier.MaxMessageLength()
	if utf8.RuneCountInString(content) > maxLen {
		s.sendError(errs.NewError(errs.ErrLengthExceeded, maxLen))
		return
	}

	if s.deps.State.IsBanned(room.ID, identity.Key(), now) {
		s.sendError(errs.NewError(errs.ErrBannedFromRoom))
		return
	}

	if remaining := s.deps.State.TimeoutRemaining(room.ID, identity.Key(), now); remaining > 0 {
		s.sendError(errs.NewError(errs.ErrTimedOut, ceilSeconds(remaining)))
		return
	}

	bypass := s.canBypassModes(room, identity)

	emotes, err := s.deps.Emotes.VisibleTo(ctx, identity, room.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Emote resolution failed, sending without emotes.")
		emotes = nil
	}

	result, perr := s.deps.Processor.Process(ProcessInput{
		Content:     content,
		Author:      identity,
		AuthorIsMod: bypass,
		Room:        room.Config(),
		Emotes:      emotes,
	})
	if perr != nil {
		s.sendError(perr)
		return
	}

	if result.Kind == KindCommand {
		s.dispatchCommand(ctx, room, result.Command)
		return
	}

	if cerr := s.checkModeGates(room, identity, result, bypass, now); cerr != nil {
		s.sendError(cerr)
		return
	}

	msg := NewMessage(room.ID, identity, result.MessageType, result.Content, result.RenderedContent, result.Emotes)
	room.Broadcast(ctx, &Event{Type: EventChatMessage, RoomID: room.ID, Payload: msg})

	if !s.deps.Saver.Enqueue(msg) {
		s.logger.Warn().Str("message_id", msg.ID).Msg("Persistence queue full, message not stored.")
	}

	s.deps.Analytics.MessageSent(room.ID, identity.Key(), string(identity.Tier))
}

// checkModeGates enforces the room's restrictive chat mode against one send.
// Moderators, admins, and the owner bypass every gate.
func (s *Session) checkModeGates(room *Room, identity user.Identity, result *ProcessResult, bypass bool, now time.Time) *errs.CustomError {
	if bypass {
		return nil
	}

	mode, delay := s.deps.State.Mode(room.ID)

	switch mode {
	case ModeSubscribersOnly:
		if !identity.Tier.IsSubscriber() {
			return errs.NewError(errs.ErrModeViolation, "subscribers-only")
		}

	case ModeFollowersOnly:
		// Follow relationships live outside the chat engine; guests are the
		// only senders this gate can reject.
		if identity.Guest {
			return errs.NewError(errs.ErrModeViolation, "followers-only")
		}

	case ModeEmoteOnly:
		if !result.EmoteOnly {
			return errs.NewError(errs.ErrModeViolation, "emote-only")
		}

	case ModeSlow:
		remaining, allowed := s.deps.State.CheckSlowMode(room.ID, identity.Key(), delay, now)
		if !allowed {
			return errs.NewError(errs.ErrSlowMode, ceilSeconds(remaining))
		}
	}

	return nil
}

// dispatchCommand applies a parsed command's side effects.
func (s *Session) dispatchCommand(ctx context.Context, room *Room, cmd *Command) {
	switch cmd.Name {
	case CmdColor:
		s.mu.Lock()
		s.identity.Color = cmd.Color
		s.mu.Unlock()

		room.Broadcast(ctx, &Event{Type: EventColorChanged, RoomID: room.ID, Payload: ColorPayload{
			User:  s.snapshot(),
			Color: cmd.Color,
		}})

	case CmdWhisper:
		target := room.MemberByUsername(cmd.WhisperTo)
		if target == nil {
			s.sendError(errs.NewError(errs.ErrTargetNotFound))
			return
		}

		whisper := &Event{Type: EventWhisper, RoomID: room.ID, Payload: WhisperPayload{
			From: s.snapshot(),
			To:   target.Identity().Username,
			Text: cmd.WhisperText,
		}}
		target.Enqueue(whisper)
		s.Enqueue(whisper)

	case CmdPoll:
		room.Broadcast(ctx, &Event{Type: EventPoll, RoomID: room.ID, Payload: PollPayload{
			Question:  cmd.PollQuestion,
			Options:   cmd.PollOptions,
			StartedBy: s.snapshot(),
		}})
	}
}

// handleDonation broadcasts a donation with its highlighted message.
// Donations skip the send limiter and mode gates but not the content filters.
func (s *Session) handleDonation(ctx context.Context, content string, amount int64) {
	room := s.joinedRoom()
	if room == nil {
		s.sendError(errs.NewError(errs.ErrInvalidSessionState))
		return
	}

	identity := s.Identity()
	if identity.Guest {
		s.sendError(errs.NewError(errs.ErrAuthRequired))
		return
	}
	if amount <= 0 {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	maxLen := identity.Tier.MaxMessageLength()
	if utf8.RuneCountInString(content) > maxLen {
		s.sendError(errs.NewError(errs.ErrLengthExceeded, maxLen))
		return
	}

	emotes, err := s.deps.Emotes.VisibleTo(ctx, identity, room.ID)
	if err != nil {
		emotes = nil
	}

	result, perr := s.deps.Processor.Process(ProcessInput{
		Content:     content,
		Author:      identity,
		AuthorIsMod: s.canBypassModes(room, identity),
		Room:        room.Config(),
		Emotes:      emotes,
	})
	if perr != nil {
		s.sendError(perr)
		return
	}
	if result.Kind == KindCommand {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	msg := NewMessage(room.ID, identity, TypeDonation, result.Content, result.RenderedContent, result.Emotes)
	room.Broadcast(ctx, &Event{Type: EventDonation, RoomID: room.ID, Payload: DonationPayload{
		Message: msg,
		Amount:  amount,
	}})

	if !s.deps.Saver.Enqueue(msg) {
		s.logger.Warn().Str("message_id", msg.ID).Msg("Persistence queue full, donation not stored.")
	}

	s.deps.Analytics.DonationReceived(room.ID, identity.Key(), amount)
}

// handleTyping relays a typing indicator; never persisted, never rate limited.
func (s *Session) handleTyping(ctx context.Context, typing bool) {
	room := s.joinedRoom()
	if room == nil {
		return
	}

	eventType := EventTyping
	if !typing {
		eventType = EventStoppedTyping
	}

	room.Broadcast(ctx, &Event{Type: eventType, RoomID: room.ID, Payload: UserEventPayload{User: s.snapshot()}})
}

// handleModeration dispatches one inbound moderation request.
func (s *Session) handleModeration(ctx context.Context, req ModerationRequest) {
	room := s.joinedRoom()
	if room == nil {
		s.sendError(errs.NewError(errs.ErrInvalidSessionState))
		return
	}

	actor := s.Identity()
	target := ModTarget{ID: req.TargetID, Username: req.TargetName}

	// Clients usually target by name; resolve the id from local membership.
	if target.ID == "" && target.Username != "" {
		if member := room.MemberByUsername(target.Username); member != nil {
			id := member.Identity()
			target.ID = id.Key()
			target.Username = id.Username
		}
	}

	var cerr *errs.CustomError
	switch req.Action {
	case ActionTimeout:
		cerr = s.deps.Moderation.Timeout(ctx, room, actor, target, time.Duration(req.DurationSeconds)*time.Second, req.Reason)
	case ActionBan:
		cerr = s.deps.Moderation.Ban(ctx, room, actor, target, time.Duration(req.DurationSeconds)*time.Second, req.Reason)
	case ActionUnban:
		cerr = s.deps.Moderation.Unban(ctx, room, actor, target)
	case ActionClearChat:
		cerr = s.deps.Moderation.ClearChat(ctx, room, actor)
	case ActionDeleteMsg:
		cerr = s.deps.Moderation.DeleteMessage(ctx, room, actor, req.MessageID)
	case ActionModeChange:
		cerr = s.deps.Moderation.SetMode(ctx, room, actor, req.Mode, time.Duration(req.SlowDelaySeconds)*time.Second)
	case ActionAddMod:
		grant := FullPermissions()
		if req.Permissions != nil {
			grant = *req.Permissions
		}
		cerr = s.deps.Moderation.AddModerator(ctx, room, actor, target, grant)
	case ActionRemoveMod:
		cerr = s.deps.Moderation.RemoveModerator(ctx, room, actor, target)
	case ActionUpdatePerms:
		if req.Permissions == nil {
			cerr = errs.NewError(errs.ErrInvalidParams)
		} else {
			cerr = s.deps.Moderation.UpdatePermissions(ctx, room, actor, target, *req.Permissions)
		}
	default:
		cerr = errs.NewError(errs.ErrInvalidParams)
	}

	if cerr != nil {
		s.sendError(cerr)
		return
	}

	s.deps.Analytics.ModerationApplied(room.ID, string(req.Action))
}

// sendError delivers a structured rejection to this session only.
func (s *Session) sendError(cerr *errs.CustomError) {
	s.Enqueue(&Event{Type: EventError, Payload: ErrorPayload{
		Code:    cerr.Code,
		Message: cerr.Message,
	}})
}

// WritePump writes queued events to the WebSocket connection and keeps the
// heartbeat alive.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Session connection close error in WritePump")
		}
	}()

	for {
		select {
		case event, ok := <-s.send:
			if !s.writeQueuedEvent(event, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedEvent writes one event to the connection.
// Returns false when the pump should terminate.
func (s *Session) writeQueuedEvent(event *Event, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error marshaling event")
		return true
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Error().Err(err).Msg("Error writing event")
		return false
	}

	return true
}

// writePing sends the heartbeat ping.
// Returns false when the pump should terminate.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// ceilSeconds rounds a duration up to whole seconds for user-facing waits.
func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}
