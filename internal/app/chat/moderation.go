/*
Package chat contains the core logic of the real-time chat engine.

This file implements the moderation actions. Every action resolves the
actor's effective permissions (admins and the room owner hold all of them,
roster moderators hold their granted bits), mutates the in-memory room state,
mirrors durable records to the store, and broadcasts a room-wide moderation
event. Store failures are logged, never surfaced: the in-memory state already
changed and stays authoritative for this process.
*/
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// ModTarget identifies the subject of a moderation action.
type ModTarget struct {
	ID       string
	Username string
}

// Moderation applies moderator and admin actions to live rooms.
type Moderation struct {
	state  StateStore
	store  Store
	logger zerolog.Logger
}

// NewModeration builds the moderation service.
func NewModeration(state StateStore, store Store) *Moderation {
	return &Moderation{
		state:  state,
		store:  store,
		logger: logx.Logger().With().Str("component", "Moderation").Logger(),
	}
}

// overrides reports whether the actor bypasses roster permissions and
// privileged-target protection: platform admins and the room owner.
func (m *Moderation) overrides(room *Room, actor user.Identity) bool {
	return actor.IsAdmin || actor.ID == room.Config().OwnerID
}

// permissionsFor resolves the actor's effective permission bits in the room.
func (m *Moderation) permissionsFor(room *Room, actor user.Identity) (Permissions, bool) {
	if m.overrides(room, actor) {
		return FullPermissions(), true
	}
	return m.state.PermissionsOf(room.ID, actor.ID)
}

// targetPrivileged reports whether the target is protected from ordinary
// moderators: roster moderators, and admins when the target is connected.
// Requests may carry an id, a username, or both; both are checked.
func (m *Moderation) targetPrivileged(room *Room, target ModTarget) bool {
	if m.state.IsModerator(room.ID, target.ID) {
		return true
	}
	if s := room.MemberByID(target.ID); s != nil && s.Identity().IsAdmin {
		return true
	}
	if s := room.MemberByUsername(target.Username); s != nil {
		return s.Identity().IsAdmin
	}
	return false
}

// announce broadcasts a room-wide moderation event, followed by the system
// chat line describing it. System lines are ephemeral; they are never
// persisted to history.
func (m *Moderation) announce(ctx context.Context, room *Room, payload ModerationPayload) {
	room.Broadcast(ctx, &Event{Type: EventModeration, RoomID: room.ID, Payload: payload})

	if msg, ok := systemMessage(room.ID, payload); ok {
		room.Broadcast(ctx, &Event{Type: EventSystemMessage, RoomID: room.ID, Payload: msg})
	}
}

// systemMessage renders a moderation action as a system chat line.
func systemMessage(roomID string, payload ModerationPayload) (Message, bool) {
	name := payload.TargetName
	if name == "" {
		name = payload.TargetID
	}

	var text string
	msgType := TypeModeration

	switch payload.Action {
	case ActionTimeout:
		text = fmt.Sprintf("%s was timed out for %d seconds.", name, payload.DurationSeconds)
	case ActionBan:
		if payload.DurationSeconds > 0 {
			text = fmt.Sprintf("%s was banned for %d seconds.", name, payload.DurationSeconds)
		} else {
			text = fmt.Sprintf("%s was banned.", name)
		}
	case ActionUnban:
		text = fmt.Sprintf("%s was unbanned.", name)
	case ActionModeChange:
		msgType = TypeSystem
		if payload.Mode == ModeSlow {
			text = fmt.Sprintf("Chat is now in %s mode (%d second delay).", payload.Mode, payload.SlowDelay)
		} else {
			text = fmt.Sprintf("Chat is now in %s mode.", payload.Mode)
		}
	default:
		return Message{}, false
	}

	author := user.Identity{Username: "system", DisplayName: "System"}
	return NewMessage(roomID, author, msgType, text, text, nil), true
}

// Timeout bars the target from sending for the given duration.
func (m *Moderation) Timeout(ctx context.Context, room *Room, actor user.Identity, target ModTarget, duration time.Duration, reason string) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanTimeout {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if target.ID == "" {
		return errs.NewError(errs.ErrTargetNotFound)
	}
	if !m.overrides(room, actor) && m.targetPrivileged(room, target) {
		return errs.NewError(errs.ErrCannotTargetPrivileged)
	}
	if duration <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	m.state.SetTimeout(room.ID, target.ID, time.Now().Add(duration))

	m.announce(ctx, room, ModerationPayload{
		Action:          ActionTimeout,
		TargetID:        target.ID,
		TargetName:      target.Username,
		ActorName:       actor.DisplayName,
		DurationSeconds: int(duration / time.Second),
		Reason:          reason,
	})
	return nil
}

// Ban bars the target from the room. A non-positive duration means permanent.
// Banning a roster moderator requires a platform admin.
func (m *Moderation) Ban(ctx context.Context, room *Room, actor user.Identity, target ModTarget, duration time.Duration, reason string) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanBan {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if target.ID == "" {
		return errs.NewError(errs.ErrTargetNotFound)
	}
	if !actor.IsAdmin && m.targetPrivileged(room, target) {
		return errs.NewError(errs.ErrCannotTargetPrivileged)
	}

	ban := Ban{
		RoomID:    room.ID,
		UserID:    target.ID,
		Username:  target.Username,
		Reason:    reason,
		ByAdmin:   actor.IsAdmin,
		CreatedBy: actor.ID,
		CreatedAt: time.Now(),
	}
	if duration > 0 {
		ban.ExpiresAt = ban.CreatedAt.Add(duration)
	}

	if banErr := m.state.Ban(ban); banErr != nil {
		return banErr
	}

	if err := m.store.SaveBan(ctx, ban); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("Ban persist failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:          ActionBan,
		TargetID:        target.ID,
		TargetName:      target.Username,
		ActorName:       actor.DisplayName,
		DurationSeconds: int(duration / time.Second),
		Reason:          reason,
	})
	return nil
}

// Unban lifts the target's ban; unbanning a non-banned user is a no-op.
func (m *Moderation) Unban(ctx context.Context, room *Room, actor user.Identity, target ModTarget) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanBan {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if target.ID == "" {
		return errs.NewError(errs.ErrTargetNotFound)
	}

	m.state.Unban(room.ID, target.ID)

	if err := m.store.DeleteBan(ctx, room.ID, target.ID); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("Ban delete failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:     ActionUnban,
		TargetID:   target.ID,
		TargetName: target.Username,
		ActorName:  actor.DisplayName,
	})
	return nil
}

// ClearChat tells every client to wipe its visible backlog. Persisted history
// is untouched.
func (m *Moderation) ClearChat(ctx context.Context, room *Room, actor user.Identity) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanDeleteMessages {
		return errs.NewError(errs.ErrInsufficientPermission)
	}

	room.Broadcast(ctx, &Event{Type: EventClearChat, RoomID: room.ID, Payload: ModerationPayload{
		Action:    ActionClearChat,
		ActorName: actor.DisplayName,
	}})
	return nil
}

// DeleteMessage marks a single message deleted and tells clients to hide it.
func (m *Moderation) DeleteMessage(ctx context.Context, room *Room, actor user.Identity, messageID string) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanDeleteMessages {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if messageID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if err := m.store.MarkMessageDeleted(ctx, messageID); err != nil {
		m.logger.Error().Err(err).Str("message_id", messageID).Msg("Message delete persist failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:    ActionDeleteMsg,
		ActorName: actor.DisplayName,
		MessageID: messageID,
	})
	return nil
}

// SetMode switches the room's chat mode. Any mode may replace any other.
func (m *Moderation) SetMode(ctx context.Context, room *Room, actor user.Identity, mode ChatMode, slowDelay time.Duration) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanChangeChatMode {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if !ValidMode(mode) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	m.state.SetMode(room.ID, mode, slowDelay)

	// Mirror the mode into the persisted config so a later room load seeds it.
	cfg := *room.Config()
	cfg.Mode = mode
	cfg.SlowDelaySeconds = 0
	if mode == ModeSlow {
		_, d := m.state.Mode(room.ID)
		cfg.SlowDelaySeconds = int(d / time.Second)
	}
	room.SetConfig(&cfg)
	if err := m.store.SaveRoomConfig(ctx, cfg); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Msg("Mode persist failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:    ActionModeChange,
		ActorName: actor.DisplayName,
		Mode:      mode,
		SlowDelay: cfg.SlowDelaySeconds,
	})
	return nil
}

// AddModerator puts the target on the roster with the given permission bits.
func (m *Moderation) AddModerator(ctx context.Context, room *Room, actor user.Identity, target ModTarget, grant Permissions) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanManageMods {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if target.ID == "" {
		return errs.NewError(errs.ErrTargetNotFound)
	}

	m.state.SetModerator(room.ID, target.ID, grant)

	mod := Moderator{
		RoomID:      room.ID,
		UserID:      target.ID,
		Username:    target.Username,
		Permissions: grant,
		AddedBy:     actor.ID,
	}
	if err := m.store.SaveModerator(ctx, mod); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("Moderator persist failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:     ActionAddMod,
		TargetID:   target.ID,
		TargetName: target.Username,
		ActorName:  actor.DisplayName,
	})
	return nil
}

// RemoveModerator drops the target from the roster; idempotent.
func (m *Moderation) RemoveModerator(ctx context.Context, room *Room, actor user.Identity, target ModTarget) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanManageMods {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if target.ID == "" {
		return errs.NewError(errs.ErrTargetNotFound)
	}

	m.state.RemoveModerator(room.ID, target.ID)

	if err := m.store.DeleteModerator(ctx, room.ID, target.ID); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("Moderator delete failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:     ActionRemoveMod,
		TargetID:   target.ID,
		TargetName: target.Username,
		ActorName:  actor.DisplayName,
	})
	return nil
}

// UpdatePermissions replaces an existing roster entry's permission bits.
func (m *Moderation) UpdatePermissions(ctx context.Context, room *Room, actor user.Identity, target ModTarget, grant Permissions) *errs.CustomError {
	perms, ok := m.permissionsFor(room, actor)
	if !ok || !perms.CanManageMods {
		return errs.NewError(errs.ErrInsufficientPermission)
	}
	if _, onRoster := m.state.PermissionsOf(room.ID, target.ID); !onRoster {
		return errs.NewError(errs.ErrTargetNotFound)
	}

	m.state.SetModerator(room.ID, target.ID, grant)

	mod := Moderator{
		RoomID:      room.ID,
		UserID:      target.ID,
		Username:    target.Username,
		Permissions: grant,
		AddedBy:     actor.ID,
	}
	if err := m.store.SaveModerator(ctx, mod); err != nil {
		m.logger.Error().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("Moderator persist failed.")
	}

	m.announce(ctx, room, ModerationPayload{
		Action:     ActionUpdatePerms,
		TargetID:   target.ID,
		TargetName: target.Username,
		ActorName:  actor.DisplayName,
	})
	return nil
}
