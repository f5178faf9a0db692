package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// Room is one live chat room: the set of locally connected sessions plus the
// room's persisted configuration. Transient moderation state (mode, bans,
// timeouts) lives in the StateStore, not here.
type Room struct {
	ID string

	broadcaster *Broadcaster

	mu       sync.Mutex
	config   *RoomConfig
	sessions map[string]*Session

	// emptySince is the instant the last local session left, zero while the
	// room has members. The manager uses it for idle eviction.
	emptySince time.Time

	logger zerolog.Logger
}

// newRoom builds a room around its persisted configuration and attaches it to
// the broadcaster's cross-process topic.
func newRoom(config *RoomConfig, broadcaster *Broadcaster) (*Room, error) {
	r := &Room{
		ID:          config.ID,
		broadcaster: broadcaster,
		config:      config,
		sessions:    make(map[string]*Session),
		emptySince:  time.Now(),
		logger:      logx.Logger().With().Str("component", "Room").Str("room_id", config.ID).Logger(),
	}

	if err := broadcaster.Attach(r.ID, r.deliverLocal); err != nil {
		return nil, err
	}

	return r, nil
}

// Config returns the room's current persisted configuration.
func (r *Room) Config() *RoomConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// SetConfig swaps the room configuration, after a settings update.
func (r *Room) SetConfig(config *RoomConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
}

// Join adds a session to the room's local membership.
func (r *Room) Join(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	r.emptySince = time.Time{}
}

// Leave removes a session; idempotent. Returns whether the session was a member.
func (r *Room) Leave(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}

	delete(r.sessions, sessionID)
	if len(r.sessions) == 0 {
		r.emptySince = time.Now()
	}
	return true
}

// MemberCount returns the number of locally connected sessions.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// MemberByUsername finds a locally connected session by username,
// case-insensitively. Used for whisper targeting.
func (r *Room) MemberByUsername(username string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if strings.EqualFold(s.Identity().Username, username) {
			return s
		}
	}
	return nil
}

// MemberByID finds a locally connected session by the user's stable key.
func (r *Room) MemberByID(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Identity().Key() == userID {
			return s
		}
	}
	return nil
}

// removeMembersByID drops every local session belonging to the user and
// returns them. The user may hold several connections.
func (r *Room) removeMembersByID(userID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, s := range r.sessions {
		if s.Identity().Key() == userID {
			delete(r.sessions, id)
			removed = append(removed, s)
		}
	}
	if len(removed) > 0 && len(r.sessions) == 0 {
		r.emptySince = time.Now()
	}
	return removed
}

// IdleSince reports when the room last became empty. ok is false while the
// room has members.
func (r *Room) IdleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) > 0 || r.emptySince.IsZero() {
		return time.Time{}, false
	}
	return r.emptySince, true
}

// Broadcast fans an event out to every member, local and remote.
func (r *Room) Broadcast(ctx context.Context, event *Event) {
	r.broadcaster.Broadcast(ctx, event)
}

// deliverLocal pushes an event to every local session. A session whose send
// queue is full is skipped; the connection's own write pump will close it if
// it stays stuck. Moderation events apply their membership side effects
// before fan-out, so a banned target is evicted on every process that holds
// one of its connections.
func (r *Room) deliverLocal(event *Event) {
	r.applyModeration(event)

	r.mu.Lock()
	members := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		members = append(members, s)
	}
	r.mu.Unlock()

	for _, s := range members {
		if !s.Enqueue(event) {
			r.logger.Warn().Str("session_id", s.ID).Msg("Send queue full, event dropped for session.")
		}
	}
}

// applyModeration carries out the membership side of a moderation event:
// the target of a ban is evicted with a targeted banned notice, the target of
// a timeout gets its targeted notice. The evicted target is removed before
// fan-out, so the room-wide moderation event never reaches it; its removal is
// announced by that same moderation event instead of a separate userLeft.
func (r *Room) applyModeration(event *Event) {
	action, targetID, ok := moderationTarget(event)
	if !ok || targetID == "" {
		return
	}

	switch action {
	case ActionTimeout:
		if s := r.MemberByID(targetID); s != nil {
			s.Enqueue(&Event{Type: EventTimeout, RoomID: r.ID, Payload: event.Payload})
		}

	case ActionBan:
		for _, s := range r.removeMembersByID(targetID) {
			s.Enqueue(&Event{Type: EventBanned, RoomID: r.ID, Payload: event.Payload})
			s.evictedFrom(r.ID)
			r.logger.Info().Str("session_id", s.ID).Str("user_id", targetID).Msg("Banned member evicted.")
		}
	}
}

// moderationTarget extracts the action and target from a moderation event.
// Locally originated events carry a typed payload; events from the transport
// arrive as decoded JSON.
func moderationTarget(event *Event) (ModerationAction, string, bool) {
	if event.Type != EventModeration {
		return "", "", false
	}

	switch p := event.Payload.(type) {
	case ModerationPayload:
		return p.Action, p.TargetID, true
	case map[string]any:
		action, _ := p["action"].(string)
		target, _ := p["targetId"].(string)
		return ModerationAction(action), target, true
	}
	return "", "", false
}

// close detaches the room from the broadcaster.
func (r *Room) close() {
	r.broadcaster.Detach(r.ID)
}
