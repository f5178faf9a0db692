/*
Package chat contains the core logic of the real-time chat engine.

This file defines the StateStore, the in-memory authoritative table of per-room
transient state: chat mode, slow-mode delay, ban and timeout sets, and the
moderator roster. It is authoritative for the life of the process; bans and
moderators are mirrored to persistence by the moderation actions for audit and
restart survival.
*/
package chat

import (
	"sync"
	"time"

	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

// StateStore is the injected abstraction over per-room transient state.
// Implementations must serialize mutations per room while letting operations
// on different rooms proceed concurrently; a global lock is not acceptable.
//
// All expiry (bans, timeouts, slow mode) is lazy: callers pass the current
// time and stale entries are ignored at access time, never swept on a timer.
type StateStore interface {
	// Mode returns the room's chat mode and slow-mode delay.
	Mode(roomID string) (ChatMode, time.Duration)

	// SetMode switches the room's chat mode. Any mode may follow any other.
	// Enabling slow mode with a non-positive delay applies DefaultSlowDelay.
	SetMode(roomID string, mode ChatMode, slowDelay time.Duration)

	// IsBanned reports whether the user's ban is active at the given time.
	IsBanned(roomID, userID string, now time.Time) bool

	// Ban records a ban. Banning a user on the room's moderator roster is
	// rejected unless the ban was applied by an admin.
	Ban(ban Ban) *errs.CustomError

	// Unban removes any ban for the user. Unbanning a non-banned user is a no-op.
	Unban(roomID, userID string)

	// IsModerator reports roster membership.
	IsModerator(roomID, userID string) bool

	// PermissionsOf returns the user's permission bits and whether they are on the roster.
	PermissionsOf(roomID, userID string) (Permissions, bool)

	// SetModerator adds or updates a roster entry.
	SetModerator(roomID, userID string, perms Permissions)

	// RemoveModerator drops a roster entry; idempotent.
	RemoveModerator(roomID, userID string)

	// SetTimeout bars the user from sending until the deadline.
	SetTimeout(roomID, userID string, until time.Time)

	// TimeoutRemaining returns how long the user stays barred, or zero when
	// no timeout is active.
	TimeoutRemaining(roomID, userID string, now time.Time) time.Duration

	// CheckSlowMode atomically checks and, when allowed, records a send for
	// slow-mode pacing. It returns the remaining wait and whether the send
	// may proceed.
	CheckSlowMode(roomID, userID string, delay time.Duration, now time.Time) (time.Duration, bool)

	// Evict drops all transient state for the room. Persisted state survives
	// in the external store.
	Evict(roomID string)
}

// roomState is the per-room shard. Each shard carries its own mutex so
// concurrent moderation of different rooms never contends.
type roomState struct {
	mu sync.Mutex

	mode      ChatMode
	slowDelay time.Duration

	// bans maps user id to the ban record; expiry is checked lazily.
	bans map[string]Ban

	// mods maps user id to permission bits.
	mods map[string]Permissions

	// timeouts maps user id to the send-bar deadline.
	timeouts map[string]time.Time

	// lastSent maps user id to the most recent accepted send, for slow mode.
	// Only the latest timestamp per user is needed, so memory stays bounded
	// by room membership.
	lastSent map[string]time.Time
}

// MemoryState is the in-process StateStore implementation.
type MemoryState struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

// NewMemoryState returns an empty state store.
func NewMemoryState() *MemoryState {
	return &MemoryState{rooms: make(map[string]*roomState)}
}

// shard returns the room's state shard, creating it on first touch.
// The outer lock only guards the shard map, never room data.
func (s *MemoryState) shard(roomID string) *roomState {
	s.mu.RLock()
	rs, ok := s.rooms[roomID]
	s.mu.RUnlock()

	if ok {
		return rs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rs, ok = s.rooms[roomID]; ok {
		return rs
	}

	rs = &roomState{
		mode:     ModeNormal,
		bans:     make(map[string]Ban),
		mods:     make(map[string]Permissions),
		timeouts: make(map[string]time.Time),
		lastSent: make(map[string]time.Time),
	}
	s.rooms[roomID] = rs
	return rs
}

// Mode returns the room's current chat mode and slow delay.
func (s *MemoryState) Mode(roomID string) (ChatMode, time.Duration) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.mode, rs.slowDelay
}

// SetMode switches the chat mode; see StateStore.
func (s *MemoryState) SetMode(roomID string, mode ChatMode, slowDelay time.Duration) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.mode = mode
	if mode == ModeSlow {
		if slowDelay <= 0 {
			slowDelay = DefaultSlowDelay
		}
		rs.slowDelay = slowDelay
	} else {
		rs.slowDelay = 0
	}
}

// IsBanned reports whether an unexpired ban exists for the user.
func (s *MemoryState) IsBanned(roomID, userID string, now time.Time) bool {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ban, ok := rs.bans[userID]
	return ok && ban.Active(now)
}

// Ban records a ban, enforcing the moderator-ban invariant.
func (s *MemoryState) Ban(ban Ban) *errs.CustomError {
	rs := s.shard(ban.RoomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, isMod := rs.mods[ban.UserID]; isMod && !ban.ByAdmin {
		return errs.NewError(errs.ErrCannotTargetPrivileged)
	}

	rs.bans[ban.UserID] = ban
	return nil
}

// Unban removes the user's ban entry.
func (s *MemoryState) Unban(roomID, userID string) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.bans, userID)
}

// IsModerator reports roster membership.
func (s *MemoryState) IsModerator(roomID, userID string) bool {
	_, ok := s.PermissionsOf(roomID, userID)
	return ok
}

// PermissionsOf returns the roster entry's permission bits.
func (s *MemoryState) PermissionsOf(roomID, userID string) (Permissions, bool) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	perms, ok := rs.mods[userID]
	return perms, ok
}

// SetModerator adds or updates a roster entry.
func (s *MemoryState) SetModerator(roomID, userID string, perms Permissions) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.mods[userID] = perms
}

// RemoveModerator drops a roster entry.
func (s *MemoryState) RemoveModerator(roomID, userID string) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.mods, userID)
}

// SetTimeout bars the user from sending until the deadline.
func (s *MemoryState) SetTimeout(roomID, userID string, until time.Time) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.timeouts[userID] = until
}

// TimeoutRemaining returns the remaining bar duration, deleting expired entries on access.
func (s *MemoryState) TimeoutRemaining(roomID, userID string, now time.Time) time.Duration {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	until, ok := rs.timeouts[userID]
	if !ok {
		return 0
	}

	if !until.After(now) {
		delete(rs.timeouts, userID)
		return 0
	}

	return until.Sub(now)
}

// CheckSlowMode applies per-user slow-mode pacing; see StateStore.
func (s *MemoryState) CheckSlowMode(roomID, userID string, delay time.Duration, now time.Time) (time.Duration, bool) {
	rs := s.shard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if delay <= 0 {
		return 0, true
	}

	last, ok := rs.lastSent[userID]
	if ok {
		eligible := last.Add(delay)
		if eligible.After(now) {
			return eligible.Sub(now), false
		}
	}

	rs.lastSent[userID] = now
	return 0, true
}

// Evict drops the room's shard entirely.
func (s *MemoryState) Evict(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}
