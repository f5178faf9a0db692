package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

const (
	// defaultIdleTTL is how long an empty room stays live before eviction.
	defaultIdleTTL = 5 * time.Minute

	// cleanupInterval paces the idle-room sweep.
	cleanupInterval = time.Minute
)

// Manager owns the live room table. Rooms are created lazily on first join
// and evicted after sitting empty past the idle TTL; persisted configuration
// and moderation records survive eviction in the external store.
type Manager struct {
	store       Store
	state       StateStore
	broadcaster *Broadcaster

	idleTTL time.Duration

	mu    sync.RWMutex
	rooms map[string]*Room

	stop     chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewManager builds a manager and starts its idle-eviction loop.
func NewManager(store Store, state StateStore, broadcaster *Broadcaster, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}

	m := &Manager{
		store:       store,
		state:       state,
		broadcaster: broadcaster,
		idleTTL:     idleTTL,
		rooms:       make(map[string]*Room),
		stop:        make(chan struct{}),
		logger:      logx.Logger().With().Str("component", "RoomManager").Logger(),
	}

	go m.cleanupLoop()
	return m
}

// GetRoom returns the live room, or nil when it is not materialized.
func (m *Manager) GetRoom(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// GetOrCreate returns the live room, materializing it from persisted
// configuration on first touch. Unknown room ids are an error; rooms are
// provisioned through CreateRoom, never implicitly by joining.
func (m *Manager) GetOrCreate(ctx context.Context, roomID string) (*Room, *errs.CustomError) {
	m.mu.RLock()
	room, ok := m.rooms[roomID]
	m.mu.RUnlock()

	if ok {
		return room, nil
	}

	config, err := m.store.FindRoomConfig(ctx, roomID)
	if err != nil {
		m.logger.Error().Err(err).Str("room_id", roomID).Msg("Room config lookup failed.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	if config == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
	config.CompileFilters()

	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok = m.rooms[roomID]; ok {
		return room, nil
	}

	room, roomErr := newRoom(config, m.broadcaster)
	if roomErr != nil {
		m.logger.Error().Err(roomErr).Str("room_id", roomID).Msg("Room subscription failed.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	m.seedState(ctx, config)
	m.rooms[roomID] = room

	m.logger.Info().Str("room_id", roomID).Msg("Room materialized.")
	return room, nil
}

// seedState loads persisted moderation records into the transient state store
// so bans and rosters survive room eviction and process restarts.
func (m *Manager) seedState(ctx context.Context, config *RoomConfig) {
	m.state.SetMode(config.ID, config.Mode, time.Duration(config.SlowDelaySeconds)*time.Second)

	mods, err := m.store.FindModerators(ctx, config.ID)
	if err != nil {
		m.logger.Warn().Err(err).Str("room_id", config.ID).Msg("Moderator roster load failed.")
	}
	for _, mod := range mods {
		m.state.SetModerator(config.ID, mod.UserID, mod.Permissions)
	}

	bans, err := m.store.FindBans(ctx, config.ID)
	if err != nil {
		m.logger.Warn().Err(err).Str("room_id", config.ID).Msg("Ban list load failed.")
	}
	now := time.Now()
	for _, ban := range bans {
		if !ban.Active(now) {
			continue
		}
		if banErr := m.state.Ban(ban); banErr != nil {
			m.logger.Warn().Str("room_id", config.ID).Str("user_id", ban.UserID).Msg("Persisted ban skipped on seed.")
		}
	}
}

// CreateRoom provisions a new room configuration. The live room materializes
// on first join.
func (m *Manager) CreateRoom(ctx context.Context, config *RoomConfig) *errs.CustomError {
	if config.ID == "" || config.OwnerID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if !ValidMode(config.Mode) {
		config.Mode = ModeNormal
	}
	config.CompileFilters()

	if err := m.store.SaveRoomConfig(ctx, *config); err != nil {
		m.logger.Error().Err(err).Str("room_id", config.ID).Msg("Room config save failed.")
		return errs.NewError(errs.ErrUnknown)
	}

	return nil
}

// cleanupLoop evicts rooms that have sat empty past the idle TTL.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(time.Now())
		case <-m.stop:
			return
		}
	}
}

// evictIdle drops every room empty since before now - idleTTL.
func (m *Manager) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, room := range m.rooms {
		since, idle := room.IdleSince()
		if !idle || now.Sub(since) < m.idleTTL {
			continue
		}

		room.close()
		m.state.Evict(id)
		delete(m.rooms, id)
		m.logger.Info().Str("room_id", id).Msg("Idle room evicted.")
	}
}

// Shutdown stops the eviction loop and detaches every live room.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, room := range m.rooms {
		room.close()
		delete(m.rooms, id)
	}
}
