package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
	"github.com/beech80/clipt-final--sub000/internal/pkg/pubsub"
)

// roomTopicPrefix namespaces per-room pub/sub topics.
const roomTopicPrefix = "chat.room."

// envelope is the cross-process wire wrapper. Origin tags the publishing
// process so subscribers can skip their own events; local delivery already
// happened before publish.
type envelope struct {
	Origin string          `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

// Broadcaster fans events out to every session in a room, locally and across
// processes through the pub/sub transport. Delivery is at-most-once: a slow
// or failed transport never blocks or fails local delivery.
type Broadcaster struct {
	transport pubsub.Transport
	origin    string

	mu    sync.Mutex
	rooms map[string]*broadcastEntry

	logger zerolog.Logger
}

type broadcastEntry struct {
	deliver     func(*Event)
	unsubscribe func()
}

// NewBroadcaster builds a broadcaster over the given transport. Each process
// gets a unique origin id for the lifetime of the broadcaster.
func NewBroadcaster(transport pubsub.Transport) *Broadcaster {
	return &Broadcaster{
		transport: transport,
		origin:    uuid.NewString(),
		rooms:     make(map[string]*broadcastEntry),
		logger:    logx.Logger().With().Str("component", "Broadcaster").Logger(),
	}
}

// Attach subscribes the room to its cross-process topic and registers the
// local delivery sink. Attaching an already-attached room replaces the sink.
func (b *Broadcaster) Attach(roomID string, deliver func(*Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.rooms[roomID]; ok {
		prev.unsubscribe()
	}

	unsubscribe, err := b.transport.Subscribe(roomTopicPrefix+roomID, func(_ string, payload []byte) {
		b.receive(roomID, payload)
	})
	if err != nil {
		return err
	}

	b.rooms[roomID] = &broadcastEntry{deliver: deliver, unsubscribe: unsubscribe}
	return nil
}

// Detach unsubscribes the room; idempotent.
func (b *Broadcaster) Detach(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.rooms[roomID]; ok {
		entry.unsubscribe()
		delete(b.rooms, roomID)
	}
}

// Broadcast delivers the event to local sessions first, then publishes it for
// other processes. A transport failure is logged and swallowed.
func (b *Broadcaster) Broadcast(ctx context.Context, event *Event) {
	b.mu.Lock()
	entry, ok := b.rooms[event.RoomID]
	b.mu.Unlock()

	if ok {
		entry.deliver(event)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Str("room_id", event.RoomID).Msg("Event marshal failed.")
		return
	}

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: raw})
	if err != nil {
		b.logger.Error().Err(err).Str("room_id", event.RoomID).Msg("Envelope marshal failed.")
		return
	}

	if err := b.transport.Publish(ctx, roomTopicPrefix+event.RoomID, payload); err != nil {
		b.logger.Warn().Err(err).Str("room_id", event.RoomID).Msg("Cross-process publish failed, local delivery done.")
	}
}

// receive handles one envelope from the transport, skipping our own publishes.
func (b *Broadcaster) receive(roomID string, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Warn().Err(err).Str("room_id", roomID).Msg("Malformed envelope dropped.")
		return
	}

	if env.Origin == b.origin {
		return
	}

	var event Event
	if err := json.Unmarshal(env.Event, &event); err != nil {
		b.logger.Warn().Err(err).Str("room_id", roomID).Msg("Malformed event dropped.")
		return
	}

	b.mu.Lock()
	entry, ok := b.rooms[roomID]
	b.mu.Unlock()

	if ok {
		entry.deliver(&event)
	}
}

// Close detaches every room and closes the transport.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	for roomID, entry := range b.rooms {
		entry.unsubscribe()
		delete(b.rooms, roomID)
	}
	b.mu.Unlock()

	return b.transport.Close()
}
