package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beech80/clipt-final--sub000/internal/app/analytics"
	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/pubsub"
)

// stubStore is an in-memory Store for session and moderation tests.
type stubStore struct {
	mu      sync.Mutex
	configs map[string]RoomConfig
	history map[string][]Message
	deleted []string
	bans    []Ban
	mods    []Moderator
}

func newStubStore() *stubStore {
	return &stubStore{
		configs: make(map[string]RoomConfig),
		history: make(map[string][]Message),
	}
}

func (s *stubStore) SaveMessage(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[msg.RoomID] = append(s.history[msg.RoomID], msg)
	return nil
}

func (s *stubStore) FindRecentMessages(_ context.Context, roomID string, limit int, _ time.Time) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.history[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *stubStore) MarkMessageDeleted(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *stubStore) FindRoomConfig(_ context.Context, roomID string) (*RoomConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[roomID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *stubStore) SaveRoomConfig(_ context.Context, cfg RoomConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg
	return nil
}

func (s *stubStore) SaveBan(_ context.Context, ban Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans = append(s.bans, ban)
	return nil
}

func (s *stubStore) DeleteBan(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.bans[:0]
	for _, b := range s.bans {
		if b.RoomID != roomID || b.UserID != userID {
			kept = append(kept, b)
		}
	}
	s.bans = kept
	return nil
}

func (s *stubStore) FindBans(_ context.Context, roomID string) ([]Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Ban
	for _, b := range s.bans {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) SaveModerator(_ context.Context, mod Moderator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods = append(s.mods, mod)
	return nil
}

func (s *stubStore) DeleteModerator(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.mods[:0]
	for _, m := range s.mods {
		if m.RoomID != roomID || m.UserID != userID {
			kept = append(kept, m)
		}
	}
	s.mods = kept
	return nil
}

func (s *stubStore) FindModerators(_ context.Context, roomID string) ([]Moderator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Moderator
	for _, m := range s.mods {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) deletedMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *stubStore) savedConfig(roomID string) (RoomConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[roomID]
	return cfg, ok
}

// stubSaver records enqueued messages synchronously.
type stubSaver struct {
	mu   sync.Mutex
	msgs []Message
	full bool
}

func (s *stubSaver) Enqueue(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		return false
	}
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *stubSaver) saved() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

// stubResolver serves a fixed emote set.
type stubResolver struct {
	emotes []emote.Emote
	err    error
}

func (r *stubResolver) VisibleTo(context.Context, user.Identity, string) ([]emote.Emote, error) {
	return r.emotes, r.err
}

// fixture wires a full engine around in-memory collaborators.
type fixture struct {
	store  *stubStore
	state  *MemoryState
	saver  *stubSaver
	emotes *stubResolver
	deps   *SessionDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newStubStore()
	state := NewMemoryState()
	saver := &stubSaver{}
	emotes := &stubResolver{}

	broadcaster := NewBroadcaster(pubsub.NewMemory())
	manager := NewManager(store, state, broadcaster, time.Minute)
	t.Cleanup(func() {
		manager.Shutdown()
		broadcaster.Close()
	})

	return &fixture{
		store:  store,
		state:  state,
		saver:  saver,
		emotes: emotes,
		deps: &SessionDeps{
			Manager:    manager,
			State:      state,
			Store:      store,
			Saver:      saver,
			Processor:  NewProcessor(),
			Limiter:    NewSendLimiter(nil),
			Moderation: NewModeration(state, store),
			Emotes:     emotes,
			Analytics:  analytics.Nop{},
		},
	}
}

// addRoom persists a room config so joins can materialize it.
func (f *fixture) addRoom(t *testing.T, cfg RoomConfig) {
	t.Helper()
	if err := f.store.SaveRoomConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save room config: %v", err)
	}
}

// connect builds an authenticated session without a real socket. The pumps are
// never started, so events stay queued on the send channel for inspection.
func (f *fixture) connect(identity user.Identity) *Session {
	s := NewSession(nil, f.deps)
	s.Authenticate(identity)
	return s
}

// join admits the session and drains the join traffic from its queue.
func (f *fixture) join(t *testing.T, s *Session, roomID string) {
	t.Helper()

	s.handleJoin(context.Background(), roomID, 0)
	if s.State() != StateJoined {
		t.Fatalf("join failed, session state %q, queued: %+v", s.State(), drainEvents(s))
	}
	drainEvents(s)
}

// drainEvents empties the session's send queue.
func drainEvents(s *Session) []*Event {
	var events []*Event
	for {
		select {
		case e := <-s.send:
			events = append(events, e)
		default:
			return events
		}
	}
}

// requireErrorCode asserts the session's queue holds an error with the code.
func requireErrorCode(t *testing.T, s *Session, code int) {
	t.Helper()

	for _, e := range drainEvents(s) {
		if e.Type != EventError {
			continue
		}
		payload, ok := e.Payload.(ErrorPayload)
		if !ok {
			t.Fatalf("error event with unexpected payload %T", e.Payload)
		}
		if payload.Code != code {
			t.Fatalf("got error code %d, want %d (%s)", payload.Code, code, payload.Message)
		}
		return
	}
	t.Fatalf("expected queued error %d, found none", code)
}

// requireEventType asserts the queue holds an event of the type and returns it.
func requireEventType(t *testing.T, events []*Event, eventType EventType) *Event {
	t.Helper()

	for _, e := range events {
		if e.Type == eventType {
			return e
		}
	}
	t.Fatalf("expected %q event, got %+v", eventType, events)
	return nil
}

func viewer(tier user.Tier) user.Identity {
	return user.Identity{ID: "u-" + string(tier), Username: "viewer_" + string(tier), DisplayName: "Viewer", Tier: tier}
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t)
	s := f.connect(viewer(user.TierFree))

	s.handleJoin(context.Background(), "missing", 0)

	requireErrorCode(t, s, errs.ErrRoomNotFound)
	if s.State() != StateIdle {
		t.Fatalf("expected idle session, got %q", s.State())
	}
}

func TestJoinRequiresAuthRejectsGuests(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner", RequiresAuth: true})

	guest := user.Identity{Username: "guest_abc", Tier: user.TierGuest, Guest: true}
	s := f.connect(guest)

	s.handleJoin(context.Background(), "r1", 0)

	requireErrorCode(t, s, errs.ErrAuthRequired)
}

func TestJoinSubscriberOnlyGate(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner", SubscriberOnly: true})

	free := f.connect(viewer(user.TierFree))
	free.handleJoin(context.Background(), "r1", 0)
	requireErrorCode(t, free, errs.ErrSubscriptionRequired)

	sub := f.connect(viewer(user.TierPremium))
	f.join(t, sub, "r1")

	owner := f.connect(user.Identity{ID: "owner", Username: "streamer", Tier: user.TierFree})
	f.join(t, owner, "r1")
}

func TestJoinBannedUserRejected(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	identity := viewer(user.TierFree)
	f.state.Ban(Ban{RoomID: "r1", UserID: identity.Key(), CreatedAt: time.Now()})

	s := f.connect(identity)
	s.handleJoin(context.Background(), "r1", 0)

	requireErrorCode(t, s, errs.ErrBannedFromRoom)
}

func TestJoinDeliversHistoryAndMode(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner", Mode: ModeSlow, SlowDelaySeconds: 5})

	author := viewer(user.TierBasic)
	f.store.SaveMessage(context.Background(), NewMessage("r1", author, TypeText, "older", "older", nil))
	f.store.SaveMessage(context.Background(), NewMessage("r1", author, TypeText, "newer", "newer", nil))

	s := f.connect(viewer(user.TierFree))
	s.handleJoin(context.Background(), "r1", 0)

	events := drainEvents(s)
	history := requireEventType(t, events, EventChatHistory)
	payload, ok := history.Payload.(HistoryPayload)
	if !ok {
		t.Fatalf("unexpected history payload %T", history.Payload)
	}
	if len(payload.Messages) != 2 || payload.Messages[0].Content != "older" {
		t.Fatalf("unexpected backlog: %+v", payload.Messages)
	}
	if payload.Mode != ModeSlow || payload.SlowDelay != 5 {
		t.Fatalf("expected seeded slow mode, got %v %d", payload.Mode, payload.SlowDelay)
	}
}

func TestJoinNoticeReachesOthersOnly(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	first := f.connect(viewer(user.TierFree))
	f.join(t, first, "r1")

	second := f.connect(user.Identity{ID: "u2", Username: "second", Tier: user.TierFree})
	second.handleJoin(context.Background(), "r1", 0)

	requireEventType(t, drainEvents(first), EventUserJoined)

	for _, e := range drainEvents(second) {
		if e.Type == EventUserJoined {
			t.Fatalf("joiner received its own join notice: %+v", e)
		}
	}
}

func TestJoinWhileJoinedSwitchesRooms(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})
	f.addRoom(t, RoomConfig{ID: "r2", OwnerID: "owner"})

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")
	f.join(t, s, "r2")

	r1 := f.deps.Manager.GetRoom("r1")
	if r1.MemberCount() != 0 {
		t.Fatalf("expected old room vacated, members %d", r1.MemberCount())
	}
	if got := s.joinedRoom(); got == nil || got.ID != "r2" {
		t.Fatalf("expected session in r2, got %+v", got)
	}
}

func TestRejectedSwitchKeepsOldMembership(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})
	f.addRoom(t, RoomConfig{ID: "r2", OwnerID: "owner"})

	identity := viewer(user.TierFree)
	f.state.Ban(Ban{RoomID: "r2", UserID: identity.Key(), CreatedAt: time.Now()})

	s := f.connect(identity)
	f.join(t, s, "r1")

	s.handleJoin(context.Background(), "r2", 0)
	requireErrorCode(t, s, errs.ErrBannedFromRoom)

	if got := s.joinedRoom(); got == nil || got.ID != "r1" {
		t.Fatalf("rejected switch should keep old room, got %+v", got)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")

	s.handleLeave(context.Background())
	s.handleLeave(context.Background())

	if s.State() != StateIdle {
		t.Fatalf("expected idle session, got %q", s.State())
	}
	if f.deps.Manager.GetRoom("r1").MemberCount() != 0 {
		t.Fatal("expected empty room")
	}
}

func TestChatRequiresJoinedState(t *testing.T) {
	f := newFixture(t)
	s := f.connect(viewer(user.TierFree))

	s.handleChat(context.Background(), "hello")

	requireErrorCode(t, s, errs.ErrInvalidSessionState)
}

func TestChatBroadcastsAndPersists(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	sender := f.connect(viewer(user.TierPremium))
	f.join(t, sender, "r1")

	other := f.connect(user.Identity{ID: "u2", Username: "other", Tier: user.TierFree})
	f.join(t, other, "r1")
	drainEvents(sender)

	sender.handleChat(context.Background(), "hello room")

	msgEvent := requireEventType(t, drainEvents(other), EventChatMessage)
	msg, ok := msgEvent.Payload.(Message)
	if !ok {
		t.Fatalf("unexpected chat payload %T", msgEvent.Payload)
	}
	if msg.Content != "hello room" || msg.Author.Username != sender.Identity().Username {
		t.Fatalf("unexpected message: %+v", msg)
	}

	requireEventType(t, drainEvents(sender), EventChatMessage)

	saved := f.saver.saved()
	if len(saved) != 1 || saved[0].Content != "hello room" {
		t.Fatalf("expected one persisted message, got %+v", saved)
	}
}

func TestChatRateLimited(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")

	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i < burst; i++ {
		s.handleChat(context.Background(), "spam")
	}
	drainEvents(s)

	s.handleChat(context.Background(), "one too many")

	requireErrorCode(t, s, errs.ErrRateLimited)
	if len(f.saver.saved()) != burst {
		t.Fatalf("rejected message persisted, saved %d", len(f.saver.saved()))
	}
}

func TestChatLengthLimitPerTier(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	identity := viewer(user.TierBasic)
	s := f.connect(identity)
	f.join(t, s, "r1")

	over := strings.Repeat("a", identity.Tier.MaxMessageLength()+1)
	s.handleChat(context.Background(), over)

	requireErrorCode(t, s, errs.ErrLengthExceeded)
}

func TestChatWhileTimedOut(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	identity := viewer(user.TierFree)
	s := f.connect(identity)
	f.join(t, s, "r1")

	f.state.SetTimeout("r1", identity.Key(), time.Now().Add(time.Minute))
	s.handleChat(context.Background(), "still here")

	requireErrorCode(t, s, errs.ErrTimedOut)
}

func TestChatEmoteOnlyMode(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})
	f.emotes.emotes = []emote.Emote{{ID: "e1", Code: "Kappa", Scope: emote.ScopeGlobal}}

	s := f.connect(viewer(user.TierPremium))
	f.join(t, s, "r1")

	f.state.SetMode("r1", ModeEmoteOnly, 0)

	s.handleChat(context.Background(), "plain words")
	requireErrorCode(t, s, errs.ErrModeViolation)

	s.handleChat(context.Background(), "Kappa Kappa")
	requireEventType(t, drainEvents(s), EventChatMessage)
}

func TestChatSlowMode(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierPremium))
	f.join(t, s, "r1")

	f.state.SetMode("r1", ModeSlow, 10*time.Second)

	s.handleChat(context.Background(), "first")
	requireEventType(t, drainEvents(s), EventChatMessage)

	s.handleChat(context.Background(), "second")
	requireErrorCode(t, s, errs.ErrSlowMode)
}

func TestModeratorBypassesModeGates(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	identity := viewer(user.TierFree)
	f.state.SetModerator("r1", identity.Key(), FullPermissions())

	s := f.connect(identity)
	f.join(t, s, "r1")

	f.state.SetMode("r1", ModeEmoteOnly, 0)

	s.handleChat(context.Background(), "mods talk through emote-only")
	requireEventType(t, drainEvents(s), EventChatMessage)
}

func TestWhisperDelivery(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	sender := f.connect(user.Identity{ID: "u1", Username: "alice", Tier: user.TierPremium})
	f.join(t, sender, "r1")
	target := f.connect(user.Identity{ID: "u2", Username: "bob", Tier: user.TierFree})
	f.join(t, target, "r1")
	drainEvents(sender)

	sender.handleChat(context.Background(), "/w Bob psst")

	got := requireEventType(t, drainEvents(target), EventWhisper)
	payload, ok := got.Payload.(WhisperPayload)
	if !ok {
		t.Fatalf("unexpected whisper payload %T", got.Payload)
	}
	if payload.From.Username != "alice" || payload.To != "bob" || payload.Text != "psst" {
		t.Fatalf("unexpected whisper: %+v", payload)
	}

	// The sender sees their own whisper too.
	requireEventType(t, drainEvents(sender), EventWhisper)

	sender.handleChat(context.Background(), "/w nobody hello")
	requireErrorCode(t, sender, errs.ErrTargetNotFound)
}

func TestColorCommandUpdatesIdentity(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierPremium))
	f.join(t, s, "r1")

	s.handleChat(context.Background(), "/color #aabbcc")

	got := requireEventType(t, drainEvents(s), EventColorChanged)
	payload, ok := got.Payload.(ColorPayload)
	if !ok {
		t.Fatalf("unexpected color payload %T", got.Payload)
	}
	if payload.Color != "#AABBCC" {
		t.Fatalf("unexpected color: %q", payload.Color)
	}
	if s.Identity().Color != "#AABBCC" {
		t.Fatalf("identity color not updated: %q", s.Identity().Color)
	}
	if len(f.saver.saved()) != 0 {
		t.Fatal("commands must not be persisted")
	}
}

func TestDonationPipeline(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	guest := f.connect(user.Identity{Username: "guest_x", Tier: user.TierGuest, Guest: true})
	f.join(t, guest, "r1")
	guest.handleDonation(context.Background(), "take my money", 500)
	requireErrorCode(t, guest, errs.ErrAuthRequired)

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")

	s.handleDonation(context.Background(), "no money attached", 0)
	requireErrorCode(t, s, errs.ErrInvalidParams)

	s.handleDonation(context.Background(), "great stream", 500)
	got := requireEventType(t, drainEvents(s), EventDonation)
	payload, ok := got.Payload.(DonationPayload)
	if !ok {
		t.Fatalf("unexpected donation payload %T", got.Payload)
	}
	if payload.Amount != 500 || payload.Message.Type != TypeDonation {
		t.Fatalf("unexpected donation: %+v", payload)
	}

	saved := f.saver.saved()
	if len(saved) != 1 || saved[0].Type != TypeDonation {
		t.Fatalf("expected persisted donation, got %+v", saved)
	}
}

func TestDonationSkipsSendLimiter(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")

	// Exhaust the chat limiter first; donations must still go through.
	burst := DefaultTierLimits[user.TierFree].Burst
	for i := 0; i <= burst; i++ {
		s.handleChat(context.Background(), "spam")
	}
	drainEvents(s)

	s.handleDonation(context.Background(), "still works", 100)
	requireEventType(t, drainEvents(s), EventDonation)
}

func TestTypingRelay(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierFree))
	f.join(t, s, "r1")
	other := f.connect(user.Identity{ID: "u2", Username: "other", Tier: user.TierFree})
	f.join(t, other, "r1")

	s.handleTyping(context.Background(), true)
	requireEventType(t, drainEvents(other), EventTyping)

	s.handleTyping(context.Background(), false)
	requireEventType(t, drainEvents(other), EventStoppedTyping)

	// Not joined: a silent no-op, never an error.
	idle := f.connect(viewer(user.TierBasic))
	idle.handleTyping(context.Background(), true)
	if events := drainEvents(idle); len(events) != 0 {
		t.Fatalf("expected no events for idle typist, got %+v", events)
	}
}

func TestHandleFrameRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	s := f.connect(viewer(user.TierFree))

	s.handleFrame([]byte("{not json"))
	requireErrorCode(t, s, errs.ErrInvalidJSONFormat)

	s.handleFrame([]byte(`{"type":"mystery"}`))
	requireErrorCode(t, s, errs.ErrInvalidParams)
}

func TestHandleFrameDispatchesChat(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierPremium))
	f.join(t, s, "r1")

	s.handleFrame([]byte(`{"type":"chatMessage","payload":{"content":"via frame"}}`))

	got := requireEventType(t, drainEvents(s), EventChatMessage)
	msg, ok := got.Payload.(Message)
	if !ok || msg.Content != "via frame" {
		t.Fatalf("unexpected payload: %+v", got.Payload)
	}
}

func TestModerationFrameResolvesTargetByName(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	mod := f.connect(user.Identity{ID: "m1", Username: "mod", Tier: user.TierPremium})
	f.state.SetModerator("r1", "m1", FullPermissions())
	f.join(t, mod, "r1")

	target := f.connect(user.Identity{ID: "t1", Username: "troll", Tier: user.TierFree})
	f.join(t, target, "r1")
	drainEvents(mod)

	mod.handleModeration(context.Background(), ModerationRequest{
		Action:          ActionTimeout,
		TargetName:      "Troll",
		DurationSeconds: 60,
	})

	got := requireEventType(t, drainEvents(mod), EventModeration)
	payload, ok := got.Payload.(ModerationPayload)
	if !ok {
		t.Fatalf("unexpected moderation payload %T", got.Payload)
	}
	if payload.TargetID != "t1" || payload.Action != ActionTimeout {
		t.Fatalf("unexpected moderation event: %+v", payload)
	}
	if f.state.TimeoutRemaining("r1", "t1", time.Now()) <= 0 {
		t.Fatal("expected timeout applied")
	}
}

func TestModerationFrameDeniedForViewers(t *testing.T) {
	f := newFixture(t)
	f.addRoom(t, RoomConfig{ID: "r1", OwnerID: "owner"})

	s := f.connect(viewer(user.TierPremium))
	f.join(t, s, "r1")

	s.handleModeration(context.Background(), ModerationRequest{
		Action:          ActionTimeout,
		TargetID:        "someone",
		DurationSeconds: 60,
	})

	requireErrorCode(t, s, errs.ErrInsufficientPermission)
}

func TestCeilSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{100 * time.Millisecond, 1},
	}
	for _, tc := range cases {
		if got := ceilSeconds(tc.in); got != tc.want {
			t.Errorf("ceilSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
