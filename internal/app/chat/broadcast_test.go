package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/beech80/clipt-final--sub000/internal/pkg/pubsub"
)

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// eventSink collects delivered events.
type eventSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *eventSink) deliver(e *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) last() *Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

func TestBroadcastDeliversLocallyExactlyOnce(t *testing.T) {
	transport := pubsub.NewMemory()
	b := NewBroadcaster(transport)
	defer b.Close()

	sink := &eventSink{}
	if err := b.Attach("r1", sink.deliver); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	b.Broadcast(context.Background(), &Event{Type: EventChatMessage, RoomID: "r1", Payload: "hi"})

	if sink.count() != 1 {
		t.Fatalf("expected immediate local delivery, got %d events", sink.count())
	}

	// The transport loops our own envelope back; the origin tag must keep it
	// from being delivered a second time.
	time.Sleep(50 * time.Millisecond)
	if sink.count() != 1 {
		t.Fatalf("own envelope delivered again, got %d events", sink.count())
	}
}

func TestBroadcastReachesOtherProcesses(t *testing.T) {
	transport := pubsub.NewMemory()

	a := NewBroadcaster(transport)
	bSink := &eventSink{}

	// Two broadcasters on one transport model two processes.
	b := NewBroadcaster(transport)
	defer b.Close()

	aSink := &eventSink{}
	if err := a.Attach("r1", aSink.deliver); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	if err := b.Attach("r1", bSink.deliver); err != nil {
		t.Fatalf("attach b: %v", err)
	}

	a.Broadcast(context.Background(), &Event{Type: EventChatMessage, RoomID: "r1", Payload: "cross"})

	waitFor(t, time.Second, func() bool { return bSink.count() == 1 })

	got := bSink.last()
	if got.Type != EventChatMessage || got.RoomID != "r1" {
		t.Fatalf("unexpected event: %+v", got)
	}

	if aSink.count() != 1 {
		t.Fatalf("publisher delivered %d times locally, want 1", aSink.count())
	}

	a.Detach("r1")
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBroadcastAfterDetachStopsDelivery(t *testing.T) {
	transport := pubsub.NewMemory()

	a := NewBroadcaster(transport)
	defer a.Close()
	b := NewBroadcaster(transport)
	defer b.Close()

	sink := &eventSink{}
	if err := b.Attach("r1", sink.deliver); err != nil {
		t.Fatalf("attach: %v", err)
	}
	b.Detach("r1")

	a.Broadcast(context.Background(), &Event{Type: EventChatMessage, RoomID: "r1"})

	time.Sleep(50 * time.Millisecond)
	if sink.count() != 0 {
		t.Fatalf("detached room still received %d events", sink.count())
	}
}
