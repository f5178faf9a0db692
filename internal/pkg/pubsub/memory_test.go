package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"
)

// collector gathers payloads delivered to one subscription.
type collector struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *collector) handle(_ string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func waitForCount(t *testing.T, c *collector, want int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("got %d payloads, want %d", c.count(), want)
}

func TestMemoryPublishReachesAllSubscribers(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	a, b := &collector{}, &collector{}
	if _, err := m.Subscribe("t1", a.handle); err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	if _, err := m.Subscribe("t1", b.handle); err != nil {
		t.Fatalf("subscribe b: %v", err)
	}

	if err := m.Publish(context.Background(), "t1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitForCount(t, a, 1)
	waitForCount(t, b, 1)

	a.mu.Lock()
	got := string(a.payloads[0])
	a.mu.Unlock()
	if got != "hello" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestMemoryTopicsAreIsolated(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	c := &collector{}
	if _, err := m.Subscribe("t1", c.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	m.Publish(context.Background(), "t2", []byte("elsewhere"))

	time.Sleep(50 * time.Millisecond)
	if c.count() != 0 {
		t.Fatalf("subscriber received %d payloads from another topic", c.count())
	}
}

func TestMemoryOrderingPerSubscriber(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	c := &collector{}
	if _, err := m.Subscribe("t1", c.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, p := range []string{"one", "two", "three"} {
		m.Publish(context.Background(), "t1", []byte(p))
	}

	waitForCount(t, c, 3)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if string(c.payloads[i]) != want {
			t.Fatalf("payload %d = %q, want %q", i, c.payloads[i], want)
		}
	}
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	c := &collector{}
	unsubscribe, err := m.Subscribe("t1", c.handle)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	unsubscribe()

	m.Publish(context.Background(), "t1", []byte("late"))

	time.Sleep(50 * time.Millisecond)
	if c.count() != 0 {
		t.Fatalf("unsubscribed handler received %d payloads", c.count())
	}
}

func TestMemoryPublishAfterCloseIsNoop(t *testing.T) {
	m := NewMemory()

	c := &collector{}
	if _, err := m.Subscribe("t1", c.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := m.Publish(context.Background(), "t1", []byte("ghost")); err != nil {
		t.Fatalf("publish after close: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if c.count() != 0 {
		t.Fatalf("closed transport delivered %d payloads", c.count())
	}
}
