package pubsub

import (
	"context"
	"sync"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// subscriberBuffer is the per-subscription queue depth. A subscriber that
// falls this far behind starts losing events, matching the at-most-once contract.
const subscriberBuffer = 256

// memorySub is one registered handler with its delivery queue.
type memorySub struct {
	topic   string
	handler Handler
	queue   chan []byte
	done    chan struct{}
}

// Memory is an in-process Transport. It is the default for single-node
// deployments and the only transport tests need.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
}

// NewMemory returns an empty in-process transport.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string][]*memorySub),
	}
}

// Publish enqueues the payload for every subscriber of the topic, in
// registration order. Subscribers with full queues are skipped.
func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil
	}

	for _, sub := range m.subs[topic] {
		select {
		case sub.queue <- payload:
		default:
			logx.Warn("In-memory transport subscriber queue full, dropping payload.", "topic", topic)
		}
	}

	return nil
}

// Subscribe registers the handler and starts its delivery goroutine.
// Each subscription drains its own queue, so one slow handler never blocks
// publishers or other subscribers.
func (m *Memory) Subscribe(topic string, h Handler) (func(), error) {
	sub := &memorySub{
		topic:   topic,
		handler: h,
		queue:   make(chan []byte, subscriberBuffer),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.subs[topic] = append(m.subs[topic], sub)
	m.mu.Unlock()

	go sub.run()

	unsubscribe := func() {
		m.mu.Lock()
		current := m.subs[topic]
		for i, s := range current {
			if s == sub {
				m.subs[topic] = append(current[:i], current[i+1:]...)
				break
			}
		}
		m.mu.Unlock()

		close(sub.done)
	}

	return unsubscribe, nil
}

// run delivers queued payloads to the handler in order until unsubscribed.
func (s *memorySub) run() {
	for {
		select {
		case payload := <-s.queue:
			s.handler(s.topic, payload)
		case <-s.done:
			return
		}
	}
}

// Close stops accepting publishes and detaches all subscriptions.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, subs := range m.subs {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	m.subs = make(map[string][]*memorySub)

	return nil
}
