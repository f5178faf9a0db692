package pubsub

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// NATS is a Transport backed by NATS core subjects. Core (non-JetStream)
// delivery is at-most-once with per-publisher ordering, which matches the
// broadcaster's contract exactly.
type NATS struct {
	conn *nats.Conn
}

// NewNATS connects to the given NATS servers (comma-separated URL list).
func NewNATS(servers string, name string) (*NATS, error) {
	conn, err := nats.Connect(servers, nats.Name(name))
	if err != nil {
		return nil, err
	}

	return &NATS{conn: conn}, nil
}

// Publish sends the payload on the subject named after the topic.
func (n *NATS) Publish(_ context.Context, topic string, payload []byte) error {
	return n.conn.Publish(topic, payload)
}

// Subscribe registers the handler on the subject until unsubscribed.
func (n *NATS) Subscribe(topic string, h Handler) (func(), error) {
	sub, err := n.conn.Subscribe(topic, func(msg *nats.Msg) {
		h(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}

	unsubscribe := func() {
		if err := sub.Unsubscribe(); err != nil {
			logx.Warn("Failed to unsubscribe NATS subject.", "topic", topic, "error", err.Error())
		}
	}

	return unsubscribe, nil
}

// Close drains and closes the NATS connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
