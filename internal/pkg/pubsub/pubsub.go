/*
Package pubsub provides the cross-process fan-out backbone for room broadcasts.

The broadcaster is transport-agnostic: every process subscribes to the topics
of rooms it has local members for and publishes events address-free, with the
room id as the only routing key. Delivery is best-effort at-most-once; there
is no acknowledgment or retry. Three transports are provided: an in-process
one for single-node deployments and tests, Redis pub/sub, and NATS core.
*/
package pubsub

import "context"

// Handler consumes one payload published on a topic.
type Handler func(topic string, payload []byte)

// Transport is the pluggable publish/subscribe backbone.
//
// Implementations must deliver payloads published by one process on one topic
// to that topic's handlers in publish order; ordering across processes is not
// guaranteed.
type Transport interface {
	// Publish sends the payload on the topic. A publish with no subscribers is not an error.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for the topic and returns an unsubscribe function.
	Subscribe(topic string, h Handler) (func(), error)

	// Close releases the transport's resources. Subscriptions become inert.
	Close() error
}
