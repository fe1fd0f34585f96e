// Package messaging provides abstractions for message broker communication.
// Services move request, reply and event envelopes through these interfaces
// without being coupled to NATS, RabbitMQ or the in-process broker.
package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when publishing or subscribing on a closed client.
var ErrClosed = errors.New("messaging client closed")

// Message represents a message received from or sent to a message broker.
type Message struct {
	// Subject is the queue or topic the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was received.
	Timestamp time.Time
}

// MessageHandler processes a received message.
// Deliveries are acknowledged before the handler runs, so a returned error
// is logged by the transport and never causes redelivery.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription represents an active subscription to a queue or topic.
type Subscription interface {
	// Unsubscribe stops receiving messages on this subscription.
	Unsubscribe() error

	// Subject returns the queue or topic this subscription is listening to.
	Subject() string

	// IsValid returns true if the subscription is still active.
	IsValid() bool
}

// Publisher publishes messages to queues and topics.
type Publisher interface {
	// Publish sends data to a point-to-point queue. Exactly one consumer of
	// the queue receives it.
	Publish(ctx context.Context, queue string, data []byte) error

	// PublishMsg sends a Message to the queue named by msg.Subject with headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Broadcast sends data to a topic. Every subscriber group receives a copy.
	Broadcast(ctx context.Context, topic string, data []byte) error

	// Close releases any resources held by the publisher.
	Close() error
}

// Subscriber consumes from queues and topics.
type Subscriber interface {
	// Consume receives messages from a queue. Consumers of the same queue
	// compete, so each message is handled once.
	Consume(queue string, handler MessageHandler) (Subscription, error)

	// Subscribe receives broadcasts on a topic. Subscribers sharing a group
	// split the deliveries between them; an empty group receives every broadcast.
	Subscribe(topic, group string, handler MessageHandler) (Subscription, error)

	// Close releases any resources and unsubscribes all active subscriptions.
	Close() error
}

// Client combines Publisher and Subscriber interfaces.
type Client interface {
	Publisher
	Subscriber

	// Drain gracefully closes the connection, allowing in-flight messages to complete.
	Drain() error

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool
}
