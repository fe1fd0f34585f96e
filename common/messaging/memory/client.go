// Package memory provides an in-process implementation of the messaging
// interfaces on top of watermill's Go channel pub/sub. It backs tests and
// single-binary development runs.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
)

// Client implements messaging.Client in memory.
//
// Every (subject, group) pair owns a single watermill subscription. Messages
// arriving on it are handed to the group's members round-robin, which gives
// queues competing consumers and topics one copy per group.
type Client struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger

	mu     sync.Mutex
	groups map[groupKey]*group
	closed bool
}

type groupKey struct {
	subject string
	name    string
}

type group struct {
	key    groupKey
	cancel context.CancelFunc

	mu      sync.Mutex
	members []*subscription
	next    int
}

// NewClient creates an in-memory broker client.
func NewClient(logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger.Watermill()),
		logger: logger.Logger,
		groups: make(map[groupKey]*group),
	}
}

// Publish sends data to a queue.
func (c *Client) Publish(ctx context.Context, queue string, data []byte) error {
	return c.publish(ctx, queue, data, nil)
}

// PublishMsg sends msg to the queue named by msg.Subject.
func (c *Client) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	return c.publish(ctx, msg.Subject, msg.Data, msg.Metadata)
}

// Broadcast sends data to every group subscribed to topic.
func (c *Client) Broadcast(ctx context.Context, topic string, data []byte) error {
	return c.publish(ctx, topic, data, nil)
}

func (c *Client) publish(ctx context.Context, subject string, data []byte, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		return messaging.ErrClosed
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	return c.pubsub.Publish(subject, msg)
}

// Consume joins the consumer group named after the queue.
func (c *Client) Consume(queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return c.join(queue, queue, handler)
}

// Subscribe joins group on topic. An empty group gets a private one.
func (c *Client) Subscribe(topic, group string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	if group == "" {
		group = watermill.NewUUID()
	}
	return c.join(topic, group, handler)
}

func (c *Client) join(subject, name string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, messaging.ErrClosed
	}

	key := groupKey{subject: subject, name: name}
	g, ok := c.groups[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := c.pubsub.Subscribe(ctx, subject)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		g = &group{key: key, cancel: cancel}
		c.groups[key] = g
		go c.dispatch(g, ch)
	}

	sub := &subscription{client: c, group: g, handler: handler}
	g.mu.Lock()
	g.members = append(g.members, sub)
	g.mu.Unlock()

	return sub, nil
}

func (c *Client) dispatch(g *group, ch <-chan *message.Message) {
	for msg := range ch {
		// At-most-once: acknowledge before handling.
		msg.Ack()

		sub := g.pick()
		if sub == nil {
			continue
		}

		m := &messaging.Message{
			Subject:   g.key.subject,
			Data:      msg.Payload,
			Timestamp: time.Now(),
		}
		if len(msg.Metadata) > 0 {
			m.Metadata = make(map[string]string, len(msg.Metadata))
			for k, v := range msg.Metadata {
				m.Metadata[k] = v
			}
		}

		if err := sub.handler(context.Background(), m); err != nil {
			c.logger.Warn("message handler failed",
				logging.Queue(g.key.subject),
				logging.Error(err),
			)
		}
	}
}

func (c *Client) leave(sub *subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := sub.group
	g.mu.Lock()
	for i, m := range g.members {
		if m == sub {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	empty := len(g.members) == 0
	g.mu.Unlock()

	if empty && c.groups[g.key] == g {
		delete(c.groups, g.key)
		g.cancel()
	}
	return nil
}

func (g *group) pick() *subscription {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.members) == 0 {
		return nil
	}
	if g.next >= len(g.members) {
		g.next = 0
	}
	sub := g.members[g.next]
	g.next++
	return sub
}

// Close cancels every subscription and closes the underlying pub/sub.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for key, g := range c.groups {
		g.cancel()
		delete(c.groups, key)
	}
	c.mu.Unlock()

	return c.pubsub.Close()
}

// Drain closes the client. In-memory deliveries have nothing to flush.
func (c *Client) Drain() error {
	return c.Close()
}

// IsConnected returns false once the client is closed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

type subscription struct {
	client  *Client
	group   *group
	handler messaging.MessageHandler

	once    sync.Once
	mu      sync.Mutex
	removed bool
}

func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.removed = true
		s.mu.Unlock()
		err = s.client.leave(s)
	})
	return err
}

func (s *subscription) Subject() string {
	return s.group.key.subject
}

func (s *subscription) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.removed && s.client.IsConnected()
}
