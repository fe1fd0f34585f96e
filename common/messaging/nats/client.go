// Package nats provides a NATS implementation of the messaging interfaces.
//
// Queues are NATS queue subscriptions whose group is the queue name itself,
// so instances of one service compete for requests. Topics are plain subjects
// consumed with one queue group per interested service.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
)

// Client implements messaging.Client using NATS.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
	mu     sync.RWMutex
	subs   []*subscription
}

// Config holds NATS client configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration

	// Username and Password enable user/password authentication.
	Username string
	Password string

	// Token for token-based authentication (optional).
	Token string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "micro-do",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewClient connects to NATS with the given configuration.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	log := logger.Logger.With(slog.String("broker", "nats"))

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS async error", logging.Queue(subject), logging.Error(err))
		}),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: log,
		subs:   make([]*subscription, 0),
	}, nil
}

// Publish sends data to the queue subject.
func (c *Client) Publish(ctx context.Context, queue string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(queue, data)
}

// PublishMsg sends a Message with headers.
func (c *Client) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	natsMsg := &nats.Msg{
		Subject: msg.Subject,
		Data:    msg.Data,
	}
	if len(msg.Metadata) > 0 {
		natsMsg.Header = make(nats.Header)
		for k, v := range msg.Metadata {
			natsMsg.Header.Set(k, v)
		}
	}

	return c.conn.PublishMsg(natsMsg)
}

// Broadcast publishes data on the topic subject. Core NATS fans out to every
// subscription, and queue groups collapse each service to a single delivery.
func (c *Client) Broadcast(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(topic, data)
}

// Consume creates a queue subscription grouped on the queue name.
func (c *Client) Consume(queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return c.subscribe(queue, queue, handler)
}

// Subscribe creates a topic subscription. A non-empty group load-balances
// deliveries across members.
func (c *Client) Subscribe(topic, group string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return c.subscribe(topic, group, handler)
}

func (c *Client) subscribe(subject, group string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	cb := func(msg *nats.Msg) {
		if err := handler(context.Background(), natsToMessage(msg)); err != nil {
			c.logger.Warn("message handler failed",
				logging.Queue(subject),
				slog.String("group", group),
				logging.Error(err),
			)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group == "" {
		sub, err = c.conn.Subscribe(subject, cb)
	} else {
		sub, err = c.conn.QueueSubscribe(subject, group, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	s := &subscription{natsSub: sub}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	return s, nil
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil

	c.conn.Close()
	return nil
}

// Drain gracefully closes, allowing in-flight messages to complete.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

type subscription struct {
	natsSub *nats.Subscription
}

func (s *subscription) Unsubscribe() error {
	if !s.natsSub.IsValid() {
		return nil
	}
	return s.natsSub.Unsubscribe()
}

func (s *subscription) Subject() string {
	return s.natsSub.Subject
}

func (s *subscription) IsValid() bool {
	return s.natsSub.IsValid()
}

func natsToMessage(msg *nats.Msg) *messaging.Message {
	m := &messaging.Message{
		Subject: msg.Subject,
		Data:    msg.Data,
		// NATS core doesn't provide a timestamp.
		Timestamp: time.Now(),
	}

	if msg.Header != nil {
		m.Metadata = make(map[string]string, len(msg.Header))
		for k := range msg.Header {
			m.Metadata[k] = msg.Header.Get(k)
		}
	}

	return m
}
