package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/metrics"
	"github.com/JoaoG250/micro-do/common/middleware"
)

// DefaultTimeout bounds a call when the client config leaves it unset.
const DefaultTimeout = 5 * time.Second

// Caller is the calling side of the RPC layer.
type Caller interface {
	Call(ctx context.Context, queue string, pattern Pattern, payload, result any) error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Service names the caller. It prefixes the private reply queue.
	Service string

	// Timeout bounds each call.
	Timeout time.Duration
}

// Client sends requests and matches replies by correlation id.
type Client struct {
	transport messaging.Client
	replyTo   string
	timeout   time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	pending map[string]chan *Reply
	sub     messaging.Subscription
	closed  bool
}

// NewClient creates a Client. Start must be called before Call.
func NewClient(transport messaging.Client, cfg ClientConfig, logger *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Service == "" {
		cfg.Service = "client"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		transport: transport,
		replyTo:   fmt.Sprintf("%s.replies.%s", cfg.Service, uuid.NewString()),
		timeout:   cfg.Timeout,
		logger:    logger,
		pending:   make(map[string]chan *Reply),
	}
}

// ReplyTo returns the private reply queue of this client.
func (c *Client) ReplyTo() string {
	return c.replyTo
}

// Start subscribes to the reply queue.
func (c *Client) Start() error {
	sub, err := c.transport.Consume(c.replyTo, c.handleReply)
	if err != nil {
		return fmt.Errorf("subscribe to reply queue: %w", err)
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// Close stops receiving replies. Calls still waiting fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for id, waiter := range c.pending {
		delete(c.pending, id)
		close(waiter)
	}
	metrics.RPCPendingCalls.Set(0)
	if c.sub != nil {
		return c.sub.Unsubscribe()
	}
	return nil
}

// Pending returns the number of calls waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call publishes a request for pattern to queue and waits for its reply.
// On success the reply result is decoded into result, which may be nil.
// A failed reply yields a *RemoteError; no reply within the timeout yields
// a *TimeoutError. Calls are never retried.
func (c *Client) Call(ctx context.Context, queue string, pattern Pattern, payload, result any) error {
	start := time.Now()
	err := c.call(ctx, queue, pattern, payload, result)
	metrics.RPCCallDuration.WithLabelValues(string(pattern)).Observe(time.Since(start).Seconds())
	metrics.RPCCallsTotal.WithLabelValues(string(pattern), outcome(err)).Inc()
	return err
}

func (c *Client) call(ctx context.Context, queue string, pattern Pattern, payload, result any) error {
	req, err := NewRequest(pattern, payload, c.replyTo)
	if err != nil {
		return err
	}
	data, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	waiter, err := c.register(req.CorrelationID)
	if err != nil {
		return err
	}
	defer c.forget(req.CorrelationID)

	msg := &messaging.Message{Subject: queue, Data: data}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		msg.Metadata = map[string]string{middleware.RequestIDHeader: reqID}
	}
	if err := c.transport.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", pattern, queue, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case reply, ok := <-waiter:
		if !ok {
			return ErrClientClosed
		}
		if reply.Error != nil {
			return &RemoteError{Pattern: pattern, Code: reply.Error.Code, Message: reply.Error.Message}
		}
		if err := decodeResult(reply.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", pattern, err)
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.WarnContext(ctx, "RPC call timed out",
				logging.Pattern(string(pattern)),
				logging.Queue(queue),
				logging.CorrelationID(req.CorrelationID),
			)
			return &TimeoutError{Pattern: pattern, Queue: queue, After: c.timeout}
		}
		return ctx.Err()
	}
}

func (c *Client) register(id string) (chan *Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	waiter := make(chan *Reply, 1)
	c.pending[id] = waiter
	metrics.RPCPendingCalls.Inc()
	return waiter, nil
}

// forget removes the waiter. It runs on every exit path of a call so
// timeouts never leave entries behind.
func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; ok {
		delete(c.pending, id)
		metrics.RPCPendingCalls.Dec()
	}
}

func (c *Client) handleReply(_ context.Context, msg *messaging.Message) error {
	reply, err := DecodeReply(msg.Data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	waiter, ok := c.pending[reply.CorrelationID]
	if ok {
		delete(c.pending, reply.CorrelationID)
		metrics.RPCPendingCalls.Dec()
	}
	c.mu.Unlock()

	if !ok {
		metrics.RPCLateReplies.Inc()
		c.logger.Debug("dropping reply without waiter", logging.CorrelationID(reply.CorrelationID))
		return nil
	}

	// Buffered with capacity one and removed from the map above, so this never blocks.
	waiter <- reply
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	default:
		var remote *RemoteError
		if errors.As(err, &remote) {
			return string(remote.Code)
		}
		return "error"
	}
}

// Call is a typed convenience wrapper around Caller.Call.
func Call[T any](ctx context.Context, c Caller, queue string, pattern Pattern, payload any) (T, error) {
	var out T
	err := c.Call(ctx, queue, pattern, payload, &out)
	return out, err
}
