package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/metrics"
	"github.com/JoaoG250/micro-do/common/middleware"
)

// HandlerFunc serves one request pattern. Return an *Error to send a
// classified failure; any other error is reported as internal.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// EventHandlerFunc reacts to one event. Errors are logged and counted.
type EventHandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Unary adapts a typed function into a HandlerFunc. Payloads that do not
// decode into Req are rejected with CodeInvalidArgument.
func Unary[Req, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, InvalidArgument("invalid payload: %v", err)
			}
		}
		return fn(ctx, req)
	}
}

// On adapts a typed function into an EventHandlerFunc.
func On[T any](fn func(ctx context.Context, event T) error) EventHandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		return fn(ctx, event)
	}
}

// Server consumes a service queue and dispatches requests by pattern.
type Server struct {
	transport messaging.Client
	catalogue Catalogue
	logger    *logging.Logger

	mu       sync.Mutex
	handlers map[Pattern]HandlerFunc
	events   map[Topic][]EventHandlerFunc
	errs     []error
	subs     []messaging.Subscription
	started  bool

	// gate orders inflight.Add against Stop flipping accepting.
	gate      sync.RWMutex
	accepting bool
	inflight  sync.WaitGroup
}

// NewServer creates a Server for the catalogue's queue.
func NewServer(transport messaging.Client, catalogue Catalogue, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		transport: transport,
		catalogue: catalogue,
		logger:    logger.With(logging.Queue(catalogue.Queue)),
		handlers:  make(map[Pattern]HandlerFunc),
		events:    make(map[Topic][]EventHandlerFunc),
	}
}

// Handle registers the handler for pattern. Registering a pattern twice or a
// pattern outside the catalogue is recorded and makes Start fail.
func (s *Server) Handle(pattern Pattern, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.catalogue.Has(pattern):
		s.errs = append(s.errs, fmt.Errorf("pattern %q is not served by %s", pattern, s.catalogue.Queue))
	case s.handlers[pattern] != nil:
		s.errs = append(s.errs, fmt.Errorf("duplicate handler for pattern %q", pattern))
	case h == nil:
		s.errs = append(s.errs, fmt.Errorf("nil handler for pattern %q", pattern))
	default:
		s.handlers[pattern] = h
	}
}

// HandleEvent adds a handler for topic. A topic may have several handlers.
func (s *Server) HandleEvent(topic Topic, h EventHandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == nil {
		s.errs = append(s.errs, fmt.Errorf("nil handler for topic %q", topic))
		return
	}
	s.events[topic] = append(s.events[topic], h)
}

// Validate reports registration errors and catalogue patterns without a handler.
func (s *Server) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := append([]error(nil), s.errs...)
	if err := s.catalogue.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range s.catalogue.Patterns {
		if s.handlers[p] == nil {
			errs = append(errs, fmt.Errorf("missing handler for pattern %q", p))
		}
	}
	return errors.Join(errs...)
}

// Start validates the registrations and subscribes to the service queue and
// to every topic with a handler. Topic subscriptions are grouped by queue so
// each service receives one copy of an event.
func (s *Server) Start() error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("rpc server %s: %w", s.catalogue.Queue, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("rpc server %s already started", s.catalogue.Queue)
	}

	s.gate.Lock()
	s.accepting = true
	s.gate.Unlock()

	if len(s.catalogue.Patterns) > 0 {
		sub, err := s.transport.Consume(s.catalogue.Queue, s.onRequest)
		if err != nil {
			return fmt.Errorf("consume %s: %w", s.catalogue.Queue, err)
		}
		s.subs = append(s.subs, sub)
	}

	topics := make([]Topic, 0, len(s.events))
	for t := range s.events {
		topics = append(topics, t)
	}
	slices.Sort(topics)

	for _, topic := range topics {
		sub, err := s.transport.Subscribe(string(topic), s.catalogue.Queue, s.onEvent(topic))
		if err != nil {
			s.unsubscribeLocked()
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		s.subs = append(s.subs, sub)
	}

	s.started = true
	s.logger.Info("RPC server started",
		"patterns", len(s.catalogue.Patterns),
		"topics", len(topics),
	)
	return nil
}

// Stop unsubscribes and waits for in-flight messages until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.gate.Lock()
	s.accepting = false
	s.gate.Unlock()

	s.mu.Lock()
	s.unsubscribeLocked()
	s.started = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) unsubscribeLocked() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("unsubscribe failed", logging.Error(err))
		}
	}
	s.subs = nil
}

// track registers an in-flight message, or reports false once Stop has begun.
func (s *Server) track() bool {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if !s.accepting {
		return false
	}
	s.inflight.Add(1)
	return true
}

// onRequest hands each message to its own goroutine; requests are not ordered.
func (s *Server) onRequest(_ context.Context, msg *messaging.Message) error {
	if !s.track() {
		return ErrServerStopped
	}
	go func() {
		defer s.inflight.Done()
		s.serve(msg)
	}()
	return nil
}

func (s *Server) serve(msg *messaging.Message) {
	req, err := DecodeRequest(msg.Data)
	if err != nil {
		s.logger.Warn("dropping malformed request", logging.Error(err))
		return
	}

	ctx := logging.ContextWithCorrelationID(context.Background(), req.CorrelationID)
	if reqID := msg.Metadata[middleware.RequestIDHeader]; reqID != "" {
		ctx = middleware.WithRequestID(ctx, reqID)
	}

	start := time.Now()
	reply := s.dispatch(ctx, req)
	code := "ok"
	if reply.Error != nil {
		code = string(reply.Error.Code)
	}
	metrics.RPCRequestDuration.WithLabelValues(s.catalogue.Queue, string(req.Pattern)).Observe(time.Since(start).Seconds())
	metrics.RPCRequestsTotal.WithLabelValues(s.catalogue.Queue, string(req.Pattern), code).Inc()

	data, err := EncodeReply(reply)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode reply", logging.Pattern(string(req.Pattern)), logging.Error(err))
		return
	}
	if err := s.transport.Publish(ctx, req.ReplyTo, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reply",
			logging.Pattern(string(req.Pattern)),
			logging.Queue(req.ReplyTo),
			logging.Error(err),
		)
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Reply {
	s.mu.Lock()
	h := s.handlers[req.Pattern]
	s.mu.Unlock()

	if h == nil {
		return NewErrorReply(req.CorrelationID, CodeUnimplemented,
			fmt.Sprintf("no handler for pattern %q", req.Pattern))
	}

	result, err := invoke(ctx, h, req.Payload)
	if err != nil {
		body, classified := toErrorBody(err)
		if !classified {
			s.logger.ErrorContext(ctx, "handler failed", logging.Pattern(string(req.Pattern)), logging.Error(err))
		}
		return &Reply{CorrelationID: req.CorrelationID, Error: body}
	}

	reply, err := NewResultReply(req.CorrelationID, result)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode result", logging.Pattern(string(req.Pattern)), logging.Error(err))
		return NewErrorReply(req.CorrelationID, CodeInternal, internalMessage)
	}
	return reply
}

func invoke(ctx context.Context, h HandlerFunc, payload json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}

func (s *Server) onEvent(topic Topic) messaging.MessageHandler {
	return func(_ context.Context, msg *messaging.Message) error {
		if !s.track() {
			return ErrServerStopped
		}
		go func() {
			defer s.inflight.Done()
			s.deliver(topic, msg)
		}()
		return nil
	}
}

func (s *Server) deliver(topic Topic, msg *messaging.Message) {
	event, err := DecodeEvent(msg.Data)
	if err != nil {
		s.logger.Warn("dropping malformed event", logging.Topic(string(topic)), logging.Error(err))
		return
	}

	s.mu.Lock()
	handlers := slices.Clone(s.events[topic])
	s.mu.Unlock()

	ctx := context.Background()
	for _, h := range handlers {
		if err := invokeEvent(ctx, h, event.Payload); err != nil {
			metrics.EventHandlerFailures.WithLabelValues(s.catalogue.Queue, string(topic)).Inc()
			s.logger.Error("event handler failed", logging.Topic(string(topic)), logging.Error(err))
		}
	}
}

func invokeEvent(ctx context.Context, h EventHandlerFunc, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}
