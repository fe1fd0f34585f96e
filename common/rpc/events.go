package rpc

import (
	"context"

	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/metrics"
)

// Emitter publishes fire-and-forget events.
type Emitter interface {
	Emit(ctx context.Context, topic Topic, payload any)
}

// EventPublisher broadcasts events to every subscribed service. Publishing
// never fails the caller: failures are logged and counted.
type EventPublisher struct {
	transport messaging.Publisher
	logger    *logging.Logger

	// OnFailure, when set, is called after a failed publish.
	OnFailure func(topic Topic, err error)
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(transport messaging.Publisher, logger *logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &EventPublisher{transport: transport, logger: logger}
}

// Emit encodes payload as an Event on topic and broadcasts it.
func (p *EventPublisher) Emit(ctx context.Context, topic Topic, payload any) {
	event, err := NewEvent(topic, payload)
	if err == nil {
		var data []byte
		data, err = EncodeEvent(event)
		if err == nil {
			err = p.transport.Broadcast(ctx, string(topic), data)
		}
	}

	if err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(topic)).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event", logging.Topic(string(topic)), logging.Error(err))
		if p.OnFailure != nil {
			p.OnFailure(topic, err)
		}
		return
	}
	metrics.EventsPublished.WithLabelValues(string(topic)).Inc()
}
