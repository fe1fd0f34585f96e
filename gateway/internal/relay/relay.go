// Package relay forwards notification events from the broker to realtime
// connections.
package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

// Notifier delivers a realtime event to every connection of a user.
type Notifier interface {
	NotifyUser(userID, event string, payload any) (int, error)
}

// NotificationRelay consumes notification-created events on the gateway
// queue and pushes them to the addressed user.
type NotificationRelay struct {
	server   *rpc.Server
	notifier Notifier
	logger   *logging.Logger
}

func NewNotificationRelay(transport messaging.Client, notifier Notifier, logger *logging.Logger) *NotificationRelay {
	if logger == nil {
		logger = logging.Default()
	}
	r := &NotificationRelay{
		server:   rpc.NewServer(transport, contracts.GatewayPatterns, logger),
		notifier: notifier,
		logger:   logger,
	}
	r.server.HandleEvent(contracts.TopicNotificationCreated, rpc.On(r.handleNotification))
	return r
}

// Start subscribes to notification events.
func (r *NotificationRelay) Start() error {
	return r.server.Start()
}

// Stop unsubscribes and waits for in-flight deliveries until ctx expires.
func (r *NotificationRelay) Stop(ctx context.Context) error {
	return r.server.Stop(ctx)
}

func (r *NotificationRelay) handleNotification(ctx context.Context, n contracts.Notification) error {
	if n.UserID == "" {
		return errors.New("notification without recipient")
	}

	event := contracts.RealtimeEventFor(n.Type)
	delivered, err := r.notifier.NotifyUser(n.UserID, event, n)
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "relayed notification",
		logging.UserID(n.UserID),
		slog.String("event", event),
		slog.Int("connections", delivered),
	)
	return nil
}
