package repository

import (
	"context"
	"errors"

	"github.com/JoaoG250/micro-do/notifications/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository stores per-user notifications.
type Repository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications returns the user's notifications newest first and
	// the total number matching.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*models.Notification, int, error)
	// MarkRead flags the notification as read. A notification owned by
	// another user is reported as not found.
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
}
