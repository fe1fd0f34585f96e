package contracts

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTaskAssigned   NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated    NotificationType = "TASK_UPDATED"
	NotificationCommentCreated NotificationType = "COMMENT_CREATED"
)

// Notification is addressed to a single user.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      NotificationType  `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	IsRead    bool              `json:"isRead"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ListNotificationsRequest pages through a user's notifications, newest first.
type ListNotificationsRequest struct {
	PageRequest
	UserID     string `json:"userId"`
	UnreadOnly bool   `json:"unreadOnly,omitempty"`
}

// MarkReadRequest marks one of the user's notifications as read.
type MarkReadRequest struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}
