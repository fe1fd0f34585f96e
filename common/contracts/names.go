// Package contracts holds the payloads exchanged between the gateway and the
// backend services, and the pattern and topic names that route them.
package contracts

import (
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

// Identity service patterns.
const (
	PatternValidateUser rpc.Pattern = "auth.validate_user"
	PatternCreateUser   rpc.Pattern = "auth.create_user"
	PatternSearchUsers  rpc.Pattern = "auth.search_users"
)

// Tasks service patterns.
const (
	PatternCreateTask    rpc.Pattern = "tasks.create_task"
	PatternListTasks     rpc.Pattern = "tasks.list_tasks"
	PatternGetTask       rpc.Pattern = "tasks.get_task"
	PatternUpdateTask    rpc.Pattern = "tasks.update_task"
	PatternDeleteTask    rpc.Pattern = "tasks.delete_task"
	PatternCreateComment rpc.Pattern = "tasks.create_comment"
	PatternListComments  rpc.Pattern = "tasks.list_comments"
)

// Notifications service patterns.
const (
	PatternListNotifications rpc.Pattern = "notifications.list_notifications"
	PatternMarkRead          rpc.Pattern = "notifications.mark_read"
)

// Event topics.
const (
	TopicTaskCreated         rpc.Topic = "task.created"
	TopicTaskUpdated         rpc.Topic = "task.updated"
	TopicCommentCreated      rpc.Topic = "comment.created"
	TopicNotificationCreated rpc.Topic = "api_gateway.notification.created"
)

// Catalogues declare the patterns each queue must serve.
var (
	IdentityPatterns = rpc.Catalogue{
		Queue:    messaging.QueueAuth,
		Patterns: []rpc.Pattern{PatternValidateUser, PatternCreateUser, PatternSearchUsers},
	}

	TaskPatterns = rpc.Catalogue{
		Queue: messaging.QueueTasks,
		Patterns: []rpc.Pattern{
			PatternCreateTask,
			PatternListTasks,
			PatternGetTask,
			PatternUpdateTask,
			PatternDeleteTask,
			PatternCreateComment,
			PatternListComments,
		},
	}

	NotificationPatterns = rpc.Catalogue{
		Queue:    messaging.QueueNotifications,
		Patterns: []rpc.Pattern{PatternListNotifications, PatternMarkRead},
	}

	// GatewayPatterns is empty: the gateway queue only receives events.
	GatewayPatterns = rpc.Catalogue{Queue: messaging.QueueGateway}
)

// Realtime event names pushed to browser connections.
const (
	RealtimeTaskCreated  = "task:created"
	RealtimeTaskUpdated  = "task:updated"
	RealtimeCommentNew   = "comment:new"
	RealtimeNotification = "notification"
	RealtimeException    = "exception"
	RealtimeJoin         = "join"
)

// RealtimeEventFor maps a notification type to the event name pushed to clients.
func RealtimeEventFor(t NotificationType) string {
	switch t {
	case NotificationTaskAssigned:
		return RealtimeTaskCreated
	case NotificationTaskUpdated:
		return RealtimeTaskUpdated
	case NotificationCommentCreated:
		return RealtimeCommentNew
	default:
		return RealtimeNotification
	}
}

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "micro-do.refresh-token"

// RefreshCookiePath scopes the refresh cookie to the refresh endpoint.
const RefreshCookiePath = "/api/auth/refresh"
