package messaging

// Inbound queues, one per backend service plus the gateway's own event queue.
const (
	QueueAuth          = "auth_queue"
	QueueTasks         = "tasks_queue"
	QueueNotifications = "notifications_queue"
	QueueGateway       = "api_gateway_queue"
)

// Queues lists every well-known inbound queue.
func Queues() []string {
	return []string{QueueAuth, QueueTasks, QueueNotifications, QueueGateway}
}

// HealthSubject is broadcast to by broker health checks. Nothing subscribes to it.
const HealthSubject = "_health.ping"
