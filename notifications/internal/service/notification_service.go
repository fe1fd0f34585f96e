// Package service turns task events into per-user notifications and serves
// the notification inbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/notifications/internal/models"
	"github.com/JoaoG250/micro-do/notifications/internal/repository"
)

// NotificationService persists notifications and announces each one on
// the gateway topic.
type NotificationService struct {
	repo   repository.Repository
	tasks  rpc.Caller
	events rpc.Emitter
	logger *logging.Logger
}

// NewNotificationService creates a NotificationService. tasks is used to
// look up a task's assignees when a comment arrives.
func NewNotificationService(repo repository.Repository, tasks rpc.Caller, events rpc.Emitter, logger *logging.Logger) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationService{repo: repo, tasks: tasks, events: events, logger: logger}
}

// OnTaskCreated notifies every assignee of a new task.
func (s *NotificationService) OnTaskCreated(ctx context.Context, event contracts.TaskEvent) error {
	return s.notifyAll(ctx, assigneeIDs(event.Assignees),
		contracts.NotificationTaskAssigned,
		"You have been assigned to task: "+event.Title,
		map[string]string{"taskId": event.ID},
	)
}

// OnTaskUpdated notifies every assignee of a change to the task.
func (s *NotificationService) OnTaskUpdated(ctx context.Context, event contracts.TaskEvent) error {
	return s.notifyAll(ctx, assigneeIDs(event.Assignees),
		contracts.NotificationTaskUpdated,
		"Task updated: "+event.Title,
		map[string]string{"taskId": event.ID},
	)
}

// OnCommentCreated notifies the task's assignees, except the comment author.
// The task is fetched from the tasks service since the event only carries ids.
func (s *NotificationService) OnCommentCreated(ctx context.Context, event contracts.CommentCreatedEvent) error {
	task, err := rpc.Call[*contracts.Task](ctx, s.tasks, messaging.QueueTasks, contracts.PatternGetTask, contracts.TaskRef{ID: event.TaskID})
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", event.TaskID, err)
	}
	if task == nil {
		return fmt.Errorf("task %s: empty reply", event.TaskID)
	}

	recipients := make([]string, 0, len(task.AssigneeIDs))
	for _, id := range task.AssigneeIDs {
		if id != event.AuthorID {
			recipients = append(recipients, id)
		}
	}

	return s.notifyAll(ctx, contracts.Dedupe(recipients),
		contracts.NotificationCommentCreated,
		"New comment on task: "+task.Title,
		map[string]string{"taskId": event.TaskID, "commentId": event.ID},
	)
}

// notifyAll keeps going after a failed recipient so one bad write does not
// starve the others.
func (s *NotificationService) notifyAll(ctx context.Context, userIDs []string, kind contracts.NotificationType, message string, metadata map[string]string) error {
	var errs []error
	for _, userID := range userIDs {
		if err := s.notify(ctx, userID, kind, message, metadata); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *NotificationService) notify(ctx context.Context, userID string, kind contracts.NotificationType, message string, metadata map[string]string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate notification ID: %w", err)
	}

	n := &models.Notification{
		ID:       id.String(),
		UserID:   userID,
		Type:     kind,
		Message:  message,
		Metadata: metadata,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification for %s: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "notification created",
		logging.UserID(userID),
		slog.String("type", string(kind)),
	)
	s.events.Emit(ctx, contracts.TopicNotificationCreated, n.Contract())
	return nil
}

// ListNotifications returns one page of the user's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, req contracts.ListNotificationsRequest) (contracts.Page[contracts.Notification], error) {
	if req.UserID == "" {
		return contracts.Page[contracts.Notification]{}, rpc.InvalidArgument("userId is required")
	}
	page := req.PageRequest.Normalize()

	list, total, err := s.repo.ListNotifications(ctx, req.UserID, req.UnreadOnly, page.Offset(), page.Limit)
	if err != nil {
		return contracts.Page[contracts.Notification]{}, err
	}

	content := make([]contracts.Notification, 0, len(list))
	for _, n := range list {
		content = append(content, n.Contract())
	}
	return contracts.NewPage(content, page.Page, page.Limit, total), nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, req contracts.MarkReadRequest) (*contracts.Notification, error) {
	if req.UserID == "" {
		return nil, rpc.InvalidArgument("userId is required")
	}
	if uuid.Validate(req.ID) != nil {
		return nil, notificationNotFound(req.ID)
	}

	n, err := s.repo.MarkRead(ctx, req.ID, req.UserID)
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return nil, notificationNotFound(req.ID)
	}
	if err != nil {
		return nil, err
	}
	out := n.Contract()
	return &out, nil
}

func notificationNotFound(id string) *rpc.Error {
	return rpc.NotFound("Notification with ID %s not found", id)
}

func assigneeIDs(refs []contracts.AssigneeRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return contracts.Dedupe(ids)
}
