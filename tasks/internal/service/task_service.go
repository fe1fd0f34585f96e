// Package service implements task and comment operations. Mutations emit
// events that the notifications service turns into user notifications.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/tasks/internal/models"
	"github.com/JoaoG250/micro-do/tasks/internal/repository"
)

type TaskService struct {
	repo   repository.Repository
	events rpc.Emitter
	logger *logging.Logger
}

func NewTaskService(repo repository.Repository, events rpc.Emitter, logger *logging.Logger) *TaskService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TaskService{repo: repo, events: events, logger: logger}
}

// CreateTask stores a new task and emits task.created.
func (s *TaskService) CreateTask(ctx context.Context, req contracts.CreateTaskRequest) (*contracts.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, rpc.InvalidArgument("%s", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task ID: %w", err)
	}

	task := &models.Task{
		ID:          id.String(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		AssigneeIDs: contracts.Dedupe(req.AssigneeIDs),
		AuthorID:    req.AuthorID,
	}
	if task.Priority == "" {
		task.Priority = contracts.PriorityMedium
	}
	if task.Status == "" {
		task.Status = contracts.StatusTodo
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	out := task.Contract()
	s.logger.InfoContext(ctx, "task created", slog.String("task_id", out.ID), slog.Int("assignees", len(out.AssigneeIDs)))
	s.events.Emit(ctx, contracts.TopicTaskCreated, contracts.NewTaskEvent(out))
	return out, nil
}

// ListTasks returns one page of tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, req contracts.ListTasksRequest) (contracts.Page[contracts.Task], error) {
	if err := req.Validate(); err != nil {
		return contracts.Page[contracts.Task]{}, rpc.InvalidArgument("%s", err)
	}
	page := req.PageRequest.Normalize()

	filter := req.TaskFilter
	filter.Search = strings.TrimSpace(filter.Search)

	tasks, total, err := s.repo.ListTasks(ctx, filter, page.Offset(), page.Limit)
	if err != nil {
		return contracts.Page[contracts.Task]{}, err
	}

	content := make([]contracts.Task, 0, len(tasks))
	for _, t := range tasks {
		content = append(content, *t.Contract())
	}
	return contracts.NewPage(content, page.Page, page.Limit, total), nil
}

// GetTask returns the task with its comments, oldest first.
func (s *TaskService) GetTask(ctx context.Context, ref contracts.TaskRef) (*contracts.Task, error) {
	task, err := s.find(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	comments, _, err := s.repo.ListComments(ctx, task.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	out := task.Contract()
	out.Comments = make([]contracts.Comment, 0, len(comments))
	for _, c := range comments {
		out.Comments = append(out.Comments, c.Contract())
	}
	return out, nil
}

// UpdateTask applies a partial update and emits task.updated.
func (s *TaskService) UpdateTask(ctx context.Context, req contracts.UpdateTaskRequest) (*contracts.Task, error) {
	if err := req.Patch.Validate(); err != nil {
		return nil, rpc.InvalidArgument("%s", err)
	}

	task, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	patched := task.Contract()
	req.Patch.Apply(patched)
	task.FromContract(patched)

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, taskNotFound(req.ID)
		}
		return nil, err
	}

	out := task.Contract()
	s.events.Emit(ctx, contracts.TopicTaskUpdated, contracts.NewTaskEvent(out))
	return out, nil
}

// DeleteTask removes the task and its comments. It reports true on success.
func (s *TaskService) DeleteTask(ctx context.Context, ref contracts.TaskRef) (bool, error) {
	if !validID(ref.ID) {
		return false, taskNotFound(ref.ID)
	}
	if err := s.repo.DeleteTask(ctx, ref.ID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return false, taskNotFound(ref.ID)
		}
		return false, err
	}
	s.logger.InfoContext(ctx, "task deleted", slog.String("task_id", ref.ID))
	return true, nil
}

// CreateComment adds a comment and emits comment.created.
func (s *TaskService) CreateComment(ctx context.Context, req contracts.CreateCommentRequest) (*contracts.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, rpc.InvalidArgument("%s", err)
	}
	if !validID(req.TaskID) {
		return nil, taskNotFound(req.TaskID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate comment ID: %w", err)
	}

	comment := &models.Comment{
		ID:       id.String(),
		TaskID:   req.TaskID,
		AuthorID: req.AuthorID,
		Content:  strings.TrimSpace(req.Content),
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, taskNotFound(req.TaskID)
		}
		return nil, err
	}

	out := comment.Contract()
	s.events.Emit(ctx, contracts.TopicCommentCreated, contracts.CommentCreatedEvent{
		ID:       out.ID,
		TaskID:   out.TaskID,
		AuthorID: out.AuthorID,
	})
	return &out, nil
}

// ListComments returns one page of a task's comments, oldest first.
func (s *TaskService) ListComments(ctx context.Context, req contracts.ListCommentsRequest) (contracts.Page[contracts.Comment], error) {
	if _, err := s.find(ctx, req.TaskID); err != nil {
		return contracts.Page[contracts.Comment]{}, err
	}
	page := req.PageRequest.Normalize()

	comments, total, err := s.repo.ListComments(ctx, req.TaskID, page.Offset(), page.Limit)
	if err != nil {
		return contracts.Page[contracts.Comment]{}, err
	}

	content := make([]contracts.Comment, 0, len(comments))
	for _, c := range comments {
		content = append(content, c.Contract())
	}
	return contracts.NewPage(content, page.Page, page.Limit, total), nil
}

func (s *TaskService) find(ctx context.Context, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, taskNotFound(id)
	}
	task, err := s.repo.GetTask(ctx, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, taskNotFound(id)
	}
	return task, err
}

// Task ids are UUIDs; anything else cannot name a stored task.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func taskNotFound(id string) *rpc.Error {
	return rpc.NotFound("Task with ID %s not found", id)
}
