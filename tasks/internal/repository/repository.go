package repository

import (
	"context"
	"errors"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/tasks/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// Repository stores tasks, their assignees and their comments. Deleting a
// task deletes its comments.
type Repository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// ListTasks returns one page of tasks matching filter, newest first,
	// together with the total number of matches.
	ListTasks(ctx context.Context, filter contracts.TaskFilter, offset, limit int) ([]*models.Task, int, error)
	// UpdateTask overwrites the task's mutable fields and assignee list and
	// refreshes UpdatedAt.
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error

	// CreateComment fails with ErrTaskNotFound when the task does not exist.
	CreateComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns comments oldest first. A limit of zero returns all.
	ListComments(ctx context.Context, taskID string, offset, limit int) ([]*models.Comment, int, error)
}
