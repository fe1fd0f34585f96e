package models

import (
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
)

// Task as stored by the tasks service.
type Task struct {
	ID          string
	Title       string
	Description *string
	Priority    contracts.Priority
	Status      contracts.Status
	DueDate     *time.Time
	AssigneeIDs []string
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment on a task.
type Comment struct {
	ID        string
	TaskID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Contract converts the task to its wire form. AssigneeIDs is never nil.
func (t *Task) Contract() *contracts.Task {
	assignees := t.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}
	return &contracts.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		AssigneeIDs: assignees,
		AuthorID:    t.AuthorID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// FromContract copies the mutable fields of c back onto t.
func (t *Task) FromContract(c *contracts.Task) {
	t.Title = c.Title
	t.Description = c.Description
	t.Priority = c.Priority
	t.Status = c.Status
	t.DueDate = c.DueDate
	t.AssigneeIDs = c.AssigneeIDs
}

// Contract converts the comment to its wire form.
func (c *Comment) Contract() contracts.Comment {
	return contracts.Comment{
		ID:        c.ID,
		Content:   c.Content,
		AuthorID:  c.AuthorID,
		TaskID:    c.TaskID,
		CreatedAt: c.CreatedAt,
	}
}
