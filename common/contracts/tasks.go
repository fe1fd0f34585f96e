package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work with assignees and comments.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeIDs []string   `json:"assigneeIds"`
	AuthorID    string     `json:"authorId,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Comment belongs to a task.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	TaskID    string    `json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateTaskRequest creates a task. AuthorID is filled in by the gateway.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Status      Status     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeIDs []string   `json:"assigneeIds,omitempty"`
	AuthorID    string     `json:"authorId,omitempty"`
}

// Validate checks the task fields. Missing priority and status are allowed
// and receive defaults from the tasks service.
func (r CreateTaskRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return ValidationError("title is required")
	}
	if len(title) > 255 {
		return ValidationError("title must be at most 255 characters")
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return ValidationError(fmt.Sprintf("invalid priority %q", r.Priority))
	}
	if r.Status != "" && !r.Status.Valid() {
		return ValidationError(fmt.Sprintf("invalid status %q", r.Status))
	}
	return validateAssignees(r.AssigneeIDs)
}

// TaskPatch lists the fields to change. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeIDs *[]string  `json:"assigneeIds,omitempty"`
}

// Validate checks the fields being changed.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return ValidationError("title must not be empty")
		}
		if len(title) > 255 {
			return ValidationError("title must be at most 255 characters")
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError(fmt.Sprintf("invalid priority %q", *p.Priority))
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError(fmt.Sprintf("invalid status %q", *p.Status))
	}
	if p.AssigneeIDs != nil {
		return validateAssignees(*p.AssigneeIDs)
	}
	return nil
}

// Apply writes the patch onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.AssigneeIDs != nil {
		t.AssigneeIDs = Dedupe(*p.AssigneeIDs)
	}
}

// UpdateTaskRequest applies Patch to the task with ID.
type UpdateTaskRequest struct {
	ID    string    `json:"id"`
	Patch TaskPatch `json:"dto"`
}

// TaskFilter narrows list_tasks results.
type TaskFilter struct {
	Status     Status   `json:"status,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
	Search     string   `json:"search,omitempty"`
	AssigneeID string   `json:"assigneeId,omitempty"`
}

// ListTasksRequest pages through tasks, newest first.
type ListTasksRequest struct {
	PageRequest
	TaskFilter
}

// Validate checks the filter values.
func (r ListTasksRequest) Validate() error {
	if r.Status != "" && !r.Status.Valid() {
		return ValidationError(fmt.Sprintf("invalid status %q", r.Status))
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return ValidationError(fmt.Sprintf("invalid priority %q", r.Priority))
	}
	return nil
}

// TaskRef addresses a single task.
type TaskRef struct {
	ID string `json:"id"`
}

// CreateCommentRequest adds a comment to a task.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	TaskID   string `json:"taskId"`
	AuthorID string `json:"authorId"`
}

// Validate checks the comment fields.
func (r CreateCommentRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Content) == "":
		return ValidationError("content is required")
	case r.TaskID == "":
		return ValidationError("taskId is required")
	case r.AuthorID == "":
		return ValidationError("authorId is required")
	}
	return nil
}

// ListCommentsRequest pages through a task's comments, oldest first.
type ListCommentsRequest struct {
	PageRequest
	TaskID string `json:"taskId"`
}

// AssigneeRef identifies an assignee in task events.
type AssigneeRef struct {
	ID string `json:"id"`
}

// TaskEvent is published on task.created and task.updated.
type TaskEvent struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Assignees []AssigneeRef `json:"assignees"`
}

// NewTaskEvent builds the event for t.
func NewTaskEvent(t *Task) TaskEvent {
	assignees := make([]AssigneeRef, 0, len(t.AssigneeIDs))
	for _, id := range t.AssigneeIDs {
		assignees = append(assignees, AssigneeRef{ID: id})
	}
	return TaskEvent{ID: t.ID, Title: t.Title, Assignees: assignees}
}

// CommentCreatedEvent is published on comment.created.
type CommentCreatedEvent struct {
	ID       string `json:"id"`
	TaskID   string `json:"taskId"`
	AuthorID string `json:"authorId"`
}

func validateAssignees(ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ValidationError("assigneeIds must not contain empty ids")
		}
	}
	return nil
}

// Dedupe returns ids without repeats, keeping the first occurrence order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
