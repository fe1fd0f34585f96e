package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/tasks/internal/models"
)

type InMemoryRepository struct {
	tasks    map[string]*models.Task
	comments map[string][]*models.Comment
	mu       sync.RWMutex
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tasks:    make(map[string]*models.Task),
		comments: make(map[string][]*models.Comment),
		now:      time.Now,
	}
}

func (r *InMemoryRepository) CreateTask(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *InMemoryRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return copyTask(task), nil
}

func (r *InMemoryRepository) ListTasks(ctx context.Context, filter contracts.TaskFilter, offset, limit int) ([]*models.Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*models.Task
	for _, task := range r.tasks {
		if matchesFilter(task, filter) {
			matches = append(matches, task)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	total := len(matches)
	page := paginate(matches, offset, limit)
	out := make([]*models.Task, 0, len(page))
	for _, task := range page {
		out = append(out, copyTask(task))
	}
	return out, total, nil
}

func (r *InMemoryRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}
	task.AuthorID = existing.AuthorID
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = r.now().UTC()
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *InMemoryRepository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	delete(r.comments, id)
	return nil
}

func (r *InMemoryRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[comment.TaskID]; !ok {
		return ErrTaskNotFound
	}
	comment.CreatedAt = r.now().UTC()
	stored := *comment
	r.comments[comment.TaskID] = append(r.comments[comment.TaskID], &stored)
	return nil
}

func (r *InMemoryRepository) ListComments(ctx context.Context, taskID string, offset, limit int) ([]*models.Comment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Comments are appended in creation order.
	all := r.comments[taskID]
	page := paginate(all, offset, limit)
	out := make([]*models.Comment, 0, len(page))
	for _, c := range page {
		stored := *c
		out = append(out, &stored)
	}
	return out, len(all), nil
}

func matchesFilter(task *models.Task, f contracts.TaskFilter) bool {
	if f.Status != "" && task.Status != f.Status {
		return false
	}
	if f.Priority != "" && task.Priority != f.Priority {
		return false
	}
	if f.AssigneeID != "" && !slices.Contains(task.AssigneeIDs, f.AssigneeID) {
		return false
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		inTitle := strings.Contains(strings.ToLower(task.Title), search)
		inDescription := task.Description != nil && strings.Contains(strings.ToLower(*task.Description), search)
		if !inTitle && !inDescription {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copyTask(t *models.Task) *models.Task {
	out := *t
	out.AssigneeIDs = slices.Clone(t.AssigneeIDs)
	if t.Description != nil {
		d := *t.Description
		out.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return &out
}
