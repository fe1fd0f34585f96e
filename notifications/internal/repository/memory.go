package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/JoaoG250/micro-do/notifications/internal/models"
)

type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*models.Notification
	byUser map[string][]*models.Notification
	now    func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*models.Notification),
		byUser: make(map[string][]*models.Notification),
		now:    time.Now,
	}
}

func (r *InMemoryRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.CreatedAt = r.now().UTC()
	stored := clone(n)
	r.byID[n.ID] = stored
	r.byUser[n.UserID] = append(r.byUser[n.UserID], stored)
	return nil
}

func (r *InMemoryRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*models.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*models.Notification
	for _, n := range r.byUser[userID] {
		if unreadOnly && n.IsRead {
			continue
		}
		matches = append(matches, n)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	if offset < 0 || offset >= total {
		return []*models.Notification{}, total, nil
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*models.Notification, 0, len(matches))
	for _, n := range matches {
		out = append(out, clone(n))
	}
	return out, total, nil
}

func (r *InMemoryRepository) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	n.IsRead = true
	return clone(n), nil
}

func clone(n *models.Notification) *models.Notification {
	out := *n
	out.Metadata = maps.Clone(n.Metadata)
	return &out
}
