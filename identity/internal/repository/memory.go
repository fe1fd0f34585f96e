package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/JoaoG250/micro-do/identity/internal/models"
)

type InMemoryRepository struct {
	users        map[string]*models.User
	usersByEmail map[string]*models.User
	usersByName  map[string]*models.User
	mu           sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:        make(map[string]*models.User),
		usersByEmail: make(map[string]*models.User),
		usersByName:  make(map[string]*models.User),
	}
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	name := strings.ToLower(user.Username)
	if _, exists := r.usersByEmail[email]; exists {
		return ErrUserExists
	}
	if _, exists := r.usersByName[name]; exists {
		return ErrUserExists
	}

	stored := *user
	r.users[user.ID] = &stored
	r.usersByEmail[email] = &stored
	r.usersByName[name] = &stored
	return nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByEmail[strings.ToLower(email)]
	if !exists {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []*models.User
	for name, user := range r.usersByName {
		if strings.Contains(name, query) {
			out := *user
			matches = append(matches, &out)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Username < matches[j].Username
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
