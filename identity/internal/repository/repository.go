package repository

import (
	"context"
	"errors"

	"github.com/JoaoG250/micro-do/identity/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Repository stores user accounts. Emails and usernames are unique.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// SearchUsers matches usernames containing query, case-insensitively,
	// ordered by username.
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error)
}
