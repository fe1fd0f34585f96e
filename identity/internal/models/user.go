package models

import (
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
)

// User is an account as stored by the identity service.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contract returns the public view of the user without the password hash.
func (u *User) Contract() *contracts.User {
	return &contracts.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Summary returns the id and username only.
func (u *User) Summary() contracts.UserSummary {
	return contracts.UserSummary{ID: u.ID, Username: u.Username}
}
