package contracts

import (
	"net/mail"
	"strings"
	"time"
)

// User is a registered account. The password hash never leaves the identity service.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is the public view of a user used by assignee pickers.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ValidateUserRequest checks a set of credentials.
type ValidateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r ValidateUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return ValidationError("email and password are required")
	}
	return nil
}

// CreateUserRequest registers an account.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration fields.
func (r CreateUserRequest) Validate() error {
	username := strings.TrimSpace(r.Username)
	switch {
	case len(username) < 3 || len(username) > 50:
		return ValidationError("username must be between 3 and 50 characters")
	case !validEmail(r.Email):
		return ValidationError("email must be a valid email address")
	case len(r.Password) < 8:
		return ValidationError("password must be at least 8 characters")
	case len(r.Password) > 72:
		return ValidationError("password must be at most 72 characters")
	}
	return nil
}

// SearchUsersRequest looks users up by username prefix or substring.
type SearchUsersRequest struct {
	Search string `json:"search"`
	Limit  int    `json:"limit,omitempty"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
