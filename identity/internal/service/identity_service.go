package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/identity/internal/models"
	"github.com/JoaoG250/micro-do/identity/internal/repository"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// IdentityService owns user accounts and credential checks.
type IdentityService struct {
	repo       repository.Repository
	bcryptCost int
	logger     *logging.Logger

	// dummyHash is compared against when the email is unknown so both
	// failure paths take a bcrypt comparison.
	dummyHash []byte
}

// NewIdentityService creates an IdentityService. A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func NewIdentityService(repo repository.Repository, bcryptCost int, logger *logging.Logger) *IdentityService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = logging.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("micro-do-dummy-password"), bcryptCost)
	return &IdentityService{repo: repo, bcryptCost: bcryptCost, logger: logger, dummyHash: dummy}
}

// ValidateUser returns the user matching the credentials, or nil when they
// do not match any account.
func (s *IdentityService) ValidateUser(ctx context.Context, req contracts.ValidateUserRequest) (*contracts.User, error) {
	if err := req.Validate(); err != nil {
		return nil, rpc.InvalidArgument("%s", err)
	}

	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.DebugContext(ctx, "credential check failed", logging.UserID(user.ID))
		return nil, nil
	}
	return user.Contract(), nil
}

// CreateUser registers an account with a bcrypt password hash.
func (s *IdentityService) CreateUser(ctx context.Context, req contracts.CreateUserRequest) (*contracts.User, error) {
	if err := req.Validate(); err != nil {
		return nil, rpc.InvalidArgument("%s", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := &models.User{
		ID:           userID.String(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, rpc.AlreadyExists("User with this email or username already exists")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", logging.UserID(user.ID))
	return user.Contract(), nil
}

// SearchUsers returns users whose username contains the search text.
func (s *IdentityService) SearchUsers(ctx context.Context, req contracts.SearchUsersRequest) ([]contracts.UserSummary, error) {
	limit := req.Limit
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	users, err := s.repo.SearchUsers(ctx, strings.TrimSpace(req.Search), limit)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}
