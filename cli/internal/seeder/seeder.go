// Package seeder fills a running stack with fake users and tasks by calling
// the backend services directly over the broker.
package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

// DefaultPassword is given to every seeded account so they can log in.
const DefaultPassword = "micro-do-seed"

type Config struct {
	Users        int
	Tasks        int
	Password     string
	MaxAssignees int
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed int64
}

// Result lists what was created. Skipped counts users the identity service
// refused, typically because the name was already taken.
type Result struct {
	Users   []contracts.User `json:"users" yaml:"users"`
	Tasks   []contracts.Task `json:"tasks" yaml:"tasks"`
	Skipped int              `json:"skipped" yaml:"skipped"`
}

type Seeder struct {
	caller rpc.Caller
	faker  *gofakeit.Faker
	cfg    Config
	now    func() time.Time
	logger *logging.Logger
}

func New(caller rpc.Caller, cfg Config, logger *logging.Logger) *Seeder {
	if cfg.Password == "" {
		cfg.Password = DefaultPassword
	}
	if cfg.MaxAssignees <= 0 {
		cfg.MaxAssignees = 3
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Seeder{
		caller: caller,
		faker:  gofakeit.New(cfg.Seed),
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(logging.Service("seeder")),
	}
}

// Run creates the users first, then spreads the tasks over them.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.cfg.Users < 0 || s.cfg.Tasks < 0 {
		return nil, fmt.Errorf("users and tasks must not be negative")
	}
	if s.cfg.Tasks > 0 && s.cfg.Users == 0 {
		return nil, fmt.Errorf("tasks need at least one user to author them")
	}

	res := &Result{}
	for i := 0; i < s.cfg.Users; i++ {
		user, err := s.createUser(ctx, i)
		switch {
		case rpc.CodeOf(err) == rpc.CodeAlreadyExists:
			res.Skipped++
			s.logger.WarnContext(ctx, "user already exists, skipping", logging.Error(err))
			continue
		case err != nil:
			return res, fmt.Errorf("create user %d: %w", i+1, err)
		}
		res.Users = append(res.Users, *user)
	}

	if s.cfg.Tasks > 0 && len(res.Users) == 0 {
		return res, fmt.Errorf("no users were created, cannot seed tasks")
	}

	for i := 0; i < s.cfg.Tasks; i++ {
		task, err := s.createTask(ctx, res.Users)
		if err != nil {
			return res, fmt.Errorf("create task %d: %w", i+1, err)
		}
		res.Tasks = append(res.Tasks, *task)
	}

	s.logger.InfoContext(ctx, "seed complete",
		"users", len(res.Users),
		"tasks", len(res.Tasks),
		"skipped", res.Skipped)
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, n int) (*contracts.User, error) {
	username := fmt.Sprintf("%s%d", strings.ToLower(s.faker.Username()), n+1)
	if len(username) > 50 {
		username = username[len(username)-50:]
	}
	req := contracts.CreateUserRequest{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, s.faker.DomainName()),
		Password: s.cfg.Password,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return rpc.Call[*contracts.User](ctx, s.caller, messaging.QueueAuth, contracts.PatternCreateUser, req)
}

var (
	priorities = []contracts.Priority{
		contracts.PriorityLow, contracts.PriorityMedium, contracts.PriorityHigh, contracts.PriorityUrgent,
	}
	statuses = []contracts.Status{
		contracts.StatusTodo, contracts.StatusInProgress, contracts.StatusReview, contracts.StatusDone,
	}
)

func (s *Seeder) createTask(ctx context.Context, users []contracts.User) (*contracts.Task, error) {
	author := users[s.faker.Number(0, len(users)-1)]
	description := s.faker.Sentence(12)
	due := s.now().Add(time.Duration(s.faker.Number(1, 30)) * 24 * time.Hour).UTC().Truncate(time.Second)

	req := contracts.CreateTaskRequest{
		Title:       strings.TrimSuffix(s.faker.HackerPhrase(), "!"),
		Description: &description,
		Priority:    priorities[s.faker.Number(0, len(priorities)-1)],
		Status:      statuses[s.faker.Number(0, len(statuses)-1)],
		DueDate:     &due,
		AssigneeIDs: s.pickAssignees(users),
		AuthorID:    author.ID,
	}
	if len(req.Title) > 255 {
		req.Title = req.Title[:255]
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return rpc.Call[*contracts.Task](ctx, s.caller, messaging.QueueTasks, contracts.PatternCreateTask, req)
}

func (s *Seeder) pickAssignees(users []contracts.User) []string {
	n := s.faker.Number(0, min(s.cfg.MaxAssignees, len(users)))
	if n == 0 {
		return nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	s.faker.ShuffleStrings(ids)
	return ids[:n]
}
