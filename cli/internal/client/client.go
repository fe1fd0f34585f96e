package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/httputil"
)

// GatewayClient talks to the API gateway's REST surface.
type GatewayClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// Profile is the authenticated caller.
type Profile struct {
	ID       string `json:"id" yaml:"id"`
	Email    string `json:"email" yaml:"email"`
	Username string `json:"username" yaml:"username"`
}

// TaskQuery filters GET /api/tasks.
type TaskQuery struct {
	Page       int
	Limit      int
	Status     string
	Priority   string
	Search     string
	AssigneeID string
}

func NewGatewayClient(baseURL, accessToken string) *GatewayClient {
	return &GatewayClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *GatewayClient) WithToken(token string) *GatewayClient {
	cp := *c
	cp.accessToken = token
	return &cp
}

// Login exchanges credentials for an access token. The refresh cookie is ignored.
func (c *GatewayClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return resp.AccessToken, nil
}

func (c *GatewayClient) Register(ctx context.Context, req contracts.CreateUserRequest) (*contracts.User, error) {
	var user contracts.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *GatewayClient) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *GatewayClient) SearchUsers(ctx context.Context, search string, limit int) ([]contracts.UserSummary, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var users []contracts.UserSummary
	if err := c.do(ctx, http.MethodGet, "/api/users", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *GatewayClient) ListTasks(ctx context.Context, query TaskQuery) (*contracts.Page[contracts.Task], error) {
	q := url.Values{}
	setInt(q, "page", query.Page)
	setInt(q, "limit", query.Limit)
	setString(q, "status", query.Status)
	setString(q, "priority", query.Priority)
	setString(q, "search", query.Search)
	setString(q, "assigneeId", query.AssigneeID)

	var page contracts.Page[contracts.Task]
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *GatewayClient) CreateTask(ctx context.Context, req contracts.CreateTaskRequest) (*contracts.Task, error) {
	var task contracts.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *GatewayClient) GetTask(ctx context.Context, id string) (*contracts.Task, error) {
	var task contracts.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *GatewayClient) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *GatewayClient) AddComment(ctx context.Context, taskID, content string) (*contracts.Comment, error) {
	var comment contracts.Comment
	path := "/api/tasks/" + url.PathEscape(taskID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"content": content}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *GatewayClient) ListNotifications(ctx context.Context, page, limit int, unreadOnly bool) (*contracts.Page[contracts.Notification], error) {
	q := url.Values{}
	setInt(q, "page", page)
	setInt(q, "limit", limit)
	if unreadOnly {
		q.Set("unreadOnly", "true")
	}
	var result contracts.Page[contracts.Notification]
	if err := c.do(ctx, http.MethodGet, "/api/notifications", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *GatewayClient) MarkRead(ctx context.Context, id string) (*contracts.Notification, error) {
	var n contracts.Notification
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *GatewayClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body httputil.ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
