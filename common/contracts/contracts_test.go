package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name      string
		number    int
		size      int
		total     int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{name: "empty", number: 1, size: 10, total: 0, wantPages: 0},
		{name: "single page", number: 1, size: 10, total: 7, wantPages: 1},
		{name: "first of three", number: 1, size: 10, total: 25, wantPages: 3, wantNext: true},
		{name: "middle", number: 2, size: 10, total: 25, wantPages: 3, wantNext: true, wantPrev: true},
		{name: "last", number: 3, size: 10, total: 25, wantPages: 3, wantPrev: true},
		{name: "exact multiple", number: 2, size: 5, total: 10, wantPages: 2, wantPrev: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[string](nil, tt.number, tt.size, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrevious)
			assert.NotNil(t, p.Content)
		})
	}
}

func TestPageRequestNormalize(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, Limit: DefaultPageSize}, PageRequest{}.Normalize())
	assert.Equal(t, PageRequest{Page: 3, Limit: MaxPageSize}, PageRequest{Page: 3, Limit: 1000}.Normalize())
	assert.Equal(t, 20, PageRequest{Page: 3, Limit: 10}.Offset())

	huge := PageRequest{Page: math.MaxInt, Limit: 10}.Normalize()
	assert.Equal(t, math.MaxInt/10, huge.Page)
	assert.Positive(t, huge.Offset())

	huge = PageRequest{Page: 922337203685477582, Limit: 10}.Normalize()
	assert.Positive(t, huge.Offset())
}

func TestCreateTaskRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTaskRequest
		wantErr string
	}{
		{name: "minimal", req: CreateTaskRequest{Title: "Write docs"}},
		{name: "full", req: CreateTaskRequest{Title: "Ship", Priority: PriorityUrgent, Status: StatusReview, AssigneeIDs: []string{"u1"}}},
		{name: "blank title", req: CreateTaskRequest{Title: "   "}, wantErr: "title is required"},
		{name: "bad priority", req: CreateTaskRequest{Title: "x", Priority: "CRITICAL"}, wantErr: "invalid priority"},
		{name: "bad status", req: CreateTaskRequest{Title: "x", Status: "BLOCKED"}, wantErr: "invalid status"},
		{name: "empty assignee", req: CreateTaskRequest{Title: "x", AssigneeIDs: []string{""}}, wantErr: "assigneeIds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateUserRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateUserRequest
		wantErr bool
	}{
		{name: "valid", req: CreateUserRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"}},
		{name: "short username", req: CreateUserRequest{Username: "al", Email: "alice@example.com", Password: "s3cret-pass"}, wantErr: true},
		{name: "bad email", req: CreateUserRequest{Username: "alice", Email: "Alice <alice@example.com>", Password: "s3cret-pass"}, wantErr: true},
		{name: "short password", req: CreateUserRequest{Username: "alice", Email: "alice@example.com", Password: "short"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskPatchApply(t *testing.T) {
	desc := "details"
	task := &Task{Title: "old", Priority: PriorityLow, Status: StatusTodo, AssigneeIDs: []string{"u1"}}

	var patch TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":" new ","status":"DONE","assigneeIds":["u2","u3","u2"]}`), &patch))
	require.NoError(t, patch.Validate())
	patch.Description = &desc
	patch.Apply(task)

	assert.Equal(t, "new", task.Title)
	assert.Equal(t, StatusDone, task.Status)
	assert.Equal(t, PriorityLow, task.Priority)
	assert.Equal(t, []string{"u2", "u3"}, task.AssigneeIDs)
	assert.Equal(t, &desc, task.Description)

	var reset TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"assigneeIds":[]}`), &reset))
	reset.Apply(task)
	assert.Empty(t, task.AssigneeIDs)
}

func TestListTasksRequestWireFormat(t *testing.T) {
	var req ListTasksRequest
	require.NoError(t, json.Unmarshal([]byte(`{"page":2,"limit":5,"status":"TODO","search":"docs","assigneeId":"u1"}`), &req))

	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, StatusTodo, req.Status)
	assert.Equal(t, "docs", req.Search)
	assert.Equal(t, "u1", req.AssigneeID)
	assert.NoError(t, req.Validate())
}

func TestNewTaskEvent(t *testing.T) {
	event := NewTaskEvent(&Task{ID: "t1", Title: "Ship", AssigneeIDs: []string{"a", "b"}})

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1","title":"Ship","assignees":[{"id":"a"},{"id":"b"}]}`, string(data))

	empty, err := json.Marshal(NewTaskEvent(&Task{ID: "t2"}))
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"assignees":[]`)
}

func TestRealtimeEventFor(t *testing.T) {
	assert.Equal(t, "task:created", RealtimeEventFor(NotificationTaskAssigned))
	assert.Equal(t, "task:updated", RealtimeEventFor(NotificationTaskUpdated))
	assert.Equal(t, "comment:new", RealtimeEventFor(NotificationCommentCreated))
	assert.Equal(t, "notification", RealtimeEventFor("SOMETHING_ELSE"))
}

func TestCataloguesAreValid(t *testing.T) {
	for _, cat := range []struct {
		name string
		err  error
	}{
		{"identity", IdentityPatterns.Validate()},
		{"tasks", TaskPatterns.Validate()},
		{"notifications", NotificationPatterns.Validate()},
		{"gateway", GatewayPatterns.Validate()},
	} {
		assert.NoError(t, cat.err, cat.name)
	}
}
