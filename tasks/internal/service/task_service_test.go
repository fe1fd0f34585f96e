package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/tasks/internal/repository"
)

type emitted struct {
	topic   rpc.Topic
	payload any
}

// recordingEmitter captures events instead of publishing them.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(_ context.Context, topic rpc.Topic, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{topic: topic, payload: payload})
}

func (r *recordingEmitter) last(t *testing.T) emitted {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events, "no event emitted")
	return r.events[len(r.events)-1]
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestService(t *testing.T) (*TaskService, *recordingEmitter) {
	t.Helper()
	events := &recordingEmitter{}
	return NewTaskService(repository.NewInMemoryRepository(), events, nil), events
}

func TestCreateTask(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{
		Title:       "  Review PR  ",
		AssigneeIDs: []string{"ann", "ben", "ann"},
		AuthorID:    "carl",
	})
	require.NoError(t, err)
	assert.Equal(t, "Review PR", task.Title)
	assert.Equal(t, contracts.PriorityMedium, task.Priority)
	assert.Equal(t, contracts.StatusTodo, task.Status)
	assert.Equal(t, []string{"ann", "ben"}, task.AssigneeIDs)
	assert.Equal(t, "carl", task.AuthorID)

	ev := events.last(t)
	assert.Equal(t, contracts.TopicTaskCreated, ev.topic)
	assert.Equal(t, contracts.TaskEvent{
		ID:        task.ID,
		Title:     "Review PR",
		Assignees: []contracts.AssigneeRef{{ID: "ann"}, {ID: "ben"}},
	}, ev.payload)
}

func TestCreateTask_Invalid(t *testing.T) {
	svc, events := newTestService(t)

	tests := []struct {
		name string
		req  contracts.CreateTaskRequest
	}{
		{name: "empty title", req: contracts.CreateTaskRequest{Title: "  "}},
		{name: "bad priority", req: contracts.CreateTaskRequest{Title: "x", Priority: "CRITICAL"}},
		{name: "bad status", req: contracts.CreateTaskRequest{Title: "x", Status: "BLOCKED"}},
		{name: "empty assignee", req: contracts.CreateTaskRequest{Title: "x", AssigneeIDs: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(context.Background(), tt.req)
			assert.Equal(t, rpc.CodeInvalidArgument, rpc.CodeOf(err))
		})
	}
	assert.Zero(t, events.count())
}

func TestGetTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{Title: "Deploy"})
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, contracts.CreateCommentRequest{TaskID: task.ID, AuthorID: "ann", Content: "on it"})
	require.NoError(t, err)

	got, err := svc.GetTask(ctx, contracts.TaskRef{ID: task.ID})
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "on it", got.Comments[0].Content)

	for _, id := range []string{"0192f0c4-0000-7000-8000-000000000999", "not-a-uuid"} {
		_, err := svc.GetTask(ctx, contracts.TaskRef{ID: id})
		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeNotFound, rpcErr.Code)
		assert.Equal(t, "Task with ID "+id+" not found", rpcErr.Message)
	}
}

func TestListTasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{Title: title, Priority: contracts.PriorityHigh})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page, err := svc.ListTasks(ctx, contracts.ListTasksRequest{PageRequest: contracts.PageRequest{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrevious)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "three", page.Content[0].Title)

	page, err = svc.ListTasks(ctx, contracts.ListTasksRequest{PageRequest: contracts.PageRequest{Page: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "one", page.Content[0].Title)
	assert.True(t, page.HasPrevious)

	page, err = svc.ListTasks(ctx, contracts.ListTasksRequest{TaskFilter: contracts.TaskFilter{Priority: contracts.PriorityLow}})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Size)
	assert.NotNil(t, page.Content)
	assert.Empty(t, page.Content)

	page, err = svc.ListTasks(ctx, contracts.ListTasksRequest{PageRequest: contracts.PageRequest{Page: 922337203685477582, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, 3, page.TotalElements)
	assert.False(t, page.HasNext)

	_, err = svc.ListTasks(ctx, contracts.ListTasksRequest{TaskFilter: contracts.TaskFilter{Status: "NOPE"}})
	assert.Equal(t, rpc.CodeInvalidArgument, rpc.CodeOf(err))
}

func TestUpdateTask(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	desc := "initial"
	task, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{Title: "Draft", Description: &desc, AssigneeIDs: []string{"ann"}})
	require.NoError(t, err)

	status := contracts.StatusInProgress
	assignees := []string{"ben", "ben", "carl"}
	updated, err := svc.UpdateTask(ctx, contracts.UpdateTaskRequest{
		ID:    task.ID,
		Patch: contracts.TaskPatch{Status: &status, AssigneeIDs: &assignees},
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Title, "untouched fields survive")
	require.NotNil(t, updated.Description)
	assert.Equal(t, "initial", *updated.Description)
	assert.Equal(t, contracts.StatusInProgress, updated.Status)
	assert.Equal(t, []string{"ben", "carl"}, updated.AssigneeIDs)

	ev := events.last(t)
	assert.Equal(t, contracts.TopicTaskUpdated, ev.topic)
	assert.Equal(t, []contracts.AssigneeRef{{ID: "ben"}, {ID: "carl"}}, ev.payload.(contracts.TaskEvent).Assignees)

	empty := ""
	_, err = svc.UpdateTask(ctx, contracts.UpdateTaskRequest{ID: task.ID, Patch: contracts.TaskPatch{Title: &empty}})
	assert.Equal(t, rpc.CodeInvalidArgument, rpc.CodeOf(err))

	_, err = svc.UpdateTask(ctx, contracts.UpdateTaskRequest{ID: "0192f0c4-0000-7000-8000-000000000999", Patch: contracts.TaskPatch{Status: &status}})
	assert.Equal(t, rpc.CodeNotFound, rpc.CodeOf(err))
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{Title: "Temp"})
	require.NoError(t, err)

	ok, err := svc.DeleteTask(ctx, contracts.TaskRef{ID: task.ID})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.DeleteTask(ctx, contracts.TaskRef{ID: task.ID})
	assert.Equal(t, rpc.CodeNotFound, rpc.CodeOf(err))
}

func TestComments(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, contracts.CreateTaskRequest{Title: "Discuss"})
	require.NoError(t, err)

	for _, content := range []string{"a", "b", "c"} {
		comment, err := svc.CreateComment(ctx, contracts.CreateCommentRequest{TaskID: task.ID, AuthorID: "ann", Content: content})
		require.NoError(t, err)
		assert.Equal(t, contracts.CommentCreatedEvent{ID: comment.ID, TaskID: task.ID, AuthorID: "ann"}, events.last(t).payload)
	}

	page, err := svc.ListComments(ctx, contracts.ListCommentsRequest{TaskID: task.ID, PageRequest: contracts.PageRequest{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "a", page.Content[0].Content)
	assert.Equal(t, "b", page.Content[1].Content)

	_, err = svc.CreateComment(ctx, contracts.CreateCommentRequest{TaskID: "0192f0c4-0000-7000-8000-000000000999", AuthorID: "ann", Content: "x"})
	assert.Equal(t, rpc.CodeNotFound, rpc.CodeOf(err))

	_, err = svc.CreateComment(ctx, contracts.CreateCommentRequest{TaskID: task.ID, AuthorID: "ann", Content: " "})
	assert.Equal(t, rpc.CodeInvalidArgument, rpc.CodeOf(err))

	_, err = svc.ListComments(ctx, contracts.ListCommentsRequest{TaskID: "missing"})
	assert.Equal(t, rpc.CodeNotFound, rpc.CodeOf(err))
}
