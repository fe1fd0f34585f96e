package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

const taskID = "0192f0c4-7d1e-7000-8000-000000000001"

// serveTask routes r through a mux so path values are populated.
func serveTask(h *TaskHandler, pattern string, fn http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, fn)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, r)
	return rr
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   bool
	}{
		{name: "created", body: `{"title":"Write docs","priority":"HIGH","assigneeIds":["u1"]}`, wantStatus: http.StatusCreated, wantCall: true},
		{name: "missing title", body: `{"priority":"HIGH"}`, wantStatus: http.StatusBadRequest},
		{name: "bad priority", body: `{"title":"x","priority":"SOMEDAY"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"title":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := newStubCaller()
			caller.on(contracts.PatternCreateTask, func(raw json.RawMessage) (any, error) {
				var req contracts.CreateTaskRequest
				require.NoError(t, json.Unmarshal(raw, &req))
				return contracts.Task{ID: taskID, Title: req.Title, AuthorID: req.AuthorID, AssigneeIDs: req.AssigneeIDs}, nil
			})
			h := NewTaskHandler(caller, testLogger())

			rr := httptest.NewRecorder()
			h.Create(rr, asAlice(jsonRequest(http.MethodPost, "/api/tasks", tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCall, caller.called(contracts.PatternCreateTask))
		})
	}
}

func TestCreateTaskAuthorFromToken(t *testing.T) {
	caller := newStubCaller()
	caller.reply(contracts.PatternCreateTask, contracts.Task{ID: taskID})
	h := NewTaskHandler(caller, testLogger())

	rr := httptest.NewRecorder()
	h.Create(rr, asAlice(jsonRequest(http.MethodPost, "/api/tasks", `{"title":"Mine","authorId":"someone-else"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var sent contracts.CreateTaskRequest
	caller.payload(t, contracts.PatternCreateTask, &sent)
	assert.Equal(t, alice.UserID, sent.AuthorID)
	assert.Equal(t, messaging.QueueTasks, caller.queues[contracts.PatternCreateTask])
}

func TestListTasksQuery(t *testing.T) {
	caller := newStubCaller()
	caller.reply(contracts.PatternListTasks, contracts.NewPage([]contracts.Task{{ID: taskID}}, 2, 5, 6))
	h := NewTaskHandler(caller, testLogger())

	rr := httptest.NewRecorder()
	h.List(rr, asAlice(jsonRequest(http.MethodGet, "/api/tasks?page=2&limit=5&status=DONE&priority=LOW&search=docs&assigneeId=u1", "")))
	require.Equal(t, http.StatusOK, rr.Code)

	var sent contracts.ListTasksRequest
	caller.payload(t, contracts.PatternListTasks, &sent)
	assert.Equal(t, contracts.PageRequest{Page: 2, Limit: 5}, sent.PageRequest)
	assert.Equal(t, contracts.TaskFilter{
		Status:     contracts.StatusDone,
		Priority:   contracts.PriorityLow,
		Search:     "docs",
		AssigneeID: "u1",
	}, sent.TaskFilter)

	var page contracts.Page[contracts.Task]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasPrevious)
	assert.Len(t, page.Content, 1)

	t.Run("rejects unknown status", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.List(rr, asAlice(jsonRequest(http.MethodGet, "/api/tasks?status=LATER", "")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("defaults pagination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.List(rr, asAlice(jsonRequest(http.MethodGet, "/api/tasks?page=-3&limit=1000", "")))
		require.Equal(t, http.StatusOK, rr.Code)
		caller.payload(t, contracts.PatternListTasks, &sent)
		assert.Equal(t, 1, sent.Page)
		assert.Equal(t, contracts.MaxPageSize, sent.Limit)
	})
}

func TestGetUpdateDeleteTask(t *testing.T) {
	caller := newStubCaller()
	h := NewTaskHandler(caller, testLogger())

	t.Run("get missing", func(t *testing.T) {
		caller.fail(contracts.PatternGetTask, &rpc.RemoteError{Code: rpc.CodeNotFound, Message: "Task with ID " + taskID + " not found"})

		rr := serveTask(h, "GET /api/tasks/{id}", h.Get, asAlice(jsonRequest(http.MethodGet, "/api/tasks/"+taskID, "")))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, decodeError(t, rr).Message, taskID)
		var ref contracts.TaskRef
		caller.payload(t, contracts.PatternGetTask, &ref)
		assert.Equal(t, taskID, ref.ID)
	})

	t.Run("update sends the patch under dto", func(t *testing.T) {
		caller.reply(contracts.PatternUpdateTask, contracts.Task{ID: taskID, Status: contracts.StatusDone})

		rr := serveTask(h, "PUT /api/tasks/{id}", h.Update,
			asAlice(jsonRequest(http.MethodPut, "/api/tasks/"+taskID, `{"status":"DONE"}`)))
		require.Equal(t, http.StatusOK, rr.Code)

		var sent contracts.UpdateTaskRequest
		caller.payload(t, contracts.PatternUpdateTask, &sent)
		assert.Equal(t, taskID, sent.ID)
		require.NotNil(t, sent.Patch.Status)
		assert.Equal(t, contracts.StatusDone, *sent.Patch.Status)
		assert.Nil(t, sent.Patch.Title)
	})

	t.Run("update rejects blank title", func(t *testing.T) {
		rr := serveTask(h, "PUT /api/tasks/{id}", h.Update,
			asAlice(jsonRequest(http.MethodPut, "/api/tasks/"+taskID, `{"title":"   "}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		caller.reply(contracts.PatternDeleteTask, true)

		rr := serveTask(h, "DELETE /api/tasks/{id}", h.Delete,
			asAlice(jsonRequest(http.MethodDelete, "/api/tasks/"+taskID, "")))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})
}

func TestComments(t *testing.T) {
	caller := newStubCaller()
	h := NewTaskHandler(caller, testLogger())

	t.Run("create", func(t *testing.T) {
		caller.reply(contracts.PatternCreateComment, contracts.Comment{ID: "c1", TaskID: taskID, AuthorID: alice.UserID, Content: "hi"})

		rr := serveTask(h, "POST /api/tasks/{id}/comments", h.CreateComment,
			asAlice(jsonRequest(http.MethodPost, "/api/tasks/"+taskID+"/comments", `{"content":"hi"}`)))
		require.Equal(t, http.StatusCreated, rr.Code)

		var sent contracts.CreateCommentRequest
		caller.payload(t, contracts.PatternCreateComment, &sent)
		assert.Equal(t, contracts.CreateCommentRequest{Content: "hi", TaskID: taskID, AuthorID: alice.UserID}, sent)
	})

	t.Run("create rejects empty content", func(t *testing.T) {
		rr := serveTask(h, "POST /api/tasks/{id}/comments", h.CreateComment,
			asAlice(jsonRequest(http.MethodPost, "/api/tasks/"+taskID+"/comments", `{"content":""}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		caller.reply(contracts.PatternListComments, contracts.NewPage([]contracts.Comment{}, 1, 10, 0))

		rr := serveTask(h, "GET /api/tasks/{id}/comments", h.ListComments,
			asAlice(jsonRequest(http.MethodGet, "/api/tasks/"+taskID+"/comments", "")))
		require.Equal(t, http.StatusOK, rr.Code)

		var sent contracts.ListCommentsRequest
		caller.payload(t, contracts.PatternListComments, &sent)
		assert.Equal(t, taskID, sent.TaskID)
		assert.Equal(t, contracts.DefaultPageSize, sent.Limit)
	})
}
