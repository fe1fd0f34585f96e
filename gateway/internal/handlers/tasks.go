package handlers

import (
	"net/http"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
)

// TaskHandler proxies task and comment operations to the tasks service.
// Authorship is always taken from the access token, never from the body.
type TaskHandler struct {
	tasks  rpc.Caller
	logger *logging.Logger
}

func NewTaskHandler(tasks rpc.Caller, logger *logging.Logger) *TaskHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TaskHandler{tasks: tasks, logger: logger}
}

// CreateCommentBody is the body of POST /api/tasks/{id}/comments.
type CreateCommentBody struct {
	Content string `json:"content"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateTaskRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	req.AuthorID = auth.GetUserID(r.Context())
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	task, err := rpc.Call[*contracts.Task](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternCreateTask, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := contracts.ListTasksRequest{
		PageRequest: pageRequest(r),
		TaskFilter: contracts.TaskFilter{
			Status:     contracts.Status(q.Get("status")),
			Priority:   contracts.Priority(q.Get("priority")),
			Search:     q.Get("search"),
			AssigneeID: q.Get("assigneeId"),
		},
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	page, err := rpc.Call[contracts.Page[contracts.Task]](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternListTasks, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := contracts.TaskRef{ID: r.PathValue("id")}
	task, err := rpc.Call[*contracts.Task](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternGetTask, ref)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch contracts.TaskPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	req := contracts.UpdateTaskRequest{ID: r.PathValue("id"), Patch: patch}
	task, err := rpc.Call[*contracts.Task](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternUpdateTask, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref := contracts.TaskRef{ID: r.PathValue("id")}
	if _, err := rpc.Call[bool](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternDeleteTask, ref); err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TaskHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var body CreateCommentBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	req := contracts.CreateCommentRequest{
		Content:  body.Content,
		TaskID:   r.PathValue("id"),
		AuthorID: auth.GetUserID(r.Context()),
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	comment, err := rpc.Call[*contracts.Comment](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternCreateComment, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	req := contracts.ListCommentsRequest{
		PageRequest: pageRequest(r),
		TaskID:      r.PathValue("id"),
	}

	page, err := rpc.Call[contracts.Page[contracts.Comment]](r.Context(), h.tasks, messaging.QueueTasks, contracts.PatternListComments, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}
