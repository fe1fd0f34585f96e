package handlers

import (
	"net/http"
	"strconv"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
)

// NotificationHandler exposes the caller's own notifications.
type NotificationHandler struct {
	notifications rpc.Caller
	logger        *logging.Logger
}

func NewNotificationHandler(notifications rpc.Caller, logger *logging.Logger) *NotificationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))
	req := contracts.ListNotificationsRequest{
		PageRequest: pageRequest(r),
		UserID:      auth.GetUserID(r.Context()),
		UnreadOnly:  unreadOnly,
	}

	page, err := rpc.Call[contracts.Page[contracts.Notification]](r.Context(), h.notifications,
		messaging.QueueNotifications, contracts.PatternListNotifications, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	req := contracts.MarkReadRequest{
		ID:     r.PathValue("id"),
		UserID: auth.GetUserID(r.Context()),
	}

	n, err := rpc.Call[*contracts.Notification](r.Context(), h.notifications,
		messaging.QueueNotifications, contracts.PatternMarkRead, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}
