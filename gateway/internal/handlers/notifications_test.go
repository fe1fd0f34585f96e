package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

func TestListNotifications(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantUnread bool
	}{
		{name: "all", query: ""},
		{name: "unread only", query: "?unreadOnly=true", wantUnread: true},
		{name: "garbage flag", query: "?unreadOnly=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := newStubCaller()
			caller.reply(contracts.PatternListNotifications, contracts.NewPage([]contracts.Notification{}, 1, 10, 0))
			h := NewNotificationHandler(caller, testLogger())

			rr := httptest.NewRecorder()
			h.List(rr, asAlice(jsonRequest(http.MethodGet, "/api/notifications"+tt.query, "")))
			require.Equal(t, http.StatusOK, rr.Code)

			var sent contracts.ListNotificationsRequest
			caller.payload(t, contracts.PatternListNotifications, &sent)
			assert.Equal(t, alice.UserID, sent.UserID)
			assert.Equal(t, tt.wantUnread, sent.UnreadOnly)
			assert.Equal(t, messaging.QueueNotifications, caller.queues[contracts.PatternListNotifications])
		})
	}
}

func TestMarkNotificationRead(t *testing.T) {
	caller := newStubCaller()
	h := NewNotificationHandler(caller, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkRead)

	caller.reply(contracts.PatternMarkRead, contracts.Notification{ID: "n1", UserID: alice.UserID, IsRead: true})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, asAlice(jsonRequest(http.MethodPost, "/api/notifications/n1/read", "")))
	require.Equal(t, http.StatusOK, rr.Code)

	var sent contracts.MarkReadRequest
	caller.payload(t, contracts.PatternMarkRead, &sent)
	assert.Equal(t, contracts.MarkReadRequest{ID: "n1", UserID: alice.UserID}, sent)

	caller.fail(contracts.PatternMarkRead, &rpc.RemoteError{Code: rpc.CodeNotFound, Message: "Notification with ID n2 not found"})
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, asAlice(jsonRequest(http.MethodPost, "/api/notifications/n2/read", "")))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
