package realtime

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/tokens"
)

var alice = tokens.Identity{UserID: "0192f0c4-alice", Email: "alice@example.com", Username: "alice"}

func tokenConfig() tokens.Config {
	return tokens.Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
}

type fixture struct {
	registry *Registry
	tokens   *tokens.Service
	url      string
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	svc, err := tokens.New(tokenConfig())
	require.NoError(t, err)

	registry := NewRegistry(3)
	logger := logging.NewWithWriter(io.Discard, logging.ParseLevel("error"), "text")
	srv := httptest.NewServer(NewGateway(registry, svc, cfg, logger))
	t.Cleanup(func() {
		registry.Close()
		srv.Close()
	})

	return &fixture{
		registry: registry,
		tokens:   svc,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (f *fixture) accessToken(t *testing.T, id tokens.Identity) string {
	t.Helper()
	tok, err := f.tokens.IssueAccessToken(id)
	require.NoError(t, err)
	return tok
}

func (f *fixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func (f *fixture) waitForCount(t *testing.T, userID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.registry.Count(userID) == n },
		2*time.Second, 10*time.Millisecond, "expected %d connections for %s", n, userID)
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func requireRejected(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	frame := readFrame(t, ws)
	assert.Equal(t, contracts.RealtimeException, frame.Event)
	var exc Exception
	require.NoError(t, json.Unmarshal(frame.Data, &exc))
	assert.Equal(t, Exception{Status: "error", Message: "Unauthorized"}, exc)

	_, _, err := ws.ReadMessage()
	require.Error(t, err)
}

func TestHandshakeJoinsGroup(t *testing.T) {
	f := newFixture(t, Config{})
	f.dial(t, f.accessToken(t, alice))
	f.waitForCount(t, alice.UserID, 1)
}

func TestHandshakeTokenFromQuery(t *testing.T) {
	f := newFixture(t, Config{})
	ws, _, err := websocket.DefaultDialer.Dial(f.url+"?token="+f.accessToken(t, alice), nil)
	require.NoError(t, err)
	defer ws.Close()

	f.waitForCount(t, alice.UserID, 1)
}

func TestHandshakeTokenHeaderWinsOverQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", HandshakeToken(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", HandshakeToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, HandshakeToken(r))
}

func TestHandshakeRejections(t *testing.T) {
	past, err := tokens.New(tokenConfig(), tokens.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	require.NoError(t, err)
	expired, err := past.IssueAccessToken(alice)
	require.NoError(t, err)

	f := newFixture(t, Config{})
	refresh, err := f.tokens.IssueRefreshToken(alice)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired},
		{name: "refresh token", token: refresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := f.dial(t, tt.token)
			requireRejected(t, ws)
			assert.Zero(t, f.registry.Count(alice.UserID))
		})
	}
}

func TestFourthConnectionRejected(t *testing.T) {
	f := newFixture(t, Config{})
	token := f.accessToken(t, alice)

	for range 3 {
		f.dial(t, token)
	}
	f.waitForCount(t, alice.UserID, 3)

	ws := f.dial(t, token)
	requireRejected(t, ws)
	assert.Equal(t, 3, f.registry.Count(alice.UserID))
}

func TestDisconnectFreesSlot(t *testing.T) {
	f := newFixture(t, Config{})
	token := f.accessToken(t, alice)

	first := f.dial(t, token)
	f.dial(t, token)
	f.waitForCount(t, alice.UserID, 2)

	require.NoError(t, first.Close())
	f.waitForCount(t, alice.UserID, 1)
}

func TestPushReachesOnlyTargetUser(t *testing.T) {
	f := newFixture(t, Config{})
	bob := tokens.Identity{UserID: "0192f0c4-bob", Email: "bob@example.com", Username: "bob"}

	aliceWS := f.dial(t, f.accessToken(t, alice))
	bobWS := f.dial(t, f.accessToken(t, bob))
	f.waitForCount(t, alice.UserID, 1)
	f.waitForCount(t, bob.UserID, 1)

	n, err := f.registry.NotifyUser(alice.UserID, contracts.RealtimeTaskCreated, contracts.Notification{
		ID: "n1", UserID: alice.UserID, Type: contracts.NotificationTaskAssigned,
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	frame := readFrame(t, aliceWS)
	assert.Equal(t, contracts.RealtimeTaskCreated, frame.Event)
	var got contracts.Notification
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	assert.Equal(t, "n1", got.ID)

	require.NoError(t, bobWS.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bobWS.ReadMessage()
	require.Error(t, err)
}

func TestInboundMessagesAreForbidden(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, f.accessToken(t, alice))
	f.waitForCount(t, alice.UserID, 1)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"task:create","data":{}}`)))
	frame := readFrame(t, ws)
	assert.Equal(t, contracts.RealtimeException, frame.Event)
	assert.JSONEq(t, `{"status":"error","message":"Forbidden"}`, string(frame.Data))

	// The connection stays open.
	_, err := f.registry.NotifyUser(alice.UserID, contracts.RealtimeNotification, nil)
	require.NoError(t, err)
	assert.Equal(t, contracts.RealtimeNotification, readFrame(t, ws).Event)
	assert.Equal(t, 1, f.registry.Count(alice.UserID))
}

func TestOversizedInboundMessageIsForbidden(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, f.accessToken(t, alice))
	f.waitForCount(t, alice.UserID, 1)

	big := `{"event":"chat","data":"` + strings.Repeat("x", 5000) + `"}`
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(big)))
	frame := readFrame(t, ws)
	assert.Equal(t, contracts.RealtimeException, frame.Event)
	assert.JSONEq(t, `{"status":"error","message":"Forbidden"}`, string(frame.Data))
	assert.Equal(t, 1, f.registry.Count(alice.UserID))

	// A join padded past the limit is not honoured either.
	bigJoin := `{"event":"join","data":"` + strings.Repeat("x", 5000) + `"}`
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(bigJoin)))
	assert.Equal(t, contracts.RealtimeException, readFrame(t, ws).Event)

	_, err := f.registry.NotifyUser(alice.UserID, contracts.RealtimeNotification, nil)
	require.NoError(t, err)
	assert.Equal(t, contracts.RealtimeNotification, readFrame(t, ws).Event)
	assert.Equal(t, 1, f.registry.Count(alice.UserID))
}

func TestDeferredJoin(t *testing.T) {
	f := newFixture(t, Config{DeferJoin: true, JoinTimeout: 5 * time.Second})
	ws := f.dial(t, f.accessToken(t, alice))

	// Authenticated but not yet a member.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.registry.Count(alice.UserID))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join"}`)))
	f.waitForCount(t, alice.UserID, 1)

	// A second join is a no-op.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join"}`)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.registry.Count(alice.UserID))
}

func TestDeferredJoinTimeout(t *testing.T) {
	f := newFixture(t, Config{DeferJoin: true, JoinTimeout: 50 * time.Millisecond})
	ws := f.dial(t, f.accessToken(t, alice))

	requireRejected(t, ws)
	assert.Zero(t, f.registry.Count(alice.UserID))
}

func TestDeferredJoinAtCapacity(t *testing.T) {
	f := newFixture(t, Config{DeferJoin: true, JoinTimeout: 5 * time.Second})
	token := f.accessToken(t, alice)

	for range 3 {
		ws := f.dial(t, token)
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join"}`)))
	}
	f.waitForCount(t, alice.UserID, 3)

	ws := f.dial(t, token)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join"}`)))
	requireRejected(t, ws)
	assert.Equal(t, 3, f.registry.Count(alice.UserID))
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", origin: "", want: true},
		{name: "same host by default", origin: "http://example.com", want: true},
		{name: "foreign host by default", origin: "http://evil.test", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://evil.test", want: true},
		{name: "listed", allowed: []string{"http://app.test"}, origin: "http://app.test", want: true},
		{name: "unlisted", allowed: []string{"http://app.test"}, origin: "http://other.test", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(NewRegistry(3), nil, Config{AllowedOrigins: tt.allowed}, nil)
			r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, g.checkOrigin(r))
		})
	}
}
