package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/messaging/memory"
)

func TestConnectBroker(t *testing.T) {
	client, err := ConnectBroker(config.BrokerConfig{Driver: config.BrokerMemory}, "tasks", nil)
	require.NoError(t, err)
	defer client.Close()
	assert.True(t, client.IsConnected())

	_, err = ConnectBroker(config.BrokerConfig{Driver: "kafka"}, "tasks", nil)
	assert.Error(t, err)
}

func TestOpsRouter(t *testing.T) {
	broker := memory.NewClient(nil)
	router := OpsRouter(broker)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "microdo_rpc_client_pending_calls")

	require.NoError(t, broker.Close())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := NewHTTPServer(config.ServerConfig{Port: 0}, http.NotFoundHandler())
	srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
