package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/messaging"
)

func collect(ch chan<- string) messaging.MessageHandler {
	return func(_ context.Context, msg *messaging.Message) error {
		ch <- string(msg.Data)
		return nil
	}
}

func TestQueue_CompetingConsumers(t *testing.T) {
	c := NewClient(nil)
	defer c.Close()

	var a, b atomic.Int32
	var wg sync.WaitGroup
	wg.Add(10)
	counter := func(n *atomic.Int32) messaging.MessageHandler {
		return func(context.Context, *messaging.Message) error {
			n.Add(1)
			wg.Done()
			return nil
		}
	}

	_, err := c.Consume(messaging.QueueTasks, counter(&a))
	require.NoError(t, err)
	_, err = c.Consume(messaging.QueueTasks, counter(&b))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Publish(context.Background(), messaging.QueueTasks, []byte("x")))
	}

	waitOrFail(t, &wg)
	assert.Equal(t, int32(10), a.Load()+b.Load())
	assert.Positive(t, a.Load())
	assert.Positive(t, b.Load())
}

func TestTopic_OneCopyPerGroup(t *testing.T) {
	c := NewClient(nil)
	defer c.Close()

	notifications := make(chan string, 4)
	gateway := make(chan string, 4)

	_, err := c.Subscribe("task.created", messaging.QueueNotifications, collect(notifications))
	require.NoError(t, err)
	_, err = c.Subscribe("task.created", messaging.QueueNotifications, collect(notifications))
	require.NoError(t, err)
	_, err = c.Subscribe("task.created", messaging.QueueGateway, collect(gateway))
	require.NoError(t, err)

	require.NoError(t, c.Broadcast(context.Background(), "task.created", []byte("t1")))

	assert.Equal(t, "t1", receive(t, notifications))
	assert.Equal(t, "t1", receive(t, gateway))
	assertNothing(t, notifications)
}

func TestPublishMsg_Metadata(t *testing.T) {
	c := NewClient(nil)
	defer c.Close()

	got := make(chan *messaging.Message, 1)
	_, err := c.Consume("q", func(_ context.Context, m *messaging.Message) error {
		got <- m
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, c.PublishMsg(context.Background(), &messaging.Message{
		Subject:  "q",
		Data:     []byte("body"),
		Metadata: map[string]string{"k": "v"},
	}))

	select {
	case m := <-got:
		assert.Equal(t, "q", m.Subject)
		assert.Equal(t, "v", m.Metadata["k"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestUnsubscribe(t *testing.T) {
	c := NewClient(nil)
	defer c.Close()

	ch := make(chan string, 1)
	sub, err := c.Consume("q", collect(ch))
	require.NoError(t, err)
	assert.True(t, sub.IsValid())
	assert.Equal(t, "q", sub.Subject())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())
	require.NoError(t, sub.Unsubscribe())

	require.NoError(t, c.Publish(context.Background(), "q", []byte("lost")))
	assertNothing(t, ch)
}

func TestClosed(t *testing.T) {
	c := NewClient(nil)
	require.NoError(t, c.Close())

	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish(context.Background(), "q", nil), messaging.ErrClosed)
	_, err := c.Consume("q", collect(make(chan string)))
	assert.ErrorIs(t, err, messaging.ErrClosed)
}

func TestPublish_CancelledContext(t *testing.T) {
	c := NewClient(nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Publish(ctx, "q", nil), context.Canceled)
}

func TestHealth(t *testing.T) {
	c := NewClient(nil)
	status := messaging.CheckClientHealth(context.Background(), c)
	assert.True(t, status.Healthy())

	require.NoError(t, c.Close())
	status = messaging.CheckClientHealth(context.Background(), c)
	assert.False(t, status.Healthy())
	assert.NotEmpty(t, status.Error)
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func assertNothing(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected message %q", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}
}
