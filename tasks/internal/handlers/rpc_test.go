package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/messaging/memory"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/tasks/internal/repository"
	"github.com/JoaoG250/micro-do/tasks/internal/service"
)

func TestTasksOverBroker(t *testing.T) {
	broker := memory.NewClient(nil)
	t.Cleanup(func() { _ = broker.Close() })

	svc := service.NewTaskService(repository.NewInMemoryRepository(), rpc.NewEventPublisher(broker, nil), nil)
	server := rpc.NewServer(broker, contracts.TaskPatterns, nil)
	Register(server, svc)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	client := rpc.NewClient(broker, rpc.ClientConfig{Service: "test", Timeout: 2 * time.Second}, nil)
	require.NoError(t, client.Start())
	t.Cleanup(func() { _ = client.Close() })

	created := make(chan contracts.TaskEvent, 1)
	_, err := broker.Subscribe(string(contracts.TopicTaskCreated), "observer", func(_ context.Context, msg *messaging.Message) error {
		event, err := rpc.DecodeEvent(msg.Data)
		if err != nil {
			return err
		}
		var payload contracts.TaskEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		created <- payload
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	queue := contracts.TaskPatterns.Queue

	task, err := rpc.Call[*contracts.Task](ctx, client, queue, contracts.PatternCreateTask, contracts.CreateTaskRequest{
		Title:       "Ship it",
		AssigneeIDs: []string{"ann"},
		AuthorID:    "ben",
	})
	require.NoError(t, err)

	select {
	case ev := <-created:
		assert.Equal(t, task.ID, ev.ID)
		assert.Equal(t, []contracts.AssigneeRef{{ID: "ann"}}, ev.Assignees)
	case <-time.After(2 * time.Second):
		t.Fatal("task.created was not published")
	}

	page, err := rpc.Call[contracts.Page[contracts.Task]](ctx, client, queue, contracts.PatternListTasks, contracts.ListTasksRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)

	deleted, err := rpc.Call[bool](ctx, client, queue, contracts.PatternDeleteTask, contracts.TaskRef{ID: task.ID})
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = rpc.Call[*contracts.Task](ctx, client, queue, contracts.PatternGetTask, contracts.TaskRef{ID: task.ID})
	require.Error(t, err)
	assert.True(t, rpc.IsNotFound(err))
	assert.Contains(t, err.Error(), "Task with ID "+task.ID+" not found")
}
