package rpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("tasks.get_task", map[string]string{"id": "t1"}, "gw.replies.1")
	require.NoError(t, err)

	assert.Equal(t, Pattern("tasks.get_task"), req.Pattern)
	assert.NotEmpty(t, req.CorrelationID)
	assert.Equal(t, "gw.replies.1", req.ReplyTo)
	assert.JSONEq(t, `{"id":"t1"}`, string(req.Payload))

	other, err := NewRequest("tasks.get_task", nil, "gw.replies.1")
	require.NoError(t, err)
	assert.NotEqual(t, req.CorrelationID, other.CorrelationID)
	assert.Equal(t, "null", string(other.Payload))
}

func TestRequestWireFormat(t *testing.T) {
	req := &Request{
		Pattern:       "auth.validate_user",
		Payload:       json.RawMessage(`{"email":"a@b.c"}`),
		CorrelationID: "c-1",
		ReplyTo:       "r-1",
	}
	data, err := EncodeRequest(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"auth.validate_user","payload":{"email":"a@b.c"},"correlationId":"c-1","replyTo":"r-1"}`, string(data))

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDecodeRequestRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing correlation id", data: `{"pattern":"p","replyTo":"r"}`},
		{name: "missing reply queue", data: `{"pattern":"p","correlationId":"c"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.data))
			assert.True(t, errors.Is(err, ErrMalformedEnvelope))
		})
	}
}

func TestReplyWireFormat(t *testing.T) {
	data, err := EncodeReply(NewErrorReply("c-1", CodeNotFound, "Task with ID t1 not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"correlationId":"c-1","result":null,"error":{"message":"Task with ID t1 not found","code":"not-found"}}`, string(data))

	reply, err := DecodeReply(data)
	require.NoError(t, err)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeNotFound, reply.Error.Code)

	_, err = DecodeReply([]byte(`{"result":1}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestEventWireFormat(t *testing.T) {
	event, err := NewEvent("task.created", map[string]any{"id": "t1"})
	require.NoError(t, err)

	data, err := EncodeEvent(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"task.created","payload":{"id":"t1"}}`, string(data))

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, Topic("task.created"), decoded.Topic)

	_, err = DecodeEvent([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeResult(t *testing.T) {
	var out struct{ ID string }
	require.NoError(t, decodeResult(json.RawMessage(`{"ID":"x"}`), &out))
	assert.Equal(t, "x", out.ID)

	out.ID = "kept"
	require.NoError(t, decodeResult(json.RawMessage(`null`), &out))
	require.NoError(t, decodeResult(nil, &out))
	assert.Equal(t, "kept", out.ID)

	require.NoError(t, decodeResult(json.RawMessage(`{"ID":"x"}`), nil))
}

func TestCatalogueValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Catalogue
		wantErr bool
	}{
		{name: "valid", cat: Catalogue{Queue: "q", Patterns: []Pattern{"a", "b"}}},
		{name: "no patterns", cat: Catalogue{Queue: "q"}},
		{name: "no queue", cat: Catalogue{Patterns: []Pattern{"a"}}, wantErr: true},
		{name: "empty pattern", cat: Catalogue{Queue: "q", Patterns: []Pattern{""}}, wantErr: true},
		{name: "duplicate", cat: Catalogue{Queue: "q", Patterns: []Pattern{"a", "a"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
