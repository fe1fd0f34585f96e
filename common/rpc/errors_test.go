package rpc

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "domain", err: NotFound("missing"), want: CodeNotFound},
		{name: "wrapped domain", err: fmt.Errorf("ctx: %w", AlreadyExists("dup")), want: CodeAlreadyExists},
		{name: "remote", err: &RemoteError{Code: CodeUnauthenticated}, want: CodeUnauthenticated},
		{name: "timeout", err: &TimeoutError{Pattern: "p", After: time.Second}, want: ""},
		{name: "plain", err: errors.New("boom"), want: CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestRemoteErrorMatchesInternal(t *testing.T) {
	assert.ErrorIs(t, &RemoteError{Code: CodeInternal}, ErrInternal)
	assert.NotErrorIs(t, &RemoteError{Code: CodeNotFound}, ErrInternal)
	assert.True(t, IsNotFound(&RemoteError{Code: CodeNotFound}))
	assert.True(t, IsTimeout(fmt.Errorf("wrap: %w", &TimeoutError{})))
}

func TestToErrorBody(t *testing.T) {
	body, ok := toErrorBody(InvalidArgument("title is required"))
	assert.True(t, ok)
	assert.Equal(t, &ErrorBody{Message: "title is required", Code: CodeInvalidArgument}, body)

	body, ok = toErrorBody(errors.New("pq: connection refused"))
	assert.False(t, ok)
	assert.Equal(t, &ErrorBody{Message: "internal error", Code: CodeInternal}, body)
}
