package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMalformedEnvelope is returned when an envelope cannot be decoded or lacks required fields.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Request is published by a Client to the target service queue.
type Request struct {
	Pattern       Pattern         `json:"pattern"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlationId"`
	ReplyTo       string          `json:"replyTo"`
}

// Reply is published by a Server to the request's ReplyTo queue.
// A reply with neither Result nor Error is a successful null result.
type Reply struct {
	CorrelationID string          `json:"correlationId"`
	Result        json.RawMessage `json:"result"`
	Error         *ErrorBody      `json:"error"`
}

// ErrorBody is the error carried by a Reply.
type ErrorBody struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Event is broadcast on a topic. It has no correlation id and expects no reply.
type Event struct {
	Topic   Topic           `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// NewRequest builds a Request with a fresh correlation id.
func NewRequest(pattern Pattern, payload any, replyTo string) (*Request, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", pattern, err)
	}
	return &Request{
		Pattern:       pattern,
		Payload:       raw,
		CorrelationID: uuid.NewString(),
		ReplyTo:       replyTo,
	}, nil
}

// NewResultReply builds a successful Reply.
func NewResultReply(correlationID string, result any) (*Reply, error) {
	raw, err := marshalPayload(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Reply{CorrelationID: correlationID, Result: raw}, nil
}

// NewErrorReply builds a failed Reply.
func NewErrorReply(correlationID string, code Code, message string) *Reply {
	return &Reply{
		CorrelationID: correlationID,
		Error:         &ErrorBody{Message: message, Code: code},
	}
}

// NewEvent builds an Event.
func NewEvent(topic Topic, payload any) (*Event, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return &Event{Topic: topic, Payload: raw}, nil
}

func marshalPayload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(v)
	}
}

// EncodeRequest serializes a Request.
func EncodeRequest(r *Request) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequest parses a Request. Correlation id and reply queue are required.
func DecodeRequest(data []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if r.CorrelationID == "" || r.ReplyTo == "" {
		return nil, fmt.Errorf("%w: request without correlationId or replyTo", ErrMalformedEnvelope)
	}
	return &r, nil
}

// EncodeReply serializes a Reply.
func EncodeReply(r *Reply) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeReply parses a Reply. A correlation id is required.
func DecodeReply(data []byte) (*Reply, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if r.CorrelationID == "" {
		return nil, fmt.Errorf("%w: reply without correlationId", ErrMalformedEnvelope)
	}
	return &r, nil
}

// EncodeEvent serializes an Event.
func EncodeEvent(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if e.Topic == "" {
		return nil, fmt.Errorf("%w: event without topic", ErrMalformedEnvelope)
	}
	return &e, nil
}

// decodeResult unmarshals a reply result into out. A null or absent result
// leaves out untouched.
func decodeResult(raw json.RawMessage, out any) error {
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
