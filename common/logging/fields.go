package logging

import "log/slog"

// Attribute keys shared by every service so log queries work across them.
const (
	FieldService       = "service"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"
	FieldIP            = "ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldError         = "error"
	FieldPattern       = "pattern"
	FieldTopic         = "topic"
	FieldQueue         = "queue"
	FieldConnID        = "conn_id"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// CorrelationID returns a slog attribute for an RPC correlation id.
func CorrelationID(id string) slog.Attr {
	return slog.String(FieldCorrelationID, id)
}

func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Error returns a slog attribute for an error. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Pattern, Topic and Queue name broker routing keys.
func Pattern(p string) slog.Attr {
	return slog.String(FieldPattern, p)
}

func Topic(t string) slog.Attr {
	return slog.String(FieldTopic, t)
}

func Queue(q string) slog.Attr {
	return slog.String(FieldQueue, q)
}

// ConnID returns a slog attribute for a realtime connection id.
func ConnID(id string) slog.Attr {
	return slog.String(FieldConnID, id)
}
