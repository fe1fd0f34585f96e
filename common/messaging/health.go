package messaging

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus is the broker section of a /healthz response.
type HealthStatus struct {
	Connected bool    `json:"connected"`
	RoundTrip float64 `json:"roundTripMs"`
	Error     string  `json:"error,omitempty"`
}

func (s HealthStatus) Healthy() bool {
	return s.Connected && s.Error == ""
}

// CheckClientHealth reports whether client is connected and can still hand a
// probe to the broker. The probe goes to HealthSubject, which nobody consumes.
func CheckClientHealth(ctx context.Context, client Client) HealthStatus {
	if client == nil {
		return HealthStatus{Error: "no broker configured"}
	}
	if !client.IsConnected() {
		return HealthStatus{Error: "not connected to message broker"}
	}

	start := time.Now()
	err := client.Broadcast(ctx, HealthSubject, []byte("ping"))
	status := HealthStatus{
		Connected: true,
		RoundTrip: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		status.Error = fmt.Sprintf("probe failed: %v", err)
	}
	return status
}
