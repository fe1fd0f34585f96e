package models

import (
	"maps"
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
)

// Notification as stored by the notifications service.
type Notification struct {
	ID        string
	UserID    string
	Type      contracts.NotificationType
	Message   string
	Metadata  map[string]string
	IsRead    bool
	CreatedAt time.Time
}

func (n *Notification) Contract() contracts.Notification {
	return contracts.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Message:   n.Message,
		Metadata:  maps.Clone(n.Metadata),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
