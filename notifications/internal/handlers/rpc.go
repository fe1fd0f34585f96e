// Package handlers exposes the notifications service on its RPC queue and
// subscribes it to task events.
package handlers

import (
	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/notifications/internal/service"
)

func Register(s *rpc.Server, svc *service.NotificationService) {
	s.Handle(contracts.PatternListNotifications, rpc.Unary(svc.ListNotifications))
	s.Handle(contracts.PatternMarkRead, rpc.Unary(svc.MarkRead))

	s.HandleEvent(contracts.TopicTaskCreated, rpc.On(svc.OnTaskCreated))
	s.HandleEvent(contracts.TopicTaskUpdated, rpc.On(svc.OnTaskUpdated))
	s.HandleEvent(contracts.TopicCommentCreated, rpc.On(svc.OnCommentCreated))
}
