// Package handlers exposes the tasks service on its RPC queue.
package handlers

import (
	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/tasks/internal/service"
)

func Register(s *rpc.Server, svc *service.TaskService) {
	s.Handle(contracts.PatternCreateTask, rpc.Unary(svc.CreateTask))
	s.Handle(contracts.PatternListTasks, rpc.Unary(svc.ListTasks))
	s.Handle(contracts.PatternGetTask, rpc.Unary(svc.GetTask))
	s.Handle(contracts.PatternUpdateTask, rpc.Unary(svc.UpdateTask))
	s.Handle(contracts.PatternDeleteTask, rpc.Unary(svc.DeleteTask))
	s.Handle(contracts.PatternCreateComment, rpc.Unary(svc.CreateComment))
	s.Handle(contracts.PatternListComments, rpc.Unary(svc.ListComments))
}
