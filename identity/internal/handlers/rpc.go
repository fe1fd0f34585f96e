// Package handlers exposes the identity service on its RPC queue.
package handlers

import (
	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/identity/internal/service"
)

// Register binds every identity pattern to svc.
func Register(s *rpc.Server, svc *service.IdentityService) {
	s.Handle(contracts.PatternValidateUser, rpc.Unary(svc.ValidateUser))
	s.Handle(contracts.PatternCreateUser, rpc.Unary(svc.CreateUser))
	s.Handle(contracts.PatternSearchUsers, rpc.Unary(svc.SearchUsers))
}
