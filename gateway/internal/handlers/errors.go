package handlers

import (
	"errors"
	"net/http"

	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

// statusForCode maps remote failure codes whose message is safe to show.
var statusForCode = map[rpc.Code]int{
	rpc.CodeNotFound:        http.StatusNotFound,
	rpc.CodeInvalidArgument: http.StatusBadRequest,
	rpc.CodeAlreadyExists:   http.StatusConflict,
	rpc.CodeUnauthenticated: http.StatusUnauthorized,
}

// writeRPCError translates a failed call into an HTTP error. Domain
// failures keep their message; anything else becomes a generic 500.
func writeRPCError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	if rpc.IsTimeout(err) {
		logger.WarnContext(r.Context(), "backend call timed out", logging.Error(err))
		httputil.WriteError(w, http.StatusGatewayTimeout, "Gateway Timeout")
		return
	}

	if status, ok := statusForCode[rpc.CodeOf(err)]; ok {
		httputil.WriteError(w, status, remoteMessage(err))
		return
	}

	logger.ErrorContext(r.Context(), "backend call failed", logging.Error(err))
	httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func remoteMessage(err error) string {
	var remote *rpc.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	var domain *rpc.Error
	if errors.As(err, &domain) {
		return domain.Message
	}
	return err.Error()
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httputil.WriteError(w, http.StatusBadRequest, err.Error())
}
