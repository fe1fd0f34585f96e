package handlers

import (
	"net/http"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/common/tokens"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
)

// AuthHandler serves registration, login and token refresh. Credentials are
// checked by the identity service; tokens are minted here.
type AuthHandler struct {
	identity     rpc.Caller
	tokens       *tokens.Service
	cookieSecure bool
	logger       *logging.Logger
}

func NewAuthHandler(identity rpc.Caller, tokenService *tokens.Service, cookieSecure bool, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{
		identity:     identity,
		tokens:       tokenService,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// ProfileResponse is the authenticated caller as encoded in the token.
type ProfileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	user, err := rpc.Call[*contracts.User](r.Context(), h.identity, messaging.QueueAuth, contracts.PatternCreateUser, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	creds := contracts.ValidateUserRequest{Email: req.Email, Password: req.Password}
	if err := creds.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	user, err := rpc.Call[*contracts.User](r.Context(), h.identity, messaging.QueueAuth, contracts.PatternValidateUser, creds)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	id := tokens.Identity{UserID: user.ID, Email: user.Email, Username: user.Username}
	access, err := h.tokens.IssueAccessToken(id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	auth.SetRefreshCookie(w, refresh, h.tokens.TTL(tokens.KindRefresh), h.cookieSecure)
	h.logger.InfoContext(r.Context(), "user logged in", logging.UserID(user.ID))
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: access})
}

// Refresh issues a new access token from the refresh cookie. The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := auth.RefreshToken(r)
	if refresh == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	access, _, err := h.tokens.Rotate(refresh)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: access})
}

// Logout clears the refresh cookie. Issued access tokens stay valid until
// they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearRefreshCookie(w, h.cookieSecure)
	httputil.WriteNoContent(w)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.GetIdentity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProfileResponse{ID: id.UserID, Email: id.Email, Username: id.Username})
}

// SearchUsers backs the assignee picker.
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := contracts.SearchUsersRequest{
		Search: q.Get("search"),
		Limit:  httputil.ParseIntParam(q.Get("limit"), 0),
	}

	users, err := rpc.Call[[]contracts.UserSummary](r.Context(), h.identity, messaging.QueueAuth, contracts.PatternSearchUsers, req)
	if err != nil {
		writeRPCError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []contracts.UserSummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "failed to issue token", logging.Error(err))
	httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
}
