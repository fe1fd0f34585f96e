package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/metrics"
	"github.com/JoaoG250/micro-do/common/tokens"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
)

const maxInboundBytes = 4096

// Rejection reasons recorded in metrics. Clients always see the same
// generic message.
const (
	reasonUnauthorized = "unauthorized"
	reasonCapacity     = "capacity"
	reasonJoinTimeout  = "join_timeout"
)

// Exception is the payload of an "exception" frame.
type Exception struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var (
	unauthorizedFrame = mustFrame(contracts.RealtimeException, Exception{Status: "error", Message: "Unauthorized"})
	forbiddenFrame    = mustFrame(contracts.RealtimeException, Exception{Status: "error", Message: "Forbidden"})
)

func mustFrame(event string, data any) []byte {
	b, err := EncodeFrame(event, data)
	if err != nil {
		panic(err)
	}
	return b
}

// Config tunes connection handling.
type Config struct {
	// DeferJoin makes authenticated connections wait for a "join" frame
	// before they receive pushes.
	DeferJoin    bool
	JoinTimeout  time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int

	// AllowedOrigins lists accepted Origin values. "*" accepts any.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
	return c
}

// Gateway upgrades HTTP requests to websockets, authenticates them with an
// access token and places them in their user's group.
type Gateway struct {
	registry *Registry
	verifier auth.Verifier
	cfg      Config
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

func NewGateway(registry *Registry, verifier auth.Verifier, cfg Config, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.withDefaults()
	g := &Gateway{
		registry: registry,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// checkOrigin accepts same-host requests when no origins are configured.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(g.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	return slices.Contains(g.cfg.AllowedOrigins, "*") || slices.Contains(g.cfg.AllowedOrigins, origin)
}

// HandshakeToken returns the bearer token from the Authorization header or,
// when the header is absent, from the token query parameter.
func HandshakeToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return auth.BearerToken(h)
	}
	return r.URL.Query().Get("token")
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WarnContext(r.Context(), "websocket upgrade failed", logging.Error(err))
		return
	}

	connID := uuid.NewString()
	logger := g.logger.With(logging.ConnID(connID))

	claims, err := g.authenticate(r)
	if err != nil {
		logger.InfoContext(r.Context(), "realtime handshake rejected", logging.Error(err))
		g.rejectHandshake(ws, reasonUnauthorized)
		return
	}

	id := claims.Identity()
	c := newConn(connID, id.UserID, ws, g.cfg.SendBuffer)
	logger = logger.With(logging.UserID(id.UserID))

	if !g.cfg.DeferJoin {
		if err := g.join(c); err != nil {
			logger.InfoContext(r.Context(), "realtime connection refused", logging.Error(err))
			g.rejectHandshake(ws, reasonCapacity)
			return
		}
		logger.DebugContext(r.Context(), "realtime connection joined")
	} else {
		timer := time.AfterFunc(g.cfg.JoinTimeout, func() {
			if !c.isJoined() {
				metrics.RealtimeRejections.WithLabelValues(reasonJoinTimeout).Inc()
				c.disconnect(unauthorizedFrame)
			}
		})
		defer timer.Stop()
	}

	go c.writePump(g.cfg.PingInterval, g.cfg.WriteTimeout)
	defer func() {
		g.registry.Leave(c)
		c.shutdown()
		logger.DebugContext(r.Context(), "realtime connection closed")
	}()

	g.readPump(c, logger)
}

func (g *Gateway) authenticate(r *http.Request) (*tokens.Claims, error) {
	token := HandshakeToken(r)
	if token == "" {
		return nil, errors.New("missing token")
	}
	return g.verifier.Verify(token, tokens.KindAccess)
}

func (g *Gateway) join(c *Conn) error {
	if err := g.registry.Join(c); err != nil {
		return err
	}
	c.markJoined()
	return nil
}

// rejectHandshake writes the exception frame directly. It is only used
// before writePump owns the socket.
func (g *Gateway) rejectHandshake(ws *websocket.Conn, reason string) {
	metrics.RealtimeRejections.WithLabelValues(reason).Inc()
	deadline := time.Now().Add(g.cfg.WriteTimeout)
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteMessage(websocket.TextMessage, unauthorizedFrame)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""), deadline)
	ws.Close()
}

// readBounded returns the next message, keeping at most maxInboundBytes+1
// bytes of it. The remainder is discarded so oversized frames do not close
// the connection.
func readBounded(ws *websocket.Conn) ([]byte, error) {
	_, r, err := ws.NextReader()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInboundBytes+1))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return data, nil
}

// readPump consumes inbound frames until the socket fails. Only "join" is
// accepted; anything else is answered with a forbidden notice.
func (g *Gateway) readPump(c *Conn, logger *logging.Logger) {
	pongWait := g.cfg.PingInterval * 10 / 9
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		data, err := readBounded(c.ws)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("realtime read failed", logging.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if len(data) > maxInboundBytes || json.Unmarshal(data, &frame) != nil || frame.Event != contracts.RealtimeJoin {
			c.enqueue(forbiddenFrame)
			continue
		}

		if c.isJoined() {
			continue
		}
		if err := g.join(c); err != nil {
			logger.Info("realtime join refused", logging.Error(err))
			metrics.RealtimeRejections.WithLabelValues(reasonCapacity).Inc()
			c.disconnect(unauthorizedFrame)
			continue
		}
		logger.Debug("realtime connection joined")
	}
}
