// Package ws terminates client WebSocket connections and feeds frames
// into the relay core.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/protocol"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

type Handler struct {
	relaySvc *relay.Service
	verifier identity.Verifier
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func New(relaySvc *relay.Service, verifier identity.Verifier, logger zerolog.Logger) *Handler {
	return &Handler{
		relaySvc: relaySvc,
		verifier: verifier,
		logger:   logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// handleWebSocket owns one connection for its lifetime. Frames are
// processed synchronously in receipt order; other connections run in
// their own handler goroutines.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	transport := newTransport(conn)
	relayConn := h.relaySvc.NewConn(transport)
	defer relayConn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("read error")
			} else {
				h.logger.Info().Str("remote", r.RemoteAddr).Msg("client disconnected")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		env, err := protocol.ParseEnvelope(raw)
		if err != nil {
			// Malformed frames are logged and dropped, not fatal.
			h.logger.Warn().Err(err).Msg("malformed frame dropped")
			continue
		}

		ident, err := h.verifier.Verify(ctx, env.Token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				h.logger.Warn().Err(err).Msg("authentication failed; closing connection")
				_ = transport.Send(protocol.ErrorEnvelope("authentication failed"))
			} else {
				h.logger.Error().Err(err).Msg("verifier error; closing connection")
				_ = transport.Send(protocol.ErrorEnvelope("authentication unavailable"))
			}
			return
		}

		relayConn.HandleFrame(ctx, ident, env.Message)
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Control frames may be written concurrently with the
			// data writer.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// transport adapts a gorilla connection to the relay's Transport. The
// mutex serializes writers: the connection's own goroutine and
// registry deliveries from other goroutines.
type transport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newTransport(conn *websocket.Conn) *transport {
	return &transport{conn: conn}
}

func (t *transport) Send(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}
