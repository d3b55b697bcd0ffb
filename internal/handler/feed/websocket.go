package feed

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	feedmodel "github.com/echofeed/backend/internal/model/feed"
	"github.com/echofeed/backend/internal/service/relay"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 5 * time.Second
	pingInterval  = 54 * time.Second

	// Image posts embed data URIs, so frames can be large.
	maxFrameBytes = 8 << 20
)

// Handler upgrades feed clients to websocket sessions on the relay.
type Handler struct {
	relay    *relay.Relay
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(r *relay.Relay) *Handler {
	return &Handler{
		relay: r,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes registers the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// handleWebSocket runs one session: join the relay, mirror its outbound
// queue onto the socket, and feed decoded mutations back into it. The
// session ends when either side closes the connection.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := relay.NewSession()
	if err := h.relay.Join(ctx, session); err != nil {
		log.Printf("[websocket] join failed: %v", err)
		return
	}
	defer h.relay.Leave(session)

	log.Printf("[websocket] new connection session=%s", session.ID)

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	go h.writeLoop(ctx, cancel, conn, session)
	go h.pingLoop(ctx, conn)

	h.readLoop(ctx, conn, session)
}

// writeLoop is the sole writer of data frames for this connection.
func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session *relay.Session) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-session.Out():
			if !ok {
				// Relay released the session (shutdown).
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeDeadline))
				_ = conn.Close()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, session *relay.Session) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error session=%s: %v", session.ID, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		mut, err := feedmodel.DecodeMutation(raw)
		if err != nil {
			// Malformed frames are dropped, never surfaced to the client.
			log.Printf("[websocket] dropping frame session=%s: %v", session.ID, err)
			continue
		}

		if err := h.relay.Submit(ctx, session, mut); err != nil {
			return
		}
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
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
