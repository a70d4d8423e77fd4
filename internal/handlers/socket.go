package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/middleware"
	"RIDESHARE_BACK-END/internal/presence"
	"RIDESHARE_BACK-END/internal/utils"
)

// Client to server socket events.
const (
	EventAddUser     = "addUser"
	EventSendMessage = "sendMessage"
	EventError       = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 64 << 10
	sendQueueDepth = 64
)

// SocketFrame is the envelope of every websocket message in both directions.
type SocketFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendMessagePayload is the data of a sendMessage frame. SenderID may be
// omitted; it must match the authenticated user when present.
type SendMessagePayload struct {
	SenderID   string          `json:"senderId,omitempty"`
	ReceiverID string          `json:"receiverId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SocketHandler serves the realtime presence endpoint.
type SocketHandler struct {
	router   *presence.Router
	jwt      *config.JWTConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewSocketHandler creates a SocketHandler. Origins follow the CORS allow list.
func NewSocketHandler(router *presence.Router, jwtCfg *config.JWTConfig, allowedOrigins []string, logger *slog.Logger) *SocketHandler {
	h := &SocketHandler{router: router, jwt: jwtCfg, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeSocket upgrades the request after authenticating it.
// @Summary Realtime presence and messaging socket
// @Description Websocket endpoint. Authenticate with a Bearer header or ?token=. Frames are {"event","data"}.
// @Tags realtime
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /socket [get]
func (h *SocketHandler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	tokenString, err := middleware.BearerToken(r, true)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	claims, err := middleware.ValidateToken(tokenString, h.jwt)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &socketClient{
		id:     uuid.NewString(),
		userID: claims.UserID.String(),
		ws:     ws,
		send:   make(chan outboundFrame, sendQueueDepth),
		done:   make(chan struct{}),
	}
	h.router.Attach(c)
	h.logger.Info("socket connected", "conn_id", c.id, "user_id", c.userID)

	go c.writePump(h.logger)
	h.readPump(c)

	h.router.Disconnect(c.id)
	c.close()
	h.logger.Info("socket disconnected", "conn_id", c.id, "user_id", c.userID)
}

func (h *SocketHandler) readPump(c *socketClient) {
	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("socket read failed", "conn_id", c.id, "error", err)
			}
			return
		}
		var frame SocketFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			c.Send(EventError, "malformed frame")
			continue
		}
		h.dispatch(c, frame)
	}
}

func (h *SocketHandler) dispatch(c *socketClient, frame SocketFrame) {
	switch frame.Event {
	case EventAddUser:
		userID := decodeAddUser(frame.Data)
		if userID != "" && userID != c.userID {
			c.Send(EventError, "addUser does not match the authenticated user")
			return
		}
		h.router.AnnounceOnline(c.userID, c.id)

	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ReceiverID == "" {
			c.Send(EventError, "sendMessage requires receiverId")
			return
		}
		if p.SenderID != "" && p.SenderID != c.userID {
			c.Send(EventError, "senderId does not match the authenticated user")
			return
		}
		h.router.RouteMessage(presence.MessageEvent{
			SenderID:   c.userID,
			ReceiverID: p.ReceiverID,
			Payload:    p.Payload,
		})

	default:
		c.Send(EventError, "unknown event "+frame.Event)
	}
}

// decodeAddUser accepts either a bare user id string or {"userId": "..."}.
func decodeAddUser(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.UserID
	}
	return ""
}

// socketClient implements presence.Conn on a websocket.
type socketClient struct {
	id     string
	userID string
	ws     *websocket.Conn

	send      chan outboundFrame
	done      chan struct{}
	closeOnce sync.Once
}

func (c *socketClient) ID() string { return c.id }

func (c *socketClient) Send(event string, data any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- outboundFrame{Event: event, Data: data}:
		return true
	default:
		return false
	}
}

func (c *socketClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *socketClient) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				logger.Warn("socket write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
