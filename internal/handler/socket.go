package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/heewon-dev/community-hub/internal/realtime"
	"github.com/heewon-dev/community-hub/internal/service"
)

// SocketHandler upgrades authenticated clients to a websocket session
// attached to the Hub.  The access token travels in the `token` query
// parameter because browsers cannot set an Authorization header on a
// websocket handshake.  Once attached, the session is auto-subscribed
// to the user's private room and may join recruit rooms by sending
// frames; every join re-loads the membership state, so a removed
// member cannot re-enter a room on a stale session.
type SocketHandler struct {
	Secret string
	Hub    *realtime.Hub
	Gate   *service.MembershipGate

	upgrader websocket.Upgrader
}

// NewSocketHandler constructs a SocketHandler.  The upgrader accepts
// any origin; cross-origin policy is enforced at the edge, not here.
func NewSocketHandler(secret string, hub *realtime.Hub, gate *service.MembershipGate) *SocketHandler {
	return &SocketHandler{
		Secret: secret,
		Hub:    hub,
		Gate:   gate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// clientFrame is what a connected client may send: a room join or
// leave request scoped to a recruit.
type clientFrame struct {
	Type      string `json:"type"`
	RecruitID uint64 `json:"recruit_id"`
}

// serverFrame is the ack/error shape written back to the session.
type serverFrame struct {
	Type      string `json:"type"`
	RecruitID uint64 `json:"recruit_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Serve handles GET /v1/ws?token=<jwt>.  It validates the token,
// upgrades the connection, attaches it to the hub and runs the read
// loop until the client disconnects.
func (h *SocketHandler) Serve(c echo.Context) error {
	userID, role, err := h.authenticate(c.QueryParam("token"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		return nil
	}

	conn := realtime.NewConnection(userID, role, ws)
	h.Hub.Attach(conn)
	conn.Start()
	defer func() {
		h.Hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "session ended")
	}()

	ctx := c.Request().Context()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.send(conn, serverFrame{Type: "error", Error: "malformed frame"})
			continue
		}
		switch frame.Type {
		case "join-group-room":
			// Authorization is evaluated against freshly loaded
			// membership on every join, never cached on the session.
			ok, err := h.Gate.Authorize(ctx, frame.RecruitID, userID)
			if err != nil || !ok {
				h.send(conn, serverFrame{Type: "error", RecruitID: frame.RecruitID, Error: "not authorized for this room"})
				continue
			}
			h.Hub.Join(realtime.RecruitRoom(frame.RecruitID), conn)
			h.send(conn, serverFrame{Type: "joined", RecruitID: frame.RecruitID})
		case "leave-group-room":
			h.Hub.Leave(realtime.RecruitRoom(frame.RecruitID), conn)
			h.send(conn, serverFrame{Type: "left", RecruitID: frame.RecruitID})
		default:
			h.send(conn, serverFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

// send marshals a server frame onto the session's outbound queue.
func (h *SocketHandler) send(conn *realtime.Connection, f serverFrame) {
	if payload, err := json.Marshal(f); err == nil {
		conn.Send(payload)
	}
}

// authenticate parses and validates the handshake token and returns
// the subject and role claims.  The same HS256 secret and claim
// layout as the HTTP middleware are used.
func (h *SocketHandler) authenticate(raw string) (uint64, string, error) {
	if raw == "" {
		return 0, "", fmt.Errorf("missing token")
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(h.Secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("invalid claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("missing subject")
	}
	role, _ := claims["role"].(string)
	return uint64(sub), role, nil
}
