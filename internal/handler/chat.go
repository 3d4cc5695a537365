package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/realtime"
	"github.com/heewon-dev/community-hub/internal/repository"
	"github.com/heewon-dev/community-hub/internal/service"
)

// ChatHandler serves a recruit room's message history and accepts new
// messages over HTTP.  Authorization is re-checked on every call —
// never carried over from an earlier request or an open socket —
// because the author can remove a member at any moment.  Messages are
// persisted first and broadcast second, so a disconnected subscriber
// loses only live delivery.
type ChatHandler struct {
	Messages *repository.MessageRepo
	Gate     *service.MembershipGate
	Hub      *realtime.Hub
}

// NewChatHandler constructs a ChatHandler with its dependencies.
func NewChatHandler(messages *repository.MessageRepo, gate *service.MembershipGate, hub *realtime.Hub) *ChatHandler {
	if messages == nil || gate == nil || hub == nil {
		panic("nil dependency passed to NewChatHandler")
	}
	return &ChatHandler{Messages: messages, Gate: gate, Hub: hub}
}

// groupMessageFrame is the realtime payload fanned out to room
// subscribers after a message is stored.
type groupMessageFrame struct {
	Type    string        `json:"type"`
	Message model.Message `json:"message"`
}

// History handles GET /v1/recruits/:id/chat?limit=n.
func (h *ChatHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	ok, err := h.Gate.Authorize(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRecruitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization check failed"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	msgs, err := h.Messages.ListByRecruit(ctx, id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load messages"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": msgs})
}

// Post handles POST /v1/recruits/:id/chat {content}.  The message is
// stored, then broadcast to the recruit's room.
func (h *ChatHandler) Post(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Content = strings.TrimSpace(body.Content)
	if body.Content == "" || len(body.Content) > 2000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content must be 1-2000 characters"})
	}

	ctx := c.Request().Context()
	ok, err := h.Gate.Authorize(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRecruitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization check failed"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member"})
	}

	msg := &model.Message{RecruitID: id, AuthorID: userID, Content: body.Content}
	if err := h.Messages.Create(ctx, msg); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store message"})
	}
	if payload, err := json.Marshal(groupMessageFrame{Type: "group-message", Message: *msg}); err == nil {
		h.Hub.Broadcast(realtime.RecruitRoom(id), payload)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}
