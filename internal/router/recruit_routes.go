package router

import (
	"github.com/labstack/echo/v4"

	"github.com/heewon-dev/community-hub/internal/handler"
	"github.com/heewon-dev/community-hub/internal/middleware"
	"github.com/heewon-dev/community-hub/internal/model"
)

// RegisterRecruits registers recruit lifecycle, membership and chat
// endpoints under /v1/recruits.  Every route requires a valid JWT; the
// finer-grained rules (author-only decisions, member-only chat) are
// enforced in the handlers against freshly loaded state.
func RegisterRecruits(e *echo.Echo, h *handler.RecruitHandler, chat *handler.ChatHandler, jwtSecret string) {
	g := e.Group(
		"/v1/recruits",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)

	// Membership lifecycle: apply, withdraw, decide, remove.
	g.POST("/:id/join", h.Join)
	g.DELETE("/:id/join", h.Withdraw)
	g.POST("/:id/approve/:userId", h.Decide)
	g.DELETE("/:id/members/:userId", h.RemoveMember)

	// Member-gated chat history and posting.
	g.GET("/:id/chat", chat.History)
	g.POST("/:id/chat", chat.Post)
}

// RegisterRealtime registers the websocket entry point.  Token
// validation happens inside the handler because the handshake carries
// the JWT as a query parameter rather than a header.
func RegisterRealtime(e *echo.Echo, s *handler.SocketHandler) {
	e.GET("/v1/ws", s.Serve)
}
