package router

import (
	"github.com/labstack/echo/v4"

	"github.com/heewon-dev/community-hub/internal/handler"
	"github.com/heewon-dev/community-hub/internal/middleware"
	"github.com/heewon-dev/community-hub/internal/model"
)

// RegisterSeats registers the seat reservation endpoints under /v1.  All
// routes require a valid JWT.  Reserve and release sit behind the Redis
// token bucket so a single client cannot hammer the claim path, and the
// read-only listing goes through the response cache.  Pool
// initialization and the on-demand expiry sweep are ADMIN-only.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, jwtSecret string, rl, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/seats",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin),
	)
	g.GET("", h.List, cache)
	g.GET("/my-reservation", h.MyReservation)
	g.POST("/:seatNumber/reserve", h.Reserve, rl)
	g.POST("/:seatNumber/release", h.Release, rl)

	admin := e.Group(
		"/v1/seats",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/pool", h.InitializePool)
	admin.POST("/cleanup-expired", h.CleanupExpired)
}
