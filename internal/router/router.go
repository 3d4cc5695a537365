package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/heewon-dev/community-hub/internal/handler"    // handlers implementing the endpoint logic
	"github.com/heewon-dev/community-hub/internal/middleware" // JWT authentication and role enforcement
	"github.com/heewon-dev/community-hub/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to verify
	// that the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register, login,
	// both refresh flavors and logout.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotating refresh: exchanges the refresh token for a new pair.
	g.POST("/refresh", a.Refresh)
	// Non-rotating refresh: issues only a new access token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one session), so no middleware applies.
	g.POST("/logout", a.Logout)

	// Protected identity endpoint.  Any known role may call it.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin))
	auth.GET("/me", a.Me)
}
